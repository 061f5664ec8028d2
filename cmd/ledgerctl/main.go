package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	capi "github.com/hashicorp/consul/api"

	"github.com/glyphlabs/ledger/pkg/api"
	"github.com/glyphlabs/ledger/pkg/config"
	"github.com/glyphlabs/ledger/pkg/ledger"
	consulp "github.com/glyphlabs/ledger/pkg/persister/consul"
	"github.com/glyphlabs/ledger/pkg/stake/memledger"
)

func main() {
	w := flag.CommandLine.Output()

	flag.Usage = func() {
		fmt.Fprintf(w, "Usage: %s [-prefix=kv/prefix] <action> [<args>]\n", os.Args[0])
		fmt.Fprintf(w, "\n")
		fmt.Fprintf(w, "Action and args must be one of:\n")
		fmt.Fprintf(w, "  - owners\n")
		fmt.Fprintf(w, "  - ranges <owner>\n")
		fmt.Fprintf(w, "  - balance <owner>\n")
		fmt.Fprintf(w, "  - staked <owner>\n")
		fmt.Fprintf(w, "  - tokens <owner>\n")
		fmt.Fprintf(w, "\n")
		fmt.Fprintf(w, "Consul address comes from the usual CONSUL_HTTP_ADDR env var.\n")
		fmt.Fprintf(w, "\n")
		fmt.Fprintf(w, "Flags:\n")
		flag.PrintDefaults()
	}

	cfg := config.Default()
	prefix := flag.String("prefix", cfg.ConsulPrefix, "consul KV prefix")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	client, err := capi.NewClient(capi.DefaultConfig())
	if err != nil {
		fmt.Fprintf(w, "Error connecting to consul: %v\n", err)
		os.Exit(1)
	}

	cfg.ConsulPrefix = *prefix
	l, err := ledger.New(cfg, consulp.New(client, *prefix), memledger.New())
	if err != nil {
		fmt.Fprintf(w, "Error loading ledger: %v\n", err)
		os.Exit(1)
	}

	action := flag.Arg(0)

	switch action {
	case "owners":
		if flag.NArg() != 1 {
			fmt.Fprintf(w, "Usage: %s owners\n", os.Args[0])
			os.Exit(1)
		}
		for _, o := range l.Owners() {
			fmt.Printf("%s\t%d\n", o, l.Balance(o))
		}

	case "ranges":
		for _, s := range l.Ranges(ownerArg(w)) {
			fmt.Println(s)
		}

	case "balance":
		fmt.Println(l.Balance(ownerArg(w)))

	case "staked":
		for _, t := range l.Staked(ownerArg(w)) {
			fmt.Println(t)
		}

	case "tokens":
		// O(total token count); this is an inspection tool, so that's fine.
		for _, s := range l.Ranges(ownerArg(w)) {
			for t := s.Start; t <= s.End; t++ {
				fmt.Println(t)
			}
		}

	default:
		fmt.Fprintf(w, "Unknown action: %s\n", action)
		os.Exit(1)
	}
}

func ownerArg(w io.Writer) api.Owner {
	if flag.NArg() != 2 {
		fmt.Fprintf(w, "Usage: %s %s <owner>\n", os.Args[0], flag.Arg(0))
		os.Exit(1)
	}

	owner, err := api.OwnerFromHex(flag.Arg(1))
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		os.Exit(1)
	}

	return owner
}
