package config

import "time"

// Config defines the behavior of the ledger around its core operations.
// This is compile-time config; embedders construct it once at startup.
type Config struct {

	// How often the background loop should checkpoint the ledger to the
	// persister.
	CheckpointInterval time.Duration

	// Standard deviation of the jitter applied to the checkpoint interval,
	// so that many ledgers sharing one store don't all write at once.
	CheckpointJitter time.Duration

	// KV prefix under which the consul persister stores snapshots.
	ConsulPrefix string
}

func Default() Config {
	return Config{
		CheckpointInterval: 30 * time.Second,
		CheckpointJitter:   3 * time.Second,
		ConsulPrefix:       "glyphs",
	}
}
