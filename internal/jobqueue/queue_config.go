package jobqueue

import (
	"time"

	"github.com/riverqueue/river"
)

// QueueConfig holds the tunable parameters for the job queue.
type QueueConfig struct {
	// MaxWorkers is the number of concurrent workers processing jobs. Keep it
	// low: the chat API rate limits destructive calls per workspace.
	MaxWorkers int

	// MaxRetries is the maximum retry attempts per job before River discards
	// it.
	MaxRetries int

	// JobTimeout bounds a single deletion attempt.
	JobTimeout time.Duration
}

// DefaultQueueConfig returns sensible defaults for a single workspace.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MaxWorkers: 2,
		MaxRetries: 10,
		JobTimeout: 30 * time.Second,
	}
}

// RiverQueueConfig converts the config to River's queue configuration format.
func (c *QueueConfig) RiverQueueConfig() map[string]river.QueueConfig {
	return map[string]river.QueueConfig{
		river.QueueDefault: {
			MaxWorkers: c.MaxWorkers,
		},
	}
}
