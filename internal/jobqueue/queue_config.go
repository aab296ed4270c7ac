/*
Package jobqueue configuration - tunable parameters for the River queue.

## Quick Configuration Reference:

### Performance Tuning:
- Increase MaxWorkers for higher throughput (more concurrent LLM round trips)
- MaxWorkers also bounds concurrent Browserbase sessions a busy channel can open

### Reliability Tuning:
- Increase MaxRetries when Slack or the LLM provider is flaky
- JobTimeout should cover history fetch + screenshots + one LLM call + posting

## Monitoring and Debugging:
- Job status can be monitored via River's built-in job tracking
- Failed jobs retain error information in the River jobs table
*/
package jobqueue

import (
	"os"
	"time"

	"github.com/riverqueue/river"
)

// QueueConfig holds all configurable parameters for the job queue.
type QueueConfig struct {
	MaxWorkers int           // Concurrent workers processing jobs
	MaxRetries int           // Maximum retry attempts per job
	JobTimeout time.Duration // Maximum time a single job can run
}

// DefaultQueueConfig returns the default configuration.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		// A Slack reply is stale within minutes, no point retrying for days.
		MaxWorkers: 10,
		MaxRetries: 5,
		JobTimeout: 3 * time.Minute,
	}
}

// ProductionQueueConfig returns a configuration for production traffic.
func ProductionQueueConfig() *QueueConfig {
	config := DefaultQueueConfig()
	config.MaxWorkers = 20
	config.JobTimeout = 5 * time.Minute
	return config
}

// DevelopmentQueueConfig fails fast for local iteration.
func DevelopmentQueueConfig() *QueueConfig {
	config := DefaultQueueConfig()
	config.MaxWorkers = 3
	config.MaxRetries = 2
	config.JobTimeout = 2 * time.Minute
	return config
}

// GetQueueConfig picks the configuration from CONTEXTHUB_ENV.
func GetQueueConfig() *QueueConfig {
	switch os.Getenv("CONTEXTHUB_ENV") {
	case "production":
		return ProductionQueueConfig()
	case "development":
		return DevelopmentQueueConfig()
	default:
		return DefaultQueueConfig()
	}
}

// RiverQueueConfig converts our config to River's queue configuration format.
func (c *QueueConfig) RiverQueueConfig() map[string]river.QueueConfig {
	return map[string]river.QueueConfig{
		river.QueueDefault: {
			MaxWorkers: c.MaxWorkers,
		},
	}
}
