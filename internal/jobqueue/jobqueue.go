/*
Package jobqueue runs the deferred Slack message processing on a River-based
job queue. The webhook handler only verifies, classifies, and deduplicates;
everything slow (history fetch, screenshots, the LLM round trip, posting)
happens here, safely past Slack's delivery deadline.

For worker counts, retries, and timeouts see queue_config.go.
*/
package jobqueue

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

// SlackMessageJobArgs carries one accepted Slack event into the queue.
type SlackMessageJobArgs struct {
	ChannelID string `json:"channel_id"`
	ThreadTS  string `json:"thread_ts"`
	TS        string `json:"ts"`
	Text      string `json:"text"`
	IsMention bool   `json:"is_mention"`
}

// Kind returns the job kind for River.
func (SlackMessageJobArgs) Kind() string {
	return "slack_message"
}

// Processor runs the full response pipeline for one Slack message.
type Processor interface {
	Process(ctx context.Context, args SlackMessageJobArgs) error
}

// SlackMessageWorker executes slack_message jobs.
type SlackMessageWorker struct {
	river.WorkerDefaults[SlackMessageJobArgs]
	processor Processor
	config    *QueueConfig
}

// Work hands the job to the processor under the configured timeout. A
// returned error puts the job back on River's retry schedule.
func (w *SlackMessageWorker) Work(ctx context.Context, job *river.Job[SlackMessageJobArgs]) error {
	ctx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	log.Printf("[INFO] jobqueue: processing slack message job %d (channel %s, ts %s, attempt %d)",
		job.ID, job.Args.ChannelID, job.Args.TS, job.Attempt)

	if err := w.processor.Process(ctx, job.Args); err != nil {
		return fmt.Errorf("slack message job %d failed: %w", job.ID, err)
	}
	return nil
}

// JobQueue manages the River client and its worker pool.
type JobQueue struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	config *QueueConfig
}

// NewJobQueue builds the queue on its own pgx pool. The processor is
// injected so the queue stays free of response-pipeline dependencies.
func NewJobQueue(databaseURL string, processor Processor) (*JobQueue, error) {
	config := GetQueueConfig()

	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &SlackMessageWorker{processor: processor, config: config})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:      config.RiverQueueConfig(),
		Workers:     workers,
		MaxAttempts: config.MaxRetries,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &JobQueue{client: client, pool: pool, config: config}, nil
}

// Start starts the worker pool.
func (jq *JobQueue) Start(ctx context.Context) error {
	return jq.client.Start(ctx)
}

// Stop drains and stops the worker pool, then closes the pool.
func (jq *JobQueue) Stop(ctx context.Context) error {
	err := jq.client.Stop(ctx)
	jq.pool.Close()
	return err
}

// EnqueueSlackMessage queues one accepted Slack event for processing.
func (jq *JobQueue) EnqueueSlackMessage(ctx context.Context, args SlackMessageJobArgs) error {
	if _, err := jq.client.Insert(ctx, args, nil); err != nil {
		return fmt.Errorf("failed to queue slack message job: %w", err)
	}
	return nil
}
