/*
Package jobqueue provides a River-based job queue for asynchronous chat-side
work, currently message deletion. Deletions run out of band because the chat
API rate limits destructive calls and a failed delete must retry without
blocking event handling.

For tuning parameters see queue_config.go.
*/
package jobqueue

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/zerolog"
)

// Deleter removes a posted message. The Slack gateway satisfies this.
type Deleter interface {
	DeleteMessage(ctx context.Context, channel, ts string) error
}

// MessageDeleteArgs are the arguments for one message-deletion job.
type MessageDeleteArgs struct {
	Channel string `json:"channel"`
	TS      string `json:"ts"`
}

// Kind returns the job kind for River.
func (MessageDeleteArgs) Kind() string { return "message_delete" }

// MessageDeleteWorker deletes one message per job.
type MessageDeleteWorker struct {
	river.WorkerDefaults[MessageDeleteArgs]
	deleter Deleter
	log     zerolog.Logger
}

// Work performs the deletion. A message that is already gone counts as done;
// retrying it would never succeed.
func (w *MessageDeleteWorker) Work(ctx context.Context, job *river.Job[MessageDeleteArgs]) error {
	args := job.Args

	err := w.deleter.DeleteMessage(ctx, args.Channel, args.TS)
	if err != nil {
		if strings.Contains(err.Error(), "message_not_found") {
			w.log.Debug().Str("channel", args.Channel).Str("ts", args.TS).
				Msg("message already gone, nothing to delete")
			return nil
		}
		return fmt.Errorf("failed to delete message %s in %s: %w", args.TS, args.Channel, err)
	}

	w.log.Info().Str("channel", args.Channel).Str("ts", args.TS).Msg("deleted message")
	return nil
}

// Queue manages the River job queue.
type Queue struct {
	client *river.Client[pgx.Tx]
	cfg    *QueueConfig
	log    zerolog.Logger
}

// New creates a queue over an existing connection pool. Call Start to begin
// working jobs; enqueueing works without Start.
func New(pool *pgxpool.Pool, deleter Deleter, cfg *QueueConfig, log zerolog.Logger) (*Queue, error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, &MessageDeleteWorker{deleter: deleter, log: log})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:     cfg.RiverQueueConfig(),
		Workers:    workers,
		JobTimeout: cfg.JobTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create job queue client: %w", err)
	}

	return &Queue{client: client, cfg: cfg, log: log}, nil
}

// Start starts the queue workers.
func (q *Queue) Start(ctx context.Context) error {
	return q.client.Start(ctx)
}

// Stop drains in-flight jobs and stops the workers.
func (q *Queue) Stop(ctx context.Context) error {
	return q.client.Stop(ctx)
}

// EnqueueDelete schedules a message deletion.
func (q *Queue) EnqueueDelete(ctx context.Context, channel, ts string) error {
	_, err := q.client.Insert(ctx, MessageDeleteArgs{Channel: channel, TS: ts}, &river.InsertOpts{
		MaxAttempts: q.cfg.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue message deletion: %w", err)
	}
	q.log.Debug().Str("channel", channel).Str("ts", ts).Msg("queued message deletion")
	return nil
}
