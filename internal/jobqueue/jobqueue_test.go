package jobqueue

import (
	"context"
	"errors"
	"testing"

	"github.com/riverqueue/river"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeleter struct {
	calls []string
	err   error
}

func (f *fakeDeleter) DeleteMessage(_ context.Context, channel, ts string) error {
	f.calls = append(f.calls, channel+"/"+ts)
	return f.err
}

func TestMessageDeleteWorker(t *testing.T) {
	deleter := &fakeDeleter{}
	worker := &MessageDeleteWorker{deleter: deleter, log: zerolog.Nop()}

	err := worker.Work(context.Background(), &river.Job[MessageDeleteArgs]{
		Args: MessageDeleteArgs{Channel: "C-REQUEST", TS: "1700000000.000100"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"C-REQUEST/1700000000.000100"}, deleter.calls)
}

func TestMessageDeleteWorkerAlreadyGone(t *testing.T) {
	deleter := &fakeDeleter{err: errors.New("message_not_found")}
	worker := &MessageDeleteWorker{deleter: deleter, log: zerolog.Nop()}

	err := worker.Work(context.Background(), &river.Job[MessageDeleteArgs]{
		Args: MessageDeleteArgs{Channel: "C-REQUEST", TS: "1700000000.000100"},
	})
	assert.NoError(t, err)
}

func TestMessageDeleteWorkerRetriableFailure(t *testing.T) {
	deleter := &fakeDeleter{err: errors.New("rate_limited")}
	worker := &MessageDeleteWorker{deleter: deleter, log: zerolog.Nop()}

	err := worker.Work(context.Background(), &river.Job[MessageDeleteArgs]{
		Args: MessageDeleteArgs{Channel: "C-REQUEST", TS: "1700000000.000100"},
	})
	assert.Error(t, err)
}
