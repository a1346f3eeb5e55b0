package run

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Aggregate())

	e1, e2 := errors.New("one"), errors.New("two")
	errs.Add(e1, nil, e2)
	err := errs.Aggregate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "one")
	require.Contains(t, err.Error(), "two")
}

func TestRunnerWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	boom := errors.New("boom")

	r := NewRunnerWith(ctx).Go(
		NamedRun("fails", RunnableFunc(func(context.Context) error {
			return boom
		})),
		NamedRun("runs", RunnableFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})),
	)

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := r.Wait()
	var agg *AggregatedError
	require.True(t, errors.As(err, &agg))
	require.Equal(t, []error{boom}, agg.Errors)
}
