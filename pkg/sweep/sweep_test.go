package sweep

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/ironvault/sentryiam/pkg/observability"
	"github.com/stretchr/testify/require"
)

type fakeRetrier struct {
	retried int
	err     error
	calls   int
}

func (f *fakeRetrier) RetryPending(ctx context.Context) (int, error) {
	f.calls++
	return f.retried, f.err
}

type fakeReaper struct {
	reaped int
	err    error
	calls  int
}

func (f *fakeReaper) CleanupExpiredTokens(ctx context.Context) (int, error) {
	f.calls++
	return f.reaped, f.err
}

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func TestSweeperRunRetryInvalidationsCallsRetrier(t *testing.T) {
	retrier := &fakeRetrier{retried: 3}
	s := New(testLogger(), retrier, nil)

	s.runRetryInvalidations(context.Background())

	require.Equal(t, 1, retrier.calls)
}

func TestSweeperRunRetryInvalidationsNilRetrierNoop(t *testing.T) {
	s := New(testLogger(), nil, nil)
	s.runRetryInvalidations(context.Background())
}

func TestSweeperRunRetryInvalidationsLogsErrorWithoutPanicking(t *testing.T) {
	retrier := &fakeRetrier{err: errors.New("redis unreachable")}
	s := New(testLogger(), retrier, nil)
	s.runRetryInvalidations(context.Background())
	require.Equal(t, 1, retrier.calls)
}

func TestSweeperRunReapExpiredCallsReaper(t *testing.T) {
	reaper := &fakeReaper{reaped: 2}
	s := New(testLogger(), nil, reaper)

	s.runReapExpired(context.Background())

	require.Equal(t, 1, reaper.calls)
}

func TestSweeperRunReapExpiredNilReaperNoop(t *testing.T) {
	s := New(testLogger(), nil, nil)
	s.runReapExpired(context.Background())
}

type panickingRetrier struct{}

func (panickingRetrier) RetryPending(ctx context.Context) (int, error) {
	panic("boom")
}

func TestSweeperJobPanicIsRecovered(t *testing.T) {
	s := New(testLogger(), panickingRetrier{}, nil)
	require.NotPanics(t, func() {
		s.runRetryInvalidations(context.Background())
	})
}

func TestSweeperStartRegistersJobsAndStopHalts(t *testing.T) {
	s := New(testLogger(), &fakeRetrier{}, &fakeReaper{})
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}
