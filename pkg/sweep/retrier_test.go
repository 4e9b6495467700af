package sweep

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeInvalidator struct {
	fail map[string]bool
	got  []string
}

func (f *fakeInvalidator) InvalidateOwner(ctx context.Context, ownerID string) error {
	f.got = append(f.got, ownerID)
	if f.fail[ownerID] {
		return errors.New("invalidate still failing")
	}
	return nil
}

func TestInvalidationRetrierClearsSucceedingOwners(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, "owner1"))
	require.NoError(t, q.Enqueue(ctx, "owner2"))

	inv := &fakeInvalidator{fail: map[string]bool{"owner2": true}}
	r := NewInvalidationRetrier(q, inv)

	retried, err := r.RetryPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, retried)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Contains(t, pending, "owner2")
}

func TestInvalidationRetrierNoPendingOwners(t *testing.T) {
	q := newTestQueue(t)
	inv := &fakeInvalidator{}
	r := NewInvalidationRetrier(q, inv)

	retried, err := r.RetryPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, retried)
	require.Empty(t, inv.got)
}
