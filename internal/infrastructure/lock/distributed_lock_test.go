package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestReservationIsExclusive(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	first := NewAccountNumberReservation(client, "123456789012", "owner-a", time.Minute)
	second := NewAccountNumberReservation(client, "123456789012", "owner-b", time.Minute)

	ok, err := first.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnlockOnlyReleasesOwnLock(t *testing.T) {
	ctx := context.Background()
	client, mr := newClient(t)

	owner := NewAccountNumberReservation(client, "223456789012", "owner-a", time.Minute)
	other := NewAccountNumberReservation(client, "223456789012", "owner-b", time.Minute)

	ok, err := owner.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, other.Unlock(ctx))
	assert.True(t, mr.Exists(owner.Key()))

	require.NoError(t, owner.Unlock(ctx))
	assert.False(t, mr.Exists(owner.Key()))
}

func TestReservationExpires(t *testing.T) {
	ctx := context.Background()
	client, mr := newClient(t)

	l := NewAccountNumberReservation(client, "323456789012", "owner-a", time.Second)
	ok, err := l.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	again := NewAccountNumberReservation(client, "323456789012", "owner-b", time.Second)
	ok, err = again.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}
