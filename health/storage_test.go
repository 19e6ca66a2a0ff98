package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zygi/miniperscache/storage"
)

type slowPinger struct {
	delay time.Duration
	err   error
}

func (p slowPinger) Ping(ctx context.Context) error {
	time.Sleep(p.delay)
	return p.err
}

type notPingable struct{}

func TestNewStorageChecker_RequiresPinger(t *testing.T) {
	_, err := NewStorageChecker(notPingable{}, StorageCheckerConfig{})
	assert.ErrorIs(t, err, ErrNotPingable)
}

func TestStorageChecker_Memory(t *testing.T) {
	c, err := NewStorageChecker(storage.NewMemory(), StorageCheckerConfig{})
	require.NoError(t, err)

	assert.Equal(t, "storage", c.Name())
	r := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, r.Status)
	assert.Equal(t, "*storage.Memory", r.Details["backend"])
}

func TestStorageChecker_ThroughDispatcher(t *testing.T) {
	d, err := storage.Dispatch(storage.Async(storage.NewMemory()))
	require.NoError(t, err)

	c, err := NewStorageChecker(d, StorageCheckerConfig{Name: "async-memory"})
	require.NoError(t, err)
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)
}

func TestStorageChecker_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	backend, err := storage.OpenRedis(storage.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)

	c, err := NewStorageChecker(backend, StorageCheckerConfig{Name: "redis"})
	require.NoError(t, err)
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)

	mr.Close()
	r := c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, r.Status)
	assert.Error(t, r.Error)
}

func TestStorageChecker_Degraded(t *testing.T) {
	c, err := NewStorageChecker(slowPinger{delay: 5 * time.Millisecond}, StorageCheckerConfig{SlowThreshold: time.Millisecond})
	require.NoError(t, err)

	r := c.Check(context.Background())
	assert.Equal(t, StatusDegraded, r.Status)
	assert.GreaterOrEqual(t, r.Duration, 5*time.Millisecond)
}

func TestStorageChecker_Unhealthy(t *testing.T) {
	errLocked := errors.New("database is locked")
	c, err := NewStorageChecker(slowPinger{err: errLocked}, StorageCheckerConfig{})
	require.NoError(t, err)

	r := c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, r.Status)
	assert.ErrorIs(t, r.Error, errLocked)
}
