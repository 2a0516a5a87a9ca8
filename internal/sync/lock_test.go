package sync

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partner-sync/internal/common/errors"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRunLockAcquire(t *testing.T) {
	client := newTestRedis(t)
	lock := NewRunLock(client, time.Minute)

	release, err := lock.Acquire(context.Background(), "generate-outbound-file", "XYZ")
	require.NoError(t, err)
	require.NotNil(t, release)
	release(context.Background())
}

func TestRunLockBlocksSecondHolder(t *testing.T) {
	client := newTestRedis(t)
	lock := NewRunLock(client, time.Minute)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "generate-outbound-file", "XYZ")
	require.NoError(t, err)
	defer release(ctx)

	_, err = lock.Acquire(ctx, "generate-outbound-file", "XYZ")
	require.Error(t, err)

	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodeLockNotAcquired, stdErr.Code)
}

func TestRunLockKeyedPerPartner(t *testing.T) {
	client := newTestRedis(t)
	lock := NewRunLock(client, time.Minute)
	ctx := context.Background()

	releaseXYZ, err := lock.Acquire(ctx, "generate-outbound-file", "XYZ")
	require.NoError(t, err)
	defer releaseXYZ(ctx)

	releaseOther, err := lock.Acquire(ctx, "generate-outbound-file", "OTHER")
	require.NoError(t, err)
	defer releaseOther(ctx)
}

func TestRunLockRedisOutage(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.Regexp().ExpectSetNX("partner-sync:lock:generate-outbound-file:XYZ", `.+`, time.Minute).
		SetErr(stderrors.New("connection refused"))

	lock := NewRunLock(client, time.Minute)
	_, err := lock.Acquire(context.Background(), "generate-outbound-file", "XYZ")
	require.Error(t, err)

	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrorCode("EXTERNAL_SERVICE_ERROR"), stdErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLockReleaseAllowsReacquire(t *testing.T) {
	client := newTestRedis(t)
	lock := NewRunLock(client, time.Minute)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "process-ack-file", "XYZ")
	require.NoError(t, err)
	release(ctx)

	release, err = lock.Acquire(ctx, "process-ack-file", "XYZ")
	require.NoError(t, err)
	release(ctx)
}
