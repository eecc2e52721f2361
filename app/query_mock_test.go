package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/artpar/bazaargate/app"
	"github.com/artpar/bazaargate/domain/product"
	"github.com/artpar/bazaargate/domain/query"
	"github.com/artpar/bazaargate/domain/quota"
	"github.com/artpar/bazaargate/ports"
	"github.com/artpar/bazaargate/ports/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newMockedService(t *testing.T) (*app.QueryService, *mocks.MockSnapshotStore, *mocks.MockKeyLedger) {
	t.Helper()
	ctrl := gomock.NewController(t)
	snaps := mocks.NewMockSnapshotStore(ctrl)
	keys := mocks.NewMockKeyLedger(ctrl)

	svc := app.NewQueryService(app.QueryDeps{
		Snapshots: snaps,
		Keys:      keys,
		Logger:    zerolog.Nop(),
	}, app.QueryConfig{Policies: query.DefaultPolicies()})

	return svc, snaps, keys
}

func TestQueryService_InvalidFieldTouchesNoStore(t *testing.T) {
	// No EXPECT calls: any store access fails the test.
	svc, _, _ := newMockedService(t)

	result := svc.LatestField(context.Background(), "SULPHUR", "nonsense", "ABC")

	require.NotNil(t, result.Error)
	assert.Equal(t, 400, result.Error.Status)

	result = svc.FieldHistory(context.Background(), "SUL PHUR", product.FieldSellPrice, 3, "ABC")
	require.NotNil(t, result.Error)
	assert.Equal(t, "invalid item", result.Error.Message)
}

func TestQueryService_RefusedQuotaSkipsSnapshotRead(t *testing.T) {
	svc, _, keys := newMockedService(t)

	keys.EXPECT().Consume(gomock.Any(), "ABC").Return(quota.Denied, nil)

	result := svc.LatestField(context.Background(), "SULPHUR", product.FieldSellPrice, "ABC")

	require.NotNil(t, result.Error)
	assert.Equal(t, 429, result.Error.Status)
	assert.Equal(t, "API Limit Exceeded", result.Error.Message)
}

func TestQueryService_StoreFailures(t *testing.T) {
	boom := errors.New("connection reset")

	t.Run("consume", func(t *testing.T) {
		svc, _, keys := newMockedService(t)
		keys.EXPECT().Consume(gomock.Any(), "ABC").Return(quota.Outcome(0), boom)

		result := svc.LatestField(context.Background(), "SULPHUR", product.FieldSellPrice, "ABC")
		require.NotNil(t, result.Error)
		assert.Equal(t, 500, result.Error.Status)
		assert.Equal(t, "Internal Server Error", result.Error.Message)
	})

	t.Run("latest", func(t *testing.T) {
		svc, snaps, keys := newMockedService(t)
		keys.EXPECT().Consume(gomock.Any(), "ABC").Return(quota.Allowed, nil)
		snaps.EXPECT().Latest(gomock.Any(), "SULPHUR").Return(product.Snapshot{}, boom)

		result := svc.LatestField(context.Background(), "SULPHUR", product.FieldSellPrice, "ABC")
		require.NotNil(t, result.Error)
		assert.Equal(t, 500, result.Error.Status)
	})

	t.Run("history", func(t *testing.T) {
		svc, snaps, keys := newMockedService(t)
		keys.EXPECT().Consume(gomock.Any(), "ABC").Return(quota.Allowed, nil)
		snaps.EXPECT().History(gomock.Any(), "SULPHUR", 3).Return(nil, boom)

		result := svc.FieldHistory(context.Background(), "SULPHUR", product.FieldSellPrice, 3, "ABC")
		require.NotNil(t, result.Error)
		assert.Equal(t, 500, result.Error.Status)
		assert.Nil(t, result.Values)
	})
}

func TestQueryService_ZeroLimitSkipsHistoryRead(t *testing.T) {
	svc, _, keys := newMockedService(t)
	keys.EXPECT().Consume(gomock.Any(), "ABC").Return(quota.Allowed, nil)

	result := svc.FieldHistory(context.Background(), "SULPHUR", product.FieldSellPrice, 0, "ABC")

	require.NotNil(t, result.Error)
	assert.Equal(t, "No data found for field 'sellPrice'", result.Error.Message)
}

func TestQueryService_OpenSnapshotSkipsLedger(t *testing.T) {
	svc, snaps, _ := newMockedService(t)
	snap := product.Snapshot{ProductID: "SULPHUR", Timestamp: 3}
	snaps.EXPECT().Latest(gomock.Any(), "SULPHUR").Return(snap, nil)

	result := svc.LatestSnapshot(context.Background(), "SULPHUR", "")

	require.Nil(t, result.Error)
	assert.Equal(t, snap, *result.Snapshot)
}

func TestQueryService_CoalescesConcurrentLatest(t *testing.T) {
	svc, snaps, _ := newMockedService(t)

	release := make(chan struct{})
	snaps.EXPECT().Latest(gomock.Any(), "SULPHUR").DoAndReturn(
		func(ctx context.Context, id string) (product.Snapshot, error) {
			<-release
			return product.Snapshot{ProductID: id, Timestamp: 9}, nil
		}).Times(1)

	var wg sync.WaitGroup
	results := make([]app.Result, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.LatestSnapshot(context.Background(), "SULPHUR", "")
		}(i)
	}

	// Give every caller time to join the in-flight read.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, r := range results {
		require.Nil(t, r.Error, "result %d", i)
		assert.Equal(t, int64(9), r.Snapshot.Timestamp)
	}
}

func TestQueryService_CancelledCallerDoesNotCancelSharedRead(t *testing.T) {
	svc, snaps, _ := newMockedService(t)

	started := make(chan struct{})
	release := make(chan struct{})
	snaps.EXPECT().Latest(gomock.Any(), "SULPHUR").DoAndReturn(
		func(ctx context.Context, id string) (product.Snapshot, error) {
			close(started)
			<-release
			if err := ctx.Err(); err != nil {
				return product.Snapshot{}, err
			}
			return product.Snapshot{ProductID: id, Timestamp: 1}, nil
		}).Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan app.Result, 1)
	go func() { first <- svc.LatestSnapshot(ctx, "SULPHUR", "") }()

	<-started
	second := make(chan app.Result, 1)
	go func() { second <- svc.LatestSnapshot(context.Background(), "SULPHUR", "") }()
	time.Sleep(20 * time.Millisecond)

	cancel()
	r := <-first
	require.NotNil(t, r.Error)

	close(release)
	r = <-second
	require.Nil(t, r.Error)
	assert.Equal(t, int64(1), r.Snapshot.Timestamp)
}

func TestQueryService_NotFoundIsNotAStoreError(t *testing.T) {
	svc, snaps, keys := newMockedService(t)
	keys.EXPECT().Consume(gomock.Any(), "ABC").Return(quota.Allowed, nil)
	snaps.EXPECT().Latest(gomock.Any(), "WHEAT").Return(product.Snapshot{}, ports.ErrNotFound)

	result := svc.LatestField(context.Background(), "WHEAT", product.FieldBuyPrice, "ABC")

	require.NotNil(t, result.Error)
	assert.Equal(t, 404, result.Error.Status)
}
