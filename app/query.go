// Package app provides application services that orchestrate domain logic.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/artpar/bazaargate/domain/key"
	"github.com/artpar/bazaargate/domain/product"
	"github.com/artpar/bazaargate/domain/query"
	"github.com/artpar/bazaargate/domain/quota"
	"github.com/artpar/bazaargate/ports"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// latestReadTimeout bounds a coalesced latest read, which outlives any single caller.
const latestReadTimeout = 10 * time.Second

// QueryService answers bazaar queries: validate, gate on quota, read, project.
type QueryService struct {
	snapshots ports.SnapshotStore
	keys      ports.KeyLedger
	metrics   ports.Metrics
	logger    zerolog.Logger

	latest singleflight.Group

	// Dynamic configuration (hot-reloadable)
	dynamicCfg atomic.Pointer[DynamicConfig]
}

// DynamicConfig contains hot-reloadable configuration.
type DynamicConfig struct {
	Policies        query.Policies
	MaxHistoryLimit int // 0 = unbounded
}

// QueryDeps contains dependencies for QueryService.
type QueryDeps struct {
	Snapshots ports.SnapshotStore
	Keys      ports.KeyLedger
	Metrics   ports.Metrics // optional
	Logger    zerolog.Logger
}

// QueryConfig contains configuration for QueryService.
type QueryConfig struct {
	Policies        query.Policies
	MaxHistoryLimit int
}

// NewQueryService creates a new query service.
func NewQueryService(deps QueryDeps, cfg QueryConfig) *QueryService {
	m := deps.Metrics
	if m == nil {
		m = NopMetrics{}
	}

	s := &QueryService{
		snapshots: deps.Snapshots,
		keys:      deps.Keys,
		metrics:   m,
		logger:    deps.Logger,
	}
	s.UpdateConfig(cfg.Policies, cfg.MaxHistoryLimit)
	return s
}

// UpdateConfig updates the hot-reloadable configuration.
// This is thread-safe and can be called while handling requests.
func (s *QueryService) UpdateConfig(policies query.Policies, maxHistoryLimit int) {
	s.dynamicCfg.Store(&DynamicConfig{
		Policies:        policies,
		MaxHistoryLimit: maxHistoryLimit,
	})
}

// Config returns the current dynamic configuration.
func (s *QueryService) Config() DynamicConfig {
	return *s.dynamicCfg.Load()
}

// Result represents the outcome of one query.
// Exactly one of Snapshot, Value, Values or Error is set.
type Result struct {
	Snapshot *product.Snapshot
	Value    json.RawMessage
	Values   []json.RawMessage
	Error    *query.ErrorResponse
}

// LatestSnapshot returns the newest full snapshot of a product.
func (s *QueryService) LatestSnapshot(ctx context.Context, productID, apiKey string) Result {
	dynCfg := s.dynamicCfg.Load()

	// 1. Validate product id (PURE)
	if !product.ValidProductID(productID) {
		return Result{Error: &query.ErrInvalidItem}
	}

	// 2. Consume quota when the endpoint is gated (I/O)
	if dynCfg.Policies.For(query.EndpointSnapshot).RequireKey {
		if errResp := s.consume(ctx, query.EndpointSnapshot, productID, apiKey); errResp != nil {
			return Result{Error: errResp}
		}
	}

	// 3. Fetch latest snapshot (I/O)
	snap, err := s.readLatest(ctx, productID)
	if errors.Is(err, ports.ErrNotFound) {
		return Result{Error: &query.ErrItemNotFound}
	}
	if err != nil {
		s.storeFailure("latest", productID, err)
		return Result{Error: &query.ErrInternal}
	}

	return Result{Snapshot: &snap}
}

// LatestField returns the newest value of one field of a product.
func (s *QueryService) LatestField(ctx context.Context, productID, field, apiKey string) Result {
	dynCfg := s.dynamicCfg.Load()

	// 1. Validate product id (PURE)
	if !product.ValidProductID(productID) {
		return Result{Error: &query.ErrInvalidItem}
	}

	// 2. Validate field (PURE)
	if !product.ValidField(field) {
		return Result{Error: &query.ErrInvalidField}
	}

	// 3. Consume quota (I/O)
	if dynCfg.Policies.For(query.EndpointField).RequireKey {
		if errResp := s.consume(ctx, query.EndpointField, productID, apiKey); errResp != nil {
			return Result{Error: errResp}
		}
	}

	// 4. Fetch latest snapshot (I/O)
	snap, err := s.readLatest(ctx, productID)
	if errors.Is(err, ports.ErrNotFound) {
		return Result{Error: query.ErrFieldNotFound(field)}
	}
	if err != nil {
		s.storeFailure("latest", productID, err)
		return Result{Error: &query.ErrInternal}
	}

	// 5. Project field (PURE)
	value, ok := product.Project(snap, field)
	if !ok {
		return Result{Error: query.ErrFieldNotFound(field)}
	}

	return Result{Value: value}
}

// FieldHistory returns up to limit values of one field, newest first.
func (s *QueryService) FieldHistory(ctx context.Context, productID, field string, limit int, apiKey string) Result {
	dynCfg := s.dynamicCfg.Load()

	// 1. Validate product id, field and limit (PURE)
	if !product.ValidProductID(productID) {
		return Result{Error: &query.ErrInvalidItem}
	}
	if !product.ValidField(field) {
		return Result{Error: &query.ErrInvalidField}
	}
	if limit < 0 {
		return Result{Error: &query.ErrInvalidLimit}
	}
	if dynCfg.MaxHistoryLimit > 0 && limit > dynCfg.MaxHistoryLimit {
		limit = dynCfg.MaxHistoryLimit
	}

	// 2. Consume quota (I/O)
	if dynCfg.Policies.For(query.EndpointHistory).RequireKey {
		if errResp := s.consume(ctx, query.EndpointHistory, productID, apiKey); errResp != nil {
			return Result{Error: errResp}
		}
	}

	// 3. Fetch history (I/O); a zero limit never reaches the store
	snaps := []product.Snapshot{}
	if limit > 0 {
		var err error
		snaps, err = s.snapshots.History(ctx, productID, limit)
		if err != nil {
			s.storeFailure("history", productID, err)
			return Result{Error: &query.ErrInternal}
		}
	}

	// 4. Project field across snapshots (PURE)
	values := product.ProjectMany(snaps, field)
	if len(values) == 0 {
		return Result{Error: query.ErrFieldNotFound(field)}
	}

	return Result{Values: values}
}

// consume spends one unit of the key's quota and maps refusals to client errors.
// Consumed quota is never refunded, even if the caller goes away afterwards.
func (s *QueryService) consume(ctx context.Context, endpoint query.Endpoint, productID, apiKey string) *query.ErrorResponse {
	outcome, err := s.keys.Consume(ctx, apiKey)
	if err != nil {
		s.metrics.StoreError("consume")
		s.logger.Error().
			Err(err).
			Str("endpoint", string(endpoint)).
			Str("product_id", productID).
			Str("key", key.Mask(apiKey)).
			Msg("quota consume failed")
		return &query.ErrInternal
	}

	s.metrics.QuotaDecision(outcome)
	if outcome != quota.Allowed {
		s.logger.Debug().
			Str("endpoint", string(endpoint)).
			Str("product_id", productID).
			Str("key", key.Mask(apiKey)).
			Str("outcome", outcome.String()).
			Msg("quota refused")
	}
	return query.ForOutcome(outcome)
}

// readLatest coalesces concurrent latest reads of the same product into one store query.
func (s *QueryService) readLatest(ctx context.Context, productID string) (product.Snapshot, error) {
	ch := s.latest.DoChan(productID, func() (any, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), latestReadTimeout)
		defer cancel()
		return s.snapshots.Latest(readCtx, productID)
	})

	select {
	case <-ctx.Done():
		return product.Snapshot{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.metrics.SnapshotReadCoalesced()
		}
		if res.Err != nil {
			return product.Snapshot{}, res.Err
		}
		return res.Val.(product.Snapshot), nil
	}
}

func (s *QueryService) storeFailure(operation, productID string, err error) {
	s.metrics.StoreError(operation)
	s.logger.Error().
		Err(err).
		Str("operation", operation).
		Str("product_id", productID).
		Msg("snapshot store failed")
}

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) QuotaDecision(quota.Outcome) {}
func (NopMetrics) StoreError(string) {}
func (NopMetrics) SnapshotReadCoalesced() {}
func (NopMetrics) ResetSweep(int64, error, time.Time) {}

// Ensure interface compliance.
var _ ports.Metrics = NopMetrics{}
