package docstore

import (
	"context"
	"time"

	"github.com/rioux/courtspot/internal/metrics"
)

// InstrumentedStore はStoreをラップし、操作ごとの結果とレイテンシを
// メトリクスとして記録するデコレータ。
type InstrumentedStore struct {
	inner     Store
	collector metrics.Collector
}

// NewInstrumentedStore はInstrumentedStoreを生成する。
func NewInstrumentedStore(inner Store, collector metrics.Collector) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, collector: collector}
}

// Query は内側のストアに委譲し、結果を記録する。
func (s *InstrumentedStore) Query(ctx context.Context, collection string, filters []Filter, order *OrderBy) ([]Document, error) {
	start := time.Now()
	docs, err := s.inner.Query(ctx, collection, filters, order)
	s.collector.RecordRemoteOp(collection, "query", err, time.Since(start))
	return docs, err
}

// Get は内側のストアに委譲し、結果を記録する。
func (s *InstrumentedStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	start := time.Now()
	doc, err := s.inner.Get(ctx, collection, id)
	s.collector.RecordRemoteOp(collection, "get", err, time.Since(start))
	return doc, err
}

// Insert は内側のストアに委譲し、結果を記録する。
func (s *InstrumentedStore) Insert(ctx context.Context, collection string, fields map[string]any) (string, error) {
	start := time.Now()
	id, err := s.inner.Insert(ctx, collection, fields)
	s.collector.RecordRemoteOp(collection, "insert", err, time.Since(start))
	return id, err
}

// Merge は内側のストアに委譲し、結果を記録する。
func (s *InstrumentedStore) Merge(ctx context.Context, collection, id string, fields map[string]any) error {
	start := time.Now()
	err := s.inner.Merge(ctx, collection, id, fields)
	s.collector.RecordRemoteOp(collection, "merge", err, time.Since(start))
	return err
}

// Remove は内側のストアに委譲し、結果を記録する。
func (s *InstrumentedStore) Remove(ctx context.Context, collection, id string) error {
	start := time.Now()
	err := s.inner.Remove(ctx, collection, id)
	s.collector.RecordRemoteOp(collection, "remove", err, time.Since(start))
	return err
}

// compile-time interface check
var _ Store = (*InstrumentedStore)(nil)
