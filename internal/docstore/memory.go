package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore はインメモリのドキュメントストア。
// テストおよびバックエンドなしのローカル起動で使用する。
// 保存時にJSON正規化を行い、PostgreSQL実装と同じ値の形
// （文字列・float64・bool・マップ・スライス）を観測させる。
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]any
	order       map[string][]string // コレクションごとの挿入順
	nextID      int

	// FailNext が非nilの場合、次の1回の操作がこのエラーで失敗する。
	// テストでリモート障害を注入するために使用する。
	FailNext error
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]map[string]any),
		order:       make(map[string][]string),
	}
}

// takeFailure は注入された障害を取り出す。
func (s *MemoryStore) takeFailure() error {
	err := s.FailNext
	s.FailNext = nil
	return err
}

// normalize はフィールド群をJSON経由で正規化する。
func normalize(fields map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize fields: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to normalize fields: %w", err)
	}
	return out, nil
}

// Query は条件に一致するドキュメント群を返す。
func (s *MemoryStore) Query(ctx context.Context, collection string, filters []Filter, order *OrderBy) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure(); err != nil {
		return nil, err
	}

	var docs []Document
	for _, id := range s.order[collection] {
		fields, ok := s.collections[collection][id]
		if !ok {
			continue
		}
		if !matchesFilters(fields, filters) {
			continue
		}
		docs = append(docs, Document{ID: id, Fields: copyFields(fields)})
	}

	if order != nil {
		sort.SliceStable(docs, func(i, j int) bool {
			less := compareValues(docs[i].Fields[order.Field], docs[j].Fields[order.Field])
			if order.Desc {
				return !less
			}
			return less
		})
	}

	return docs, nil
}

// Get は指定IDのドキュメントを取得する。存在しない場合はnilを返す。
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure(); err != nil {
		return nil, err
	}

	fields, ok := s.collections[collection][id]
	if !ok {
		return nil, nil
	}
	return &Document{ID: id, Fields: copyFields(fields)}, nil
}

// Insert はドキュメントを新規作成し、採番したIDを返す。
func (s *MemoryStore) Insert(ctx context.Context, collection string, fields map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure(); err != nil {
		return "", err
	}

	resolved := resolveServerTimestamps(fields, time.Now().UTC())
	normalized, err := normalize(resolved)
	if err != nil {
		return "", err
	}

	s.nextID++
	id := fmt.Sprintf("%s-%d", collection, s.nextID)

	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]map[string]any)
	}
	s.collections[collection][id] = normalized
	s.order[collection] = append(s.order[collection], id)

	return id, nil
}

// Merge は指定フィールドのみを浅くマージする。
// ドキュメントが存在しない場合は新規作成する。
func (s *MemoryStore) Merge(ctx context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure(); err != nil {
		return err
	}

	resolved := resolveServerTimestamps(fields, time.Now().UTC())
	normalized, err := normalize(resolved)
	if err != nil {
		return err
	}

	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]map[string]any)
	}

	existing, ok := s.collections[collection][id]
	if !ok {
		s.collections[collection][id] = normalized
		s.order[collection] = append(s.order[collection], id)
		return nil
	}

	for k, v := range normalized {
		existing[k] = v
	}
	return nil
}

// Remove は指定IDのドキュメントを削除する。存在しない場合もエラーにしない。
func (s *MemoryStore) Remove(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure(); err != nil {
		return err
	}

	delete(s.collections[collection], id)
	for i, oid := range s.order[collection] {
		if oid == id {
			s.order[collection] = append(s.order[collection][:i], s.order[collection][i+1:]...)
			break
		}
	}
	return nil
}

// matchesFilters は全ての等価述語を満たすかを判定する。
func matchesFilters(fields map[string]any, filters []Filter) bool {
	for _, f := range filters {
		if fmt.Sprintf("%v", fields[f.Field]) != fmt.Sprintf("%v", f.Value) {
			return false
		}
	}
	return true
}

// compareValues は正規化済みの値同士の小なり比較を行う。
// タイムスタンプ文字列は秒未満の桁数が揃っていないことがあるため、
// 両辺が時刻として解釈できる場合はパースして比較する。
func compareValues(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return false
		}
		at, aerr := time.Parse(time.RFC3339Nano, av)
		bt, berr := time.Parse(time.RFC3339Nano, bv)
		if aerr == nil && berr == nil {
			return at.Before(bt)
		}
		return av < bv
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return false
		}
		return av < bv
	default:
		return false
	}
}

// copyFields はフィールドマップの浅いコピーを返す。
func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// compile-time interface check
var _ Store = (*MemoryStore)(nil)
