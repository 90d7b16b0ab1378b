package blob

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStore はインメモリのコンテンツストア。テストで使用する。
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string

	// FailNext が非nilの場合、次の1回のPutがこのエラーで失敗する。
	FailNext error
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

// Put は指定キーでオブジェクトを保存する。
func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read object body: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailNext != nil {
		err := s.FailNext
		s.FailNext = nil
		return "", err
	}

	s.objects[key] = data
	s.types[key] = contentType
	return key, nil
}

// PublicURL はテスト用の固定ドメインで公開URLを構築する。
func (s *MemoryStore) PublicURL(key string) string {
	return "https://blob.test/" + key
}

// Object は保存済みオブジェクトのバイト列を返す。テスト検証用。
func (s *MemoryStore) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

// Len は保存済みオブジェクト数を返す。テスト検証用。
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// compile-time interface check
var _ Store = (*MemoryStore)(nil)
