package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rioux/courtspot/internal/docstore"
	"github.com/rioux/courtspot/internal/identity"
	"github.com/rioux/courtspot/internal/model"
)

// Store は現在のサインイン状態を保持するセッションストア。
// 認証プロバイダーの状態変化を購読し、初回通知で準備完了になる。
// サインイン処理の失敗は呼び出し側に返さず、LastError で観測する。
type Store struct {
	provider identity.Provider
	docs     docstore.Store
	logger   *slog.Logger

	mu        sync.Mutex
	identity  *model.Identity
	ready     bool
	lastError error
	listeners map[int]func()
	nextID    int
}

// New はセッションストアを生成し、プロバイダーの状態変化の購読を開始する。
// 準備完了フラグは最初の通知で一度だけ立つ。
func New(provider identity.Provider, docs docstore.Store, logger *slog.Logger) *Store {
	s := &Store{
		provider:  provider,
		docs:      docs,
		logger:    logger,
		listeners: make(map[int]func()),
	}
	provider.OnStateChange(s.handleState)
	return s
}

// handleState はプロバイダーからの状態通知を反映する。
func (s *Store) handleState(id *model.Identity) {
	s.mu.Lock()
	s.identity = id
	if !s.ready {
		s.ready = true
	}
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// BeginSignIn はサインイン開始用の認証URLを返す。
func (s *Store) BeginSignIn(state string) string {
	return s.provider.LoginURL(state)
}

// CompleteSignIn は認可コードでサインインを完了し、
// ユーザープロファイルを保存する。失敗時はnilを返し、
// エラーは LastError に記録する。
func (s *Store) CompleteSignIn(ctx context.Context, code string) *model.Identity {
	id, err := s.provider.CompleteSignIn(ctx, code)
	if err != nil {
		s.logger.Error("sign-in failed", "error", err)
		s.setError(err)
		return nil
	}

	s.setError(nil)

	fields := map[string]any{
		"displayName":  id.DisplayName,
		"fullName":     id.FullName,
		"email":        id.Email,
		"photoURL":     id.PhotoURL,
		"lastSignInAt": docstore.ServerTimestamp,
	}
	if err := s.docs.Merge(ctx, docstore.CollectionUsers, id.ID, fields); err != nil {
		// プロファイル保存の失敗はサインイン自体を妨げない
		s.logger.Warn("failed to upsert user profile", "user_id", id.ID, "error", err)
		s.setError(err)
	}

	return id
}

// EndSignIn はサインアウトする。失敗はLastErrorに記録する。
func (s *Store) EndSignIn(ctx context.Context) {
	if err := s.provider.SignOut(ctx); err != nil {
		s.logger.Error("sign-out failed", "error", err)
		s.setError(err)
		return
	}
	s.setError(nil)
}

// Identity は現在のサインイン状態を返す。未サインインならnil。
func (s *Store) Identity() *model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Ready は初回の状態通知を受け取り済みかを返す。
func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// LastError は直近のサインイン/サインアウト処理のエラーを返す。
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *Store) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err
}

// Subscribe は状態変化リスナーを登録し、解除関数を返す。
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}
