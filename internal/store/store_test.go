package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/rioux/courtspot/internal/authz"
	"github.com/rioux/courtspot/internal/blob"
	"github.com/rioux/courtspot/internal/docstore"
	"github.com/rioux/courtspot/internal/identity"
	"github.com/rioux/courtspot/internal/metrics"
	"github.com/rioux/courtspot/internal/model"
	"github.com/rioux/courtspot/internal/security"
	"github.com/rioux/courtspot/internal/session"
)

const testAdminEmail = "admin@example.com"

// fakeProvider はテスト用の認証プロバイダー。
// 初期状態として与えられたidentityを初回通知で配信する。
type fakeProvider struct {
	mu        sync.Mutex
	current   *model.Identity
	listeners []identity.StateListener
}

func (p *fakeProvider) LoginURL(state string) string { return "https://auth.test/login" }

func (p *fakeProvider) CompleteSignIn(ctx context.Context, code string) (*model.Identity, error) {
	return nil, errors.New("not implemented")
}

func (p *fakeProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.current = nil
	fns := append([]identity.StateListener{}, p.listeners...)
	p.mu.Unlock()
	for _, fn := range fns {
		fn(nil)
	}
	return nil
}

func (p *fakeProvider) OnStateChange(fn identity.StateListener) func() {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	current := p.current
	p.mu.Unlock()
	go fn(current)
	return func() {}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestSession は指定identityでサインイン済みのセッションストアを構築する。
// idがnilの場合は未サインイン状態になる。
func newTestSession(t *testing.T, docs docstore.Store, id *model.Identity) *session.Store {
	t.Helper()
	provider := &fakeProvider{current: id}
	sess := session.New(provider, docs, testLogger())
	deadline := time.Now().Add(time.Second)
	for !sess.Ready() {
		if time.Now().After(deadline) {
			t.Fatal("session store did not become ready")
		}
		time.Sleep(time.Millisecond)
	}
	return sess
}

// newTestLocationStore はテスト用依存を束ねたLocationStoreを構築する。
func newTestLocationStore(t *testing.T, docs docstore.Store, blobs blob.Store, id *model.Identity) *LocationStore {
	t.Helper()
	return NewLocationStore(LocationDeps{
		Docs:       docs,
		Blobs:      blobs,
		Session:    newTestSession(t, docs, id),
		Authorizer: authz.New(testAdminEmail),
		Sanitizer:  security.NewTextSanitizer(),
		SSRFGuard:  security.NewSSRFGuard(),
		Metrics:    metrics.NopCollector{},
		Logger:     testLogger(),
	})
}

// insertLocation は検証を迂回して施設ドキュメントを直接挿入する。
func insertLocation(t *testing.T, docs docstore.Store, fields map[string]any) string {
	t.Helper()
	id, err := docs.Insert(context.Background(), docstore.CollectionLocations, fields)
	if err != nil {
		t.Fatalf("failed to seed location: %v", err)
	}
	return id
}
