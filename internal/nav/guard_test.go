package nav

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/rioux/courtspot/internal/authz"
	"github.com/rioux/courtspot/internal/docstore"
	"github.com/rioux/courtspot/internal/identity"
	"github.com/rioux/courtspot/internal/model"
	"github.com/rioux/courtspot/internal/session"
)

const testAdminEmail = "admin@example.com"

// manualProvider は初回通知を手動で配信するテスト用プロバイダー。
// Deliverを呼ぶまでセッションは準備完了にならない。
type manualProvider struct {
	mu        sync.Mutex
	listeners []identity.StateListener
}

func (p *manualProvider) LoginURL(state string) string { return "" }

func (p *manualProvider) CompleteSignIn(ctx context.Context, code string) (*model.Identity, error) {
	return nil, errors.New("not implemented")
}

func (p *manualProvider) SignOut(ctx context.Context) error { return nil }

func (p *manualProvider) OnStateChange(fn identity.StateListener) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
	return func() {}
}

// Deliver は登録済みリスナーに状態を通知する。
func (p *manualProvider) Deliver(id *model.Identity) {
	p.mu.Lock()
	fns := append([]identity.StateListener{}, p.listeners...)
	p.mu.Unlock()
	for _, fn := range fns {
		fn(id)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newGuard(provider identity.Provider) (*Guard, *session.Store) {
	sess := session.New(provider, docstore.NewMemoryStore(), testLogger())
	return NewGuard(sess, authz.New(testAdminEmail)), sess
}

func TestGuard_SuspendsUntilReady_SignedIn(t *testing.T) {
	provider := &manualProvider{}
	g, _ := newGuard(provider)

	result := make(chan string, 1)
	go func() {
		got, err := g.BeforeEach(context.Background(), RouteMyLocations)
		if err != nil {
			t.Errorf("BeforeEach failed: %v", err)
		}
		result <- got
	}()

	// ガードは準備完了まで待機しているはず
	select {
	case got := <-result:
		t.Fatalf("guard resolved to %q before session became ready", got)
	case <-time.After(50 * time.Millisecond):
	}

	provider.Deliver(&model.Identity{ID: "u1", Email: "u1@example.com"})

	select {
	case got := <-result:
		if got != RouteMyLocations {
			t.Errorf("BeforeEach = %q, want %q", got, RouteMyLocations)
		}
	case <-time.After(time.Second):
		t.Fatal("guard did not resolve after readiness")
	}
}

func TestGuard_SuspendsUntilReady_SignedOut(t *testing.T) {
	provider := &manualProvider{}
	g, _ := newGuard(provider)

	result := make(chan string, 1)
	go func() {
		got, _ := g.BeforeEach(context.Background(), RouteMyLocations)
		result <- got
	}()

	provider.Deliver(nil)

	select {
	case got := <-result:
		if got != RouteHome {
			t.Errorf("BeforeEach = %q, want redirect to %q", got, RouteHome)
		}
	case <-time.After(time.Second):
		t.Fatal("guard did not resolve after readiness")
	}
}

func TestGuard_AdminRoute_NonAdminRedirected(t *testing.T) {
	provider := &manualProvider{}
	g, _ := newGuard(provider)
	provider.Deliver(&model.Identity{ID: "u1", Email: "not-admin@example.com"})

	got, err := g.BeforeEach(context.Background(), RouteAdminReports)
	if err != nil {
		t.Fatalf("BeforeEach failed: %v", err)
	}
	if got != RouteHome {
		t.Errorf("BeforeEach = %q, want redirect to %q (not a login page)", got, RouteHome)
	}
}

func TestGuard_AdminRoute_AnonymousRedirectedHome(t *testing.T) {
	provider := &manualProvider{}
	g, _ := newGuard(provider)
	provider.Deliver(nil)

	got, err := g.BeforeEach(context.Background(), RouteAdminReports)
	if err != nil {
		t.Fatalf("BeforeEach failed: %v", err)
	}
	if got != RouteHome {
		t.Errorf("BeforeEach = %q, want %q", got, RouteHome)
	}
}

func TestGuard_AdminRoute_AdminAllowed(t *testing.T) {
	provider := &manualProvider{}
	g, _ := newGuard(provider)
	provider.Deliver(&model.Identity{ID: "a1", Email: testAdminEmail})

	got, err := g.BeforeEach(context.Background(), RouteAdminReports)
	if err != nil {
		t.Fatalf("BeforeEach failed: %v", err)
	}
	if got != RouteAdminReports {
		t.Errorf("BeforeEach = %q, want %q", got, RouteAdminReports)
	}
}

func TestGuard_PublicRoute_Anonymous(t *testing.T) {
	provider := &manualProvider{}
	g, _ := newGuard(provider)
	provider.Deliver(nil)

	for _, route := range []string{RouteHome, RouteLocationDetails} {
		got, err := g.BeforeEach(context.Background(), route)
		if err != nil {
			t.Fatalf("BeforeEach(%q) failed: %v", route, err)
		}
		if got != route {
			t.Errorf("BeforeEach(%q) = %q, want unchanged", route, got)
		}
	}
}

func TestGuard_UnknownRoute_PassedThrough(t *testing.T) {
	provider := &manualProvider{}
	g, _ := newGuard(provider)
	provider.Deliver(nil)

	got, err := g.BeforeEach(context.Background(), "about")
	if err != nil {
		t.Fatalf("BeforeEach failed: %v", err)
	}
	if got != "about" {
		t.Errorf("BeforeEach = %q, want %q", got, "about")
	}
}

func TestGuard_ContextCancelledWhileWaiting(t *testing.T) {
	provider := &manualProvider{}
	g, _ := newGuard(provider)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		_, err := g.BeforeEach(ctx, RouteMyLocations)
		result <- err
	}()

	cancel()

	select {
	case err := <-result:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("guard did not resolve after cancellation")
	}
}

func TestFindRoute(t *testing.T) {
	r, ok := FindRoute(RouteAdminReports)
	if !ok {
		t.Fatal("admin-reports route not found")
	}
	if !r.RequiresAuth || !r.RequiresAdmin {
		t.Errorf("admin-reports requirements = auth:%v admin:%v, want both true", r.RequiresAuth, r.RequiresAdmin)
	}

	if _, ok := FindRoute("nope"); ok {
		t.Error("unknown route should not be found")
	}
}
