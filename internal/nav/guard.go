// Package nav はルート遷移のガードを実装する。
// セッションの準備完了を待ってから、認証・管理者要件に基づき
// 遷移先を決定する。
package nav

import (
	"context"
	"sync"

	"github.com/rioux/courtspot/internal/authz"
	"github.com/rioux/courtspot/internal/session"
)

// ルート名
const (
	RouteHome            = "home"
	RouteCreateLocation  = "create-location"
	RouteMyLocations     = "my-locations"
	RouteLocationDetails = "location-details"
	RouteAdminReports    = "admin-reports"
)

// Route は1つの画面ルートと進入要件を表す。
type Route struct {
	Name          string
	Path          string
	RequiresAuth  bool
	RequiresAdmin bool
}

// Routes はアプリケーションのルート表。
var Routes = []Route{
	{Name: RouteHome, Path: "/"},
	{Name: RouteCreateLocation, Path: "/locations/new", RequiresAuth: true},
	{Name: RouteMyLocations, Path: "/my-locations", RequiresAuth: true},
	{Name: RouteLocationDetails, Path: "/locations/{id}"},
	{Name: RouteAdminReports, Path: "/admin/reports", RequiresAuth: true, RequiresAdmin: true},
}

// FindRoute はルート名からルートを検索する。
func FindRoute(name string) (Route, bool) {
	for _, r := range Routes {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}

// Guard はルート遷移前の認可判定を行う。
type Guard struct {
	session *session.Store
	authz   *authz.Authorizer
}

// NewGuard はGuardを生成する。
func NewGuard(sess *session.Store, az *authz.Authorizer) *Guard {
	return &Guard{session: sess, authz: az}
}

// BeforeEach は遷移先ルート名を受け取り、実際に遷移すべきルート名を返す。
// セッションが準備完了になるまで待機してから判定する。
// 管理者要件は認証状態にかかわらず先に判定し、満たさない場合はホームへ
// リダイレクトする。認証要件を満たさない場合も同様にホームへ。
// 未知のルート名はそのまま通す。
func (g *Guard) BeforeEach(ctx context.Context, target string) (string, error) {
	if err := g.AwaitReady(ctx); err != nil {
		return "", err
	}

	route, ok := FindRoute(target)
	if !ok {
		return target, nil
	}

	id := g.session.Identity()

	if route.RequiresAdmin && !g.authz.IsAdmin(id) {
		return RouteHome, nil
	}
	if route.RequiresAuth && id == nil {
		return RouteHome, nil
	}
	return target, nil
}

// AwaitReady はセッションの準備完了まで待機する。
// 待機は呼び出しごとに一度きりで、解決後は必ず購読を解除する。
// 認証系ミドルウェアからも、サインイン状態の判定前に呼び出される。
func (g *Guard) AwaitReady(ctx context.Context) error {
	if g.session.Ready() {
		return nil
	}

	ch := make(chan struct{})
	var once sync.Once
	unsub := g.session.Subscribe(func() {
		if g.session.Ready() {
			once.Do(func() { close(ch) })
		}
	})
	defer unsub()

	// 購読前にreadyになっていた場合の取りこぼしを防ぐ
	if g.session.Ready() {
		return nil
	}

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
