// Package identity はIDプロバイダーによる認証を提供する。
// プロバイダーの内部プロトコルは対象外であり、観測可能な出力
// （サインイン済みのidentityと状態変化通知）のみを契約とする。
package identity

import (
	"context"

	"github.com/rioux/courtspot/internal/model"
)

// StateListener はサインイン状態の変化通知を受け取る。
// サインアウト状態はnilで通知される。
type StateListener func(identity *model.Identity)

// Provider はIDプロバイダーのインターフェース。
// 将来的に複数IdP（Google, GitHub等）に対応するための抽象化。
type Provider interface {
	// LoginURL は対話的サインインの認証URLを生成する。
	LoginURL(state string) string

	// CompleteSignIn は認可コードを交換してサインインを完了し、
	// 取得したidentityを現在の状態として保持・通知する。
	CompleteSignIn(ctx context.Context, code string) (*model.Identity, error)

	// SignOut はプロバイダーセッションを破棄し、nilを通知する。
	SignOut(ctx context.Context) error

	// OnStateChange は状態変化リスナーを登録し、解除関数を返す。
	// 登録時点の現在状態（サインイン済みか否かに関わらず）が
	// 最初の通知として非同期に1回配信される。
	OnStateChange(fn StateListener) (unsubscribe func())
}
