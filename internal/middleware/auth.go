// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rioux/courtspot/internal/authz"
	"github.com/rioux/courtspot/internal/model"
	"github.com/rioux/courtspot/internal/nav"
	"github.com/rioux/courtspot/internal/session"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// NewAuthMiddleware はセッションストアのサインイン状態を検証するミドルウェアを返す。
// 起動直後はセッション復元が完了していないことがあるため、判定の前に
// ガード経由で準備完了を待つ。認証済みユーザーIDをリクエストコンテキストに
// 注入する。未認証リクエストには401 Unauthorizedを返す。
func NewAuthMiddleware(sess *session.Store, guard *nav.Guard) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := guard.AwaitReady(r.Context()); err != nil {
				WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewRemoteFailureError(err))
				return
			}
			id := sess.Identity()
			if id == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError("この操作"))
				return
			}
			ctx := context.WithValue(r.Context(), userIDContextKey, id.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewAdminMiddleware は管理者のみ通過させるミドルウェアを返す。
// 認証ミドルウェアと同様にセッションの準備完了を待ってから判定する。
// 認証の有無にかかわらず、管理者条件を満たさないリクエストには403を返す。
func NewAdminMiddleware(sess *session.Store, az *authz.Authorizer, guard *nav.Guard) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := guard.AwaitReady(r.Context()); err != nil {
				WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewRemoteFailureError(err))
				return
			}
			id := sess.Identity()
			if !az.IsAdmin(id) {
				WriteErrorResponse(w, http.StatusForbidden, model.NewUnauthorizedError("管理者権限が必要です"))
				return
			}
			ctx := context.WithValue(r.Context(), userIDContextKey, id.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
