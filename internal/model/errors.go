// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, data, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated   = "UNAUTHENTICATED"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeRemoteFailure     = "REMOTE_FAILURE"
	ErrCodeValidationFailure = "VALIDATION_FAILURE"
)

// CodeOf はエラーからAPIErrorのコードを取り出す。
// APIErrorでない場合はREMOTE_FAILUREとして扱う。
func CodeOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ErrCodeRemoteFailure
}

// NewUnauthenticatedError は未認証エラーを生成する。
// 認証が必要な操作をidentity不在の状態で呼び出した場合に使用する。
func NewUnauthenticatedError(operation string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  fmt.Sprintf("%sにはサインインが必要です。", operation),
		Category: "auth",
		Action:   "サインインしてから再度お試しください。",
	}
}

// NewUnauthorizedError は権限不足エラーを生成する。
// identityは存在するが認可条件を満たさない場合に使用する。
func NewUnauthorizedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  fmt.Sprintf("この操作を行う権限がありません: %s", reason),
		Category: "auth",
		Action:   "権限のあるアカウントでサインインしてください。",
	}
}

// NewLocationNotFoundError は施設未検出エラーを生成する。
func NewLocationNotFoundError(locationID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("指定された施設が見つかりません: %s", locationID),
		Category: "data",
		Action:   "施設一覧を再読み込みしてください。",
	}
}

// NewReportNotFoundError は通報未検出エラーを生成する。
func NewReportNotFoundError(reportID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("指定された通報が見つかりません: %s", reportID),
		Category: "data",
		Action:   "通報一覧を再読み込みしてください。",
	}
}

// NewPhotoIndexError は写真インデックスの範囲外エラーを生成する。
func NewPhotoIndexError(index, length int) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("指定された位置に写真がありません: %d（全%d枚）", index, length),
		Category: "data",
		Action:   "施設の写真一覧を再読み込みしてください。",
	}
}

// NewRemoteFailureError はリモート呼び出し失敗エラーを生成する。
// 下位のメッセージはコアにとって不透明であり、そのまま保持する。
func NewRemoteFailureError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeRemoteFailure,
		Message:  fmt.Sprintf("サーバーとの通信に失敗しました: %v", err),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailure,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewReportTerminalError は終端状態の通報への遷移試行エラーを生成する。
func NewReportTerminalError(current ReportStatus) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailure,
		Message:  fmt.Sprintf("処理済みの通報は変更できません（現在の状態: %s）。", current),
		Category: "validation",
		Action:   "通報一覧を再読み込みしてください。",
	}
}
