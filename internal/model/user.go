// Package model はドメインモデルを定義する。
package model

import "time"

// Identity は認証済みユーザーの識別情報を表す。
// IDプロバイダー（Google）から取得した安定したユーザーID、
// 表示名、メールアドレス、アバターURLを保持する。
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoUrl"`
}

// UserProfile はusersコレクションに保存するユーザープロフィールを表す。
// サインイン成功のたびにマージセマンティクスでupsertされる。
// ペイロードに含まれないフィールドは既存の値が維持される。
type UserProfile struct {
	DisplayName  string    `json:"displayName"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	PhotoURL     string    `json:"photoUrl"`
	LastSignInAt time.Time `json:"lastSignInAt"`
}
