package authz

import "github.com/rioux/courtspot/internal/model"

// Authorizer はサインイン状態に基づく権限判定を行う。
// 状態を持たず、毎回渡された情報だけで判定する。
type Authorizer struct {
	AdminEmail string
}

// New はAuthorizerを生成する。
func New(adminEmail string) *Authorizer {
	return &Authorizer{AdminEmail: adminEmail}
}

// IsAdmin はサインイン済みかつ管理者メールアドレスと一致するかを返す。
func (a *Authorizer) IsAdmin(id *model.Identity) bool {
	if id == nil {
		return false
	}
	return id.Email != "" && id.Email == a.AdminEmail
}

// IsOwner はサインイン済みかつ対象リソースの所有者かを返す。
func (a *Authorizer) IsOwner(id *model.Identity, ownerID string) bool {
	if id == nil {
		return false
	}
	return id.ID != "" && id.ID == ownerID
}

// CanModify は所有者または管理者かを返す。
func (a *Authorizer) CanModify(id *model.Identity, ownerID string) bool {
	return a.IsOwner(id, ownerID) || a.IsAdmin(id)
}
