// Package model はドメインモデルを定義する。
package model

import "time"

// Comment は施設へのコメントを表す。
// UIからは追記のみ可能で、表示は作成日時の降順。
type Comment struct {
	ID              string    `json:"id"`
	LocationID      string    `json:"locationId"`
	UserID          string    `json:"userId"`
	UserDisplayName string    `json:"userDisplayName"`
	Text            string    `json:"text"`
	CreatedAt       time.Time `json:"createdAt"`
}
