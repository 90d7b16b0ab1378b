// Package model はドメインモデルを定義する。
package model

import "time"

// ReportStatus は通報の処理状態を表す。
// pendingからresolvedまたはdismissedへの遷移のみ許可され、両者は終端状態。
type ReportStatus string

const (
	// ReportStatusPending は未処理の通報状態。
	ReportStatusPending ReportStatus = "pending"
	// ReportStatusResolved は対応済みの終端状態。
	ReportStatusResolved ReportStatus = "resolved"
	// ReportStatusDismissed は棄却された終端状態。
	ReportStatusDismissed ReportStatus = "dismissed"
)

// IsTerminal は終端状態かどうかを返す。
func (s ReportStatus) IsTerminal() bool {
	return s == ReportStatusResolved || s == ReportStatusDismissed
}

// Report は施設への通報を表す。
// 作成は認証済みユーザーなら誰でも可能。状態変更と削除は管理者のみ。
type Report struct {
	ID            string       `json:"id"`
	LocationID    string       `json:"locationId"`
	LocationName  string       `json:"locationName"`
	ReportedBy    string       `json:"reportedBy"`
	ReporterEmail string       `json:"reporterEmail"`
	Reason        string       `json:"reason"`
	Status        ReportStatus `json:"status"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// NewReport は通報作成時の入力を表す。
type NewReport struct {
	LocationID   string `json:"locationId"`
	LocationName string `json:"locationName"`
	Reason       string `json:"reason"`
}
