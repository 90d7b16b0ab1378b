// Package docstore はリモートドキュメントストアの抽象インターフェースを定義する。
// コレクション単位のスキーマレスな永続化サービスに対する
// クエリ・取得・挿入・マージ・削除の操作を提供する。
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// コレクション名
const (
	CollectionUsers     = "users"
	CollectionLocations = "locations"
	CollectionComments  = "comments"
	CollectionReports   = "reports"
)

// serverTime はサーバー時刻センチネルの非公開型。
type serverTime struct{}

// timestampLayout はタイムスタンプの保存形式。RFC3339Nanoは秒未満の
// 末尾ゼロを省略して桁数が揃わないため、ナノ秒を固定9桁で保持し、
// 文字列の辞書順と時刻順を一致させる。
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ServerTimestamp はフィールド値として渡すと書き込み時に
// サーバー側のタイムスタンプへ置換されるセンチネル値。
var ServerTimestamp = serverTime{}

// Filter はフィールドに対する等価述語を表す。
type Filter struct {
	Field string
	Value any
}

// OrderBy は指定フィールドによる並び順を表す。
type OrderBy struct {
	Field string
	Desc  bool
}

// Document はドキュメントIDとフィールド群を保持する。
type Document struct {
	ID     string
	Fields map[string]any
}

// Store はリモートドキュメントストアのインターフェース。
// バックエンド非依存であり、PostgreSQL実装とインメモリ実装を持つ。
type Store interface {
	// Query は条件に一致するドキュメント群を返す。
	// filtersはフィールドの等価述語、orderは単一フィールドの並び順（省略可）。
	Query(ctx context.Context, collection string, filters []Filter, order *OrderBy) ([]Document, error)

	// Get は指定IDのドキュメントを取得する。存在しない場合はnilを返す。
	Get(ctx context.Context, collection, id string) (*Document, error)

	// Insert はドキュメントを新規作成し、採番したIDを返す。
	// ServerTimestampセンチネルは書き込み時のサーバー時刻に置換される。
	Insert(ctx context.Context, collection string, fields map[string]any) (string, error)

	// Merge は指定フィールドのみを浅くマージする。未指定フィールドは維持される。
	// ドキュメントが存在しない場合は新規作成する（upsertセマンティクス）。
	Merge(ctx context.Context, collection, id string, fields map[string]any) error

	// Remove は指定IDのドキュメントを削除する。存在しない場合もエラーにしない。
	Remove(ctx context.Context, collection, id string) error
}

// Decode はドキュメントのフィールド群を構造体にデコードする。
// JSONタグに従いマッピングし、RFC3339文字列はtime.Timeへ変換される。
func Decode(doc Document, v any) error {
	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal document fields: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", doc.ID, err)
	}
	return nil
}

// resolveServerTimestamps はフィールド群のセンチネルを指定時刻に置換した
// 新しいマップを返す。ネストしたマップも走査する。
// 時刻値はtimestampLayoutの固定桁文字列として保存する。
func resolveServerTimestamps(fields map[string]any, now time.Time) map[string]any {
	resolved := make(map[string]any, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case serverTime:
			resolved[k] = now.UTC().Format(timestampLayout)
		case time.Time:
			resolved[k] = val.UTC().Format(timestampLayout)
		case map[string]any:
			resolved[k] = resolveServerTimestamps(val, now)
		default:
			resolved[k] = v
		}
	}
	return resolved
}
