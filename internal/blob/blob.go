// Package blob は写真バイト列を保存するコンテンツストアの抽象を提供する。
// 保存したオブジェクトは公開URLで参照できる。
package blob

import (
	"context"
	"io"
)

// Store はコンテンツストアのインターフェース。
// S3互換実装とテスト用インメモリ実装を持つ。
type Store interface {
	// Put は指定キーでオブジェクトを保存し、ハンドルとしてキーを返す。
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)

	// PublicURL はハンドル（キー）から参照用の公開URLを構築する。
	PublicURL(key string) string
}
