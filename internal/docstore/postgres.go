package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// PostgresStore はPostgreSQLを使用したドキュメントストア。
// 全コレクションを単一のdocumentsテーブル（collection識別子 + jsonb）で保持する。
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore はPostgresStoreを生成する。
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// fieldNamePattern はフィルタ・並び替えに使用できるフィールド名の形式。
// jsonbパス式に埋め込むため、英数字のみを許可する。
var fieldNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]*$`)

// Query は条件に一致するドキュメント群を返す。
func (s *PostgresStore) Query(ctx context.Context, collection string, filters []Filter, order *OrderBy) ([]Document, error) {
	query := `SELECT id, fields FROM documents WHERE collection = $1`
	args := []any{collection}

	for _, f := range filters {
		if !fieldNamePattern.MatchString(f.Field) {
			return nil, fmt.Errorf("invalid filter field: %q", f.Field)
		}
		query += fmt.Sprintf(" AND fields->>$%d = $%d", len(args)+1, len(args)+2)
		args = append(args, f.Field, fmt.Sprintf("%v", f.Value))
	}

	if order != nil {
		if !fieldNamePattern.MatchString(order.Field) {
			return nil, fmt.Errorf("invalid order field: %q", order.Field)
		}
		// jsonbのテキスト抽出値を文字列として並べる。タイムスタンプは
		// timestampLayoutの固定桁で保存しているため、この順序が時刻順になる。
		query += fmt.Sprintf(" ORDER BY fields->>$%d", len(args)+1)
		args = append(args, order.Field)
		if order.Desc {
			query += " DESC"
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		fields := map[string]any{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document %s: %w", id, err)
		}
		docs = append(docs, Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

// Get は指定IDのドキュメントを取得する。存在しない場合はnilを返す。
func (s *PostgresStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT fields FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}

	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document %s: %w", id, err)
	}

	return &Document{ID: id, Fields: fields}, nil
}

// Insert はドキュメントを新規作成し、採番したIDを返す。
func (s *PostgresStore) Insert(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.New().String()

	resolved := resolveServerTimestamps(fields, time.Now().UTC())
	raw, err := json.Marshal(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to marshal fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, fields, created_at, updated_at)
		 VALUES ($1, $2, $3, now(), now())`,
		collection, id, raw,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert document into %s: %w", collection, err)
	}

	return id, nil
}

// Merge は指定フィールドのみを浅くマージする。
// ドキュメントが存在しない場合は新規作成する。
func (s *PostgresStore) Merge(ctx context.Context, collection, id string, fields map[string]any) error {
	resolved := resolveServerTimestamps(fields, time.Now().UTC())
	raw, err := json.Marshal(resolved)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, fields, created_at, updated_at)
		 VALUES ($1, $2, $3, now(), now())
		 ON CONFLICT (collection, id)
		 DO UPDATE SET fields = documents.fields || EXCLUDED.fields, updated_at = now()`,
		collection, id, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to merge document %s/%s: %w", collection, id, err)
	}

	return nil
}

// Remove は指定IDのドキュメントを削除する。
func (s *PostgresStore) Remove(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("failed to remove document %s/%s: %w", collection, id, err)
	}
	return nil
}

// compile-time interface check
var _ Store = (*PostgresStore)(nil)
