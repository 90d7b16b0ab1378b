package docstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestMemoryStore_InsertAndGet は挿入したドキュメントの取得を検証する。
func TestMemoryStore_InsertAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.Insert(ctx, CollectionLocations, map[string]any{
		"name":      "Court A",
		"createdAt": ServerTimestamp,
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty id")
	}

	doc, err := s.Get(ctx, CollectionLocations, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc == nil {
		t.Fatal("expected document, got nil")
	}
	if doc.Fields["name"] != "Court A" {
		t.Errorf("name = %v, want Court A", doc.Fields["name"])
	}

	// ServerTimestampセンチネルが時刻文字列に置換されていること
	ts, ok := doc.Fields["createdAt"].(string)
	if !ok {
		t.Fatalf("createdAt should be a normalized string, got %T", doc.Fields["createdAt"])
	}
	if _, err := time.Parse(time.RFC3339Nano, ts); err != nil {
		t.Errorf("createdAt is not RFC3339: %v", err)
	}
}

// TestMemoryStore_GetAbsent は存在しないドキュメントでnilが返ることを検証する。
func TestMemoryStore_GetAbsent(t *testing.T) {
	s := NewMemoryStore()

	doc, err := s.Get(context.Background(), CollectionLocations, "missing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc != nil {
		t.Errorf("expected nil for absent document, got %+v", doc)
	}
}

// TestMemoryStore_QueryFilterAndOrder はフィルタと降順並び替えを検証する。
func TestMemoryStore_QueryFilterAndOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i, c := range []struct {
		locationID string
		text       string
		createdAt  string
	}{
		{"loc-1", "first", "2025-01-01T00:00:00Z"},
		{"loc-1", "second", "2025-01-02T00:00:00Z"},
		{"loc-2", "other", "2025-01-03T00:00:00Z"},
	} {
		_, err := s.Insert(ctx, CollectionComments, map[string]any{
			"locationId": c.locationID,
			"text":       c.text,
			"createdAt":  c.createdAt,
		})
		if err != nil {
			t.Fatalf("Insert(%d) error = %v", i, err)
		}
	}

	docs, err := s.Query(ctx, CollectionComments,
		[]Filter{{Field: "locationId", Value: "loc-1"}},
		&OrderBy{Field: "createdAt", Desc: true},
	)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].Fields["text"] != "second" {
		t.Errorf("first result = %v, want second (createdAt desc)", docs[0].Fields["text"])
	}
}

// TestMemoryStore_QueryOrderMixedPrecisionTimestamps は秒未満の桁数が
// 揃っていないタイムスタンプ同士でも時刻順に並ぶことを検証する。
// 辞書順比較では "10:00:00Z" が "10:00:00.5Z" より後になってしまう。
func TestMemoryStore_QueryOrderMixedPrecisionTimestamps(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	older, err := s.Insert(ctx, CollectionReports, map[string]any{
		"reason":    "older",
		"createdAt": "2026-08-31T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	newer, err := s.Insert(ctx, CollectionReports, map[string]any{
		"reason":    "newer",
		"createdAt": "2026-08-31T10:00:00.5Z",
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	docs, err := s.Query(ctx, CollectionReports, nil, &OrderBy{Field: "createdAt", Desc: true})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID != newer {
		t.Errorf("first result = %s (createdAt=%v), want newer %s", docs[0].ID, docs[0].Fields["createdAt"], newer)
	}
	if docs[1].ID != older {
		t.Errorf("second result = %s, want older %s", docs[1].ID, older)
	}
}

// TestMemoryStore_ServerTimestampFixedWidth はセンチネルが固定桁の
// タイムスタンプ文字列として保存されることを検証する。
func TestMemoryStore_ServerTimestampFixedWidth(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.Insert(ctx, CollectionComments, map[string]any{"createdAt": ServerTimestamp})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	doc, err := s.Get(ctx, CollectionComments, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	ts, ok := doc.Fields["createdAt"].(string)
	if !ok {
		t.Fatalf("createdAt should be a string, got %T", doc.Fields["createdAt"])
	}
	parsed, err := time.Parse(timestampLayout, ts)
	if err != nil {
		t.Fatalf("createdAt %q is not in the fixed-width layout: %v", ts, err)
	}
	if got := parsed.UTC().Format(timestampLayout); got != ts {
		t.Errorf("createdAt %q does not round-trip the layout: %q", ts, got)
	}
}

// TestMemoryStore_MergeUpsert はマージのupsertセマンティクスを検証する。
func TestMemoryStore_MergeUpsert(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	// 存在しないIDへのマージは新規作成になる
	if err := s.Merge(ctx, CollectionUsers, "user-1", map[string]any{
		"displayName": "Jo",
		"email":       "jo@example.com",
	}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	// 部分マージで未指定フィールドが維持される
	if err := s.Merge(ctx, CollectionUsers, "user-1", map[string]any{
		"displayName": "Joanne",
	}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	doc, err := s.Get(ctx, CollectionUsers, "user-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc.Fields["displayName"] != "Joanne" {
		t.Errorf("displayName = %v, want Joanne", doc.Fields["displayName"])
	}
	if doc.Fields["email"] != "jo@example.com" {
		t.Errorf("email = %v, want preserved jo@example.com", doc.Fields["email"])
	}
}

// TestMemoryStore_Remove は削除と、存在しないIDの削除が成功することを検証する。
func TestMemoryStore_Remove(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.Insert(ctx, CollectionReports, map[string]any{"reason": "dup"})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if err := s.Remove(ctx, CollectionReports, id); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	doc, err := s.Get(ctx, CollectionReports, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc != nil {
		t.Error("expected document to be removed")
	}

	// 既に存在しないIDの削除はエラーにならない
	if err := s.Remove(ctx, CollectionReports, id); err != nil {
		t.Errorf("Remove() of absent id error = %v", err)
	}
}

// TestMemoryStore_FailNext は注入した障害が1回だけ発生することを検証する。
func TestMemoryStore_FailNext(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	injected := errors.New("connection reset")
	s.FailNext = injected

	if _, err := s.Query(ctx, CollectionLocations, nil, nil); !errors.Is(err, injected) {
		t.Fatalf("expected injected error, got %v", err)
	}

	// 2回目は成功する
	if _, err := s.Query(ctx, CollectionLocations, nil, nil); err != nil {
		t.Errorf("second Query() error = %v", err)
	}
}

// TestDecode はドキュメントから構造体へのデコードを検証する。
func TestDecode(t *testing.T) {
	doc := Document{
		ID: "loc-1",
		Fields: map[string]any{
			"name":           "Court A",
			"numberOfCourts": float64(2),
			"isIndoor":       true,
			"coordinates":    map[string]any{"lat": 45.5, "lng": -73.6},
			"createdAt":      "2025-01-01T00:00:00Z",
		},
	}

	var out struct {
		Name           string    `json:"name"`
		NumberOfCourts int       `json:"numberOfCourts"`
		IsIndoor       bool      `json:"isIndoor"`
		Coordinates    struct{ Lat, Lng float64 } `json:"coordinates"`
		CreatedAt      time.Time `json:"createdAt"`
	}
	if err := Decode(doc, &out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if out.Name != "Court A" || out.NumberOfCourts != 2 || !out.IsIndoor {
		t.Errorf("decoded = %+v", out)
	}
	if out.Coordinates.Lat != 45.5 {
		t.Errorf("lat = %v, want 45.5", out.Coordinates.Lat)
	}
	if out.CreatedAt.IsZero() {
		t.Error("createdAt should be parsed")
	}
}
