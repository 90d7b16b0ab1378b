// Package store はリソースストアを実装する。
// 各ストアは1つのリモートコレクションに対応し、取得結果・読み込み中フラグ・
// 直近エラーを保持して、CRUD操作のたびにローカル状態をリモートと同期する。
package store

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rioux/courtspot/internal/authz"
	"github.com/rioux/courtspot/internal/blob"
	"github.com/rioux/courtspot/internal/docstore"
	"github.com/rioux/courtspot/internal/metrics"
	"github.com/rioux/courtspot/internal/model"
	"github.com/rioux/courtspot/internal/security"
	"github.com/rioux/courtspot/internal/session"
)

// LocationDeps はLocationStoreの依存をまとめる。
type LocationDeps struct {
	Docs       docstore.Store
	Blobs      blob.Store
	Session    *session.Store
	Authorizer *authz.Authorizer
	Sanitizer  security.TextSanitizerService
	SSRFGuard  security.SSRFGuardService
	Metrics    metrics.Collector
	Logger     *slog.Logger

	// 写真アップロードの同時実行数と1ファイルの最大サイズ
	UploadMaxConcurrent int
	UploadMaxSize       int64

	// URL取り込み時のHTTPタイムアウト
	PhotoFetchTimeout time.Duration
}

// LocationStore は施設コレクションのリソースストア。
// 写真サブリソースの管理（photos.go、photo_fetch.go）もこのストアが担う。
type LocationStore struct {
	docs      docstore.Store
	blobs     blob.Store
	session   *session.Store
	authz     *authz.Authorizer
	sanitizer security.TextSanitizerService
	ssrfGuard security.SSRFGuardService
	metrics   metrics.Collector
	logger    *slog.Logger

	uploadMaxConcurrent int
	uploadMaxSize       int64
	photoFetchTimeout   time.Duration

	// テストで差し替えるためのフック。nilならSSRF防止クライアントを使う。
	photoClient *http.Client

	mu        sync.Mutex
	items     []model.Location
	loading   bool
	lastError error
	listSeq   uint64
}

// NewLocationStore はLocationStoreを生成する。
func NewLocationStore(deps LocationDeps) *LocationStore {
	if deps.UploadMaxConcurrent <= 0 {
		deps.UploadMaxConcurrent = 4
	}
	if deps.PhotoFetchTimeout <= 0 {
		deps.PhotoFetchTimeout = 10 * time.Second
	}
	return &LocationStore{
		docs:                deps.Docs,
		blobs:               deps.Blobs,
		session:             deps.Session,
		authz:               deps.Authorizer,
		sanitizer:           deps.Sanitizer,
		ssrfGuard:           deps.SSRFGuard,
		metrics:             deps.Metrics,
		logger:              deps.Logger,
		uploadMaxConcurrent: deps.UploadMaxConcurrent,
		uploadMaxSize:       deps.UploadMaxSize,
		photoFetchTimeout:   deps.PhotoFetchTimeout,
	}
}

// Items は現在の取得結果を返す。
func (s *LocationStore) Items() []model.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]model.Location, len(s.items))
	copy(items, s.items)
	return items
}

// Loading は取得処理が進行中かを返す。
func (s *LocationStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err は直近の操作エラーを返す。
func (s *LocationStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// FetchLocations は全施設を取得してitemsを置き換える。
// 失敗時はitemsを変更せず、エラーをエラースロットに記録する。
func (s *LocationStore) FetchLocations(ctx context.Context) {
	s.runList(ctx, nil, &docstore.OrderBy{Field: "createdAt", Desc: true})
}

// FetchUserLocations は現在のユーザーが作成した施設のみを取得する。
func (s *LocationStore) FetchUserLocations(ctx context.Context) {
	id := s.session.Identity()
	if id == nil {
		s.setError(model.NewUnauthenticatedError("自分の施設一覧の取得"))
		return
	}
	s.runList(ctx, []docstore.Filter{{Field: "createdBy", Value: id.ID}}, &docstore.OrderBy{Field: "createdAt", Desc: true})
}

// runList はlist操作の共通処理。読み込みフラグは成功・失敗どちらの経路でも
// 必ず解除される。新しいlistが開始された後に完了した古い応答は破棄する。
func (s *LocationStore) runList(ctx context.Context, filters []docstore.Filter, order *docstore.OrderBy) {
	s.mu.Lock()
	s.loading = true
	s.lastError = nil
	s.listSeq++
	seq := s.listSeq
	s.mu.Unlock()

	docs, err := s.docs.Query(ctx, docstore.CollectionLocations, filters, order)

	var items []model.Location
	if err == nil {
		items, err = decodeLocations(docs)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.listSeq {
		s.metrics.RecordStaleListDiscard("locations")
		return
	}
	s.loading = false
	if err != nil {
		s.logger.Error("failed to fetch locations", "error", err)
		s.lastError = model.NewRemoteFailureError(err)
		return
	}
	s.items = items
}

func decodeLocations(docs []docstore.Document) ([]model.Location, error) {
	items := make([]model.Location, 0, len(docs))
	for _, doc := range docs {
		var loc model.Location
		if err := docstore.Decode(doc, &loc); err != nil {
			return nil, err
		}
		loc.ID = doc.ID
		items = append(items, loc)
	}
	return items, nil
}

// AddLocation は施設を新規登録し、採番されたIDを返す。
// 登録後の一覧再取得は行わない。登録直後に詳細画面へ遷移する呼び出し側が
// 必要に応じて取得するためである。
func (s *LocationStore) AddLocation(ctx context.Context, input model.NewLocation) (string, error) {
	id := s.session.Identity()
	if id == nil {
		err := model.NewUnauthenticatedError("施設の登録")
		s.setError(err)
		return "", err
	}

	if err := validateNewLocation(input); err != nil {
		s.setError(err)
		return "", err
	}

	fields := map[string]any{
		"name":           s.sanitizer.Sanitize(input.Name),
		"description":    s.sanitizer.Sanitize(input.Description),
		"address":        s.sanitizer.Sanitize(input.Address),
		"numberOfCourts": input.NumberOfCourts,
		"surfaceType":    input.SurfaceType,
		"isIndoor":       input.IsIndoor,
		"coordinates":    map[string]any{"lat": input.Coordinates.Lat, "lng": input.Coordinates.Lng},
		"photos":         []model.Photo{},
		"createdBy":      id.ID,
		"createdAt":      docstore.ServerTimestamp,
		"updatedAt":      docstore.ServerTimestamp,
	}

	newID, err := s.docs.Insert(ctx, docstore.CollectionLocations, fields)
	if err != nil {
		s.logger.Error("failed to add location", "error", err)
		apiErr := model.NewRemoteFailureError(err)
		s.setError(apiErr)
		return "", apiErr
	}

	s.setError(nil)
	return newID, nil
}

func validateNewLocation(input model.NewLocation) error {
	if input.Name == "" {
		return model.NewValidationError("施設名は必須です")
	}
	if input.NumberOfCourts <= 0 {
		return model.NewValidationError("コート数は1以上で指定してください")
	}
	return nil
}

// UpdateLocation は施設を部分更新する。所有者または管理者のみ実行できる。
// 更新後、自分の施設一覧を再取得する。
func (s *LocationStore) UpdateLocation(ctx context.Context, locationID string, patch model.LocationPatch) error {
	id := s.session.Identity()
	if id == nil {
		err := model.NewUnauthenticatedError("施設の更新")
		s.setError(err)
		return err
	}

	loc, err := s.getLocation(ctx, locationID)
	if err != nil {
		s.setError(err)
		return err
	}

	if !s.authz.CanModify(id, loc.CreatedBy) {
		apiErr := model.NewUnauthorizedError("施設を更新できるのは作成者のみです")
		s.setError(apiErr)
		return apiErr
	}

	fields := map[string]any{"updatedAt": docstore.ServerTimestamp}
	if patch.Name != nil {
		fields["name"] = s.sanitizer.Sanitize(*patch.Name)
	}
	if patch.Description != nil {
		fields["description"] = s.sanitizer.Sanitize(*patch.Description)
	}
	if patch.Address != nil {
		fields["address"] = s.sanitizer.Sanitize(*patch.Address)
	}
	if patch.NumberOfCourts != nil {
		if *patch.NumberOfCourts <= 0 {
			apiErr := model.NewValidationError("コート数は1以上で指定してください")
			s.setError(apiErr)
			return apiErr
		}
		fields["numberOfCourts"] = *patch.NumberOfCourts
	}
	if patch.SurfaceType != nil {
		fields["surfaceType"] = *patch.SurfaceType
	}
	if patch.IsIndoor != nil {
		fields["isIndoor"] = *patch.IsIndoor
	}
	if patch.Coordinates != nil {
		fields["coordinates"] = map[string]any{"lat": patch.Coordinates.Lat, "lng": patch.Coordinates.Lng}
	}

	if err := s.docs.Merge(ctx, docstore.CollectionLocations, locationID, fields); err != nil {
		s.logger.Error("failed to update location", "location_id", locationID, "error", err)
		apiErr := model.NewRemoteFailureError(err)
		s.setError(apiErr)
		return apiErr
	}

	s.FetchUserLocations(ctx)
	return nil
}

// DeleteLocation は施設を削除する。所有者または管理者のみ実行できる。
// 削除後はローカルのitemsから該当IDを取り除く。再取得は不要であり、
// 他のフィールドがサーバー計算値に依存しないためローカル除去で十分である。
func (s *LocationStore) DeleteLocation(ctx context.Context, locationID string) error {
	id := s.session.Identity()
	if id == nil {
		err := model.NewUnauthenticatedError("施設の削除")
		s.setError(err)
		return err
	}

	loc, err := s.getLocation(ctx, locationID)
	if err != nil {
		s.setError(err)
		return err
	}

	if !s.authz.CanModify(id, loc.CreatedBy) {
		apiErr := model.NewUnauthorizedError("施設を削除できるのは作成者のみです")
		s.setError(apiErr)
		return apiErr
	}

	if err := s.docs.Remove(ctx, docstore.CollectionLocations, locationID); err != nil {
		s.logger.Error("failed to delete location", "location_id", locationID, "error", err)
		apiErr := model.NewRemoteFailureError(err)
		s.setError(apiErr)
		return apiErr
	}

	s.mu.Lock()
	filtered := s.items[:0:0]
	for _, item := range s.items {
		if item.ID != locationID {
			filtered = append(filtered, item)
		}
	}
	s.items = filtered
	s.lastError = nil
	s.mu.Unlock()

	return nil
}

// getLocation は指定IDの施設を取得する。存在しない場合はNotFoundエラー。
func (s *LocationStore) getLocation(ctx context.Context, locationID string) (*model.Location, error) {
	doc, err := s.docs.Get(ctx, docstore.CollectionLocations, locationID)
	if err != nil {
		return nil, model.NewRemoteFailureError(err)
	}
	if doc == nil {
		return nil, model.NewLocationNotFoundError(locationID)
	}
	var loc model.Location
	if err := docstore.Decode(*doc, &loc); err != nil {
		return nil, model.NewRemoteFailureError(err)
	}
	loc.ID = doc.ID
	return &loc, nil
}

func (s *LocationStore) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err
}
