package store

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/rioux/courtspot/internal/docstore"
	"github.com/rioux/courtspot/internal/model"
)

// PhotoFile はアップロード対象の1ファイルを表す。
type PhotoFile struct {
	Name        string
	ContentType string
	Content     io.Reader
}

// UploadPhotos は施設に写真を追加する。
// 現在の写真シーケンスを読み取り、全ファイルを並行アップロードした上で
// 新しいPhotoレコードを末尾に追加して書き戻す。
// 1件でも失敗した場合はシーケンスを変更しない（全件成功か全件失敗か）。
// 成功後、自分の施設一覧を再取得する。
//
// 読み取りから書き戻しまでは非アトミックであり、同一施設の写真を
// 複数クライアントが同時に変更すると後勝ちで上書きされる既知の制限がある。
func (s *LocationStore) UploadPhotos(ctx context.Context, locationID string, files []PhotoFile) error {
	id := s.session.Identity()
	if id == nil {
		err := model.NewUnauthenticatedError("写真のアップロード")
		s.setError(err)
		return err
	}

	if len(files) == 0 {
		apiErr := model.NewValidationError("アップロードするファイルがありません")
		s.setError(apiErr)
		return apiErr
	}

	loc, err := s.getLocation(ctx, locationID)
	if err != nil {
		s.setError(err)
		return err
	}

	photos, err := s.uploadAll(ctx, locationID, id, files)
	if err != nil {
		s.metrics.RecordPhotoUploadFailure()
		s.setError(err)
		return err
	}

	updated := append(append([]model.Photo{}, loc.Photos...), photos...)
	if err := s.writePhotos(ctx, locationID, updated); err != nil {
		s.metrics.RecordPhotoUploadFailure()
		s.setError(err)
		return err
	}

	s.metrics.RecordPhotoUpload(len(photos))
	s.FetchUserLocations(ctx)
	return nil
}

// uploadAll は全ファイルをコンテンツストアへ並行アップロードする。
// 同時実行数はセマフォで制限し、全件の完了を待ってから結果を返す。
// 1件でも失敗した場合は最初のエラーを返す。
func (s *LocationStore) uploadAll(ctx context.Context, locationID string, id *model.Identity, files []PhotoFile) ([]model.Photo, error) {
	sem := make(chan struct{}, s.uploadMaxConcurrent)
	photos := make([]model.Photo, len(files))
	errs := make([]error, len(files))

	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		go func(i int, file PhotoFile) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			photo, err := s.uploadOne(ctx, locationID, id, file)
			if err != nil {
				errs[i] = err
				return
			}
			photos[i] = photo
		}(i, file)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, model.NewRemoteFailureError(err)
		}
	}
	return photos, nil
}

// uploadOne は1ファイルをアップロードしてPhotoレコードを構築する。
// キーは施設IDで名前空間を分け、タイムスタンプと元ファイル名で衝突を避ける。
func (s *LocationStore) uploadOne(ctx context.Context, locationID string, id *model.Identity, file PhotoFile) (model.Photo, error) {
	reader := file.Content
	if s.uploadMaxSize > 0 {
		limited := io.LimitReader(file.Content, s.uploadMaxSize+1)
		data, err := io.ReadAll(limited)
		if err != nil {
			return model.Photo{}, fmt.Errorf("failed to read file %s: %w", file.Name, err)
		}
		if int64(len(data)) > s.uploadMaxSize {
			return model.Photo{}, fmt.Errorf("file %s exceeds maximum size of %d bytes", file.Name, s.uploadMaxSize)
		}
		reader = strings.NewReader(string(data))
	}

	key := fmt.Sprintf("locations/%s/%d_%s", locationID, time.Now().UnixNano(), sanitizeFilename(file.Name))
	handle, err := s.blobs.Put(ctx, key, reader, file.ContentType)
	if err != nil {
		return model.Photo{}, fmt.Errorf("failed to upload %s: %w", file.Name, err)
	}

	return model.Photo{
		URL:        s.blobs.PublicURL(handle),
		UploadedBy: id.ID,
		UploadedAt: time.Now().UTC(),
	}, nil
}

// DeletePhotoAt は指定位置の写真をシーケンスから取り除く。
// 削除できるのはその写真をアップロードした本人のみ。
// 負のインデックスは検証エラー、範囲外はNotFoundとして扱う。
// コンテンツストア上のオブジェクト自体は削除しない。
func (s *LocationStore) DeletePhotoAt(ctx context.Context, locationID string, index int) error {
	id := s.session.Identity()
	if id == nil {
		err := model.NewUnauthenticatedError("写真の削除")
		s.setError(err)
		return err
	}

	if index < 0 {
		apiErr := model.NewValidationError("写真の位置は0以上で指定してください")
		s.setError(apiErr)
		return apiErr
	}

	loc, err := s.getLocation(ctx, locationID)
	if err != nil {
		s.setError(err)
		return err
	}

	if index >= len(loc.Photos) {
		apiErr := model.NewPhotoIndexError(index, len(loc.Photos))
		s.setError(apiErr)
		return apiErr
	}

	if !s.authz.IsOwner(id, loc.Photos[index].UploadedBy) {
		apiErr := model.NewUnauthorizedError("写真を削除できるのはアップロードした本人のみです")
		s.setError(apiErr)
		return apiErr
	}

	updated := append(append([]model.Photo{}, loc.Photos[:index]...), loc.Photos[index+1:]...)
	if err := s.writePhotos(ctx, locationID, updated); err != nil {
		s.setError(err)
		return err
	}

	s.patchLocalPhotos(locationID, updated)
	s.setError(nil)
	return nil
}

// writePhotos は写真シーケンス全体を書き戻す。
func (s *LocationStore) writePhotos(ctx context.Context, locationID string, photos []model.Photo) error {
	fields := map[string]any{
		"photos":    photos,
		"updatedAt": docstore.ServerTimestamp,
	}
	if err := s.docs.Merge(ctx, docstore.CollectionLocations, locationID, fields); err != nil {
		s.logger.Error("failed to write photos", "location_id", locationID, "error", err)
		return model.NewRemoteFailureError(err)
	}
	return nil
}

// patchLocalPhotos はローカルのitems内の該当施設の写真を差し替える。
func (s *LocationStore) patchLocalPhotos(locationID string, photos []model.Photo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == locationID {
			s.items[i].Photos = photos
			return
		}
	}
}

// sanitizeFilename はファイル名からパス要素と危険な文字を取り除く。
func sanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "photo"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, base)
}
