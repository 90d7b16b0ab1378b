package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/rioux/courtspot/internal/model"
)

// AddPhotoFromURL は外部URLから画像を取得して施設の写真として追加する。
// 取得前にSSRF防止の検証を行い、SSRF防止機能付きクライアントで取得する。
// 画像以外のコンテンツタイプと最大サイズ超過は拒否する。
func (s *LocationStore) AddPhotoFromURL(ctx context.Context, locationID, rawURL string) error {
	id := s.session.Identity()
	if id == nil {
		err := model.NewUnauthenticatedError("写真の取り込み")
		s.setError(err)
		return err
	}

	if err := s.ssrfGuard.ValidateURL(rawURL); err != nil {
		apiErr := model.NewValidationError(fmt.Sprintf("取り込み元URLが不正です: %v", err))
		s.setError(apiErr)
		return apiErr
	}

	loc, err := s.getLocation(ctx, locationID)
	if err != nil {
		s.setError(err)
		return err
	}

	file, err := s.fetchImage(ctx, rawURL)
	if err != nil {
		s.metrics.RecordPhotoUploadFailure()
		s.setError(err)
		return err
	}

	photo, err := s.uploadOne(ctx, locationID, id, file)
	if err != nil {
		s.metrics.RecordPhotoUploadFailure()
		apiErr := model.NewRemoteFailureError(err)
		s.setError(apiErr)
		return apiErr
	}

	updated := append(append([]model.Photo{}, loc.Photos...), photo)
	if err := s.writePhotos(ctx, locationID, updated); err != nil {
		s.metrics.RecordPhotoUploadFailure()
		s.setError(err)
		return err
	}

	s.metrics.RecordPhotoUpload(1)
	s.FetchUserLocations(ctx)
	return nil
}

// fetchImage は画像を取得してPhotoFileとして返す。
func (s *LocationStore) fetchImage(ctx context.Context, rawURL string) (PhotoFile, error) {
	client := s.photoClient
	if client == nil {
		client = s.ssrfGuard.NewSafeClient(s.photoFetchTimeout)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return PhotoFile{}, model.NewValidationError(fmt.Sprintf("取り込み元URLが不正です: %v", err))
	}

	resp, err := client.Do(req)
	if err != nil {
		return PhotoFile{}, model.NewRemoteFailureError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return PhotoFile{}, model.NewRemoteFailureError(fmt.Errorf("image fetch returned status %d", resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return PhotoFile{}, model.NewValidationError(fmt.Sprintf("画像ではないコンテンツです: %s", contentType))
	}

	limit := s.uploadMaxSize
	if limit <= 0 {
		limit = 10 << 20
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return PhotoFile{}, model.NewRemoteFailureError(err)
	}
	if int64(len(data)) > limit {
		return PhotoFile{}, model.NewValidationError(fmt.Sprintf("画像が最大サイズ（%dバイト）を超えています", limit))
	}

	return PhotoFile{
		Name:        filenameFromURL(rawURL),
		ContentType: contentType,
		Content:     strings.NewReader(string(data)),
	}, nil
}

// filenameFromURL はURLのパス末尾からファイル名を導出する。
func filenameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "photo"
	}
	base := path.Base(parsed.Path)
	if base == "." || base == "/" || base == "" {
		return "photo"
	}
	return base
}
