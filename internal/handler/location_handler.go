package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rioux/courtspot/internal/middleware"
	"github.com/rioux/courtspot/internal/model"
	"github.com/rioux/courtspot/internal/store"
)

// LocationHandler は施設関連のHTTPハンドラー。
// 写真サブリソースのエンドポイントも含む。
type LocationHandler struct {
	store *store.LocationStore
}

// NewLocationHandler はLocationHandlerを生成する。
func NewLocationHandler(s *store.LocationStore) *LocationHandler {
	return &LocationHandler{store: s}
}

// List は全施設の一覧を返す。
// GET /api/locations
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	h.store.FetchLocations(r.Context())
	if err := h.store.Err(); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}
	writeJSON(w, map[string]any{"locations": h.store.Items()})
}

// ListMine は自分が作成した施設の一覧を返す。
// GET /api/locations/my
func (h *LocationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	h.store.FetchUserLocations(r.Context())
	if err := h.store.Err(); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}
	writeJSON(w, map[string]any{"locations": h.store.Items()})
}

// Create は施設を新規登録する。
// POST /api/locations
func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input model.NewLocation
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("リクエストボディを解釈できません"))
		return
	}

	id, err := h.store.AddLocation(r.Context(), input)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": id})
}

// Update は施設を部分更新する。
// PATCH /api/locations/{id}
func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.LocationPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("リクエストボディを解釈できません"))
		return
	}

	if err := h.store.UpdateLocation(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "updated"})
}

// Delete は施設を削除する。
// DELETE /api/locations/{id}
func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteLocation(r.Context(), chi.URLParam(r, "id")); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "deleted"})
}

// UploadPhotos は施設に写真をアップロードする。
// POST /api/locations/{id}/photos （multipart/form-data、フィールド名 photos）
func (h *LocationHandler) UploadPhotos(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("multipartフォームを解釈できません"))
		return
	}

	fileHeaders := r.MultipartForm.File["photos"]
	files := make([]store.PhotoFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			middleware.WriteAPIError(w, model.NewValidationError("アップロードファイルを開けません"))
			return
		}
		defer f.Close()
		files = append(files, store.PhotoFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     f,
		})
	}

	if err := h.store.UploadPhotos(r.Context(), chi.URLParam(r, "id"), files); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}
	writeJSON(w, map[string]any{"status": "uploaded", "count": len(files)})
}

// ImportPhoto は外部URLから画像を取り込んで施設の写真として追加する。
// POST /api/locations/{id}/photos/import
func (h *LocationHandler) ImportPhoto(w http.ResponseWriter, r *http.Request) {
	var input struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("リクエストボディを解釈できません"))
		return
	}

	if err := h.store.AddPhotoFromURL(r.Context(), chi.URLParam(r, "id"), input.URL); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "imported"})
}

// DeletePhoto は指定位置の写真を削除する。
// DELETE /api/locations/{id}/photos/{index}
func (h *LocationHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndex(chi.URLParam(r, "index"))
	if err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("写真の位置は整数で指定してください"))
		return
	}

	if err := h.store.DeletePhotoAt(r.Context(), chi.URLParam(r, "id"), index); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "deleted"})
}

func parseIndex(s string) (int, error) {
	return strconv.Atoi(s)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
