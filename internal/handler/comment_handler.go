package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rioux/courtspot/internal/middleware"
	"github.com/rioux/courtspot/internal/model"
	"github.com/rioux/courtspot/internal/store"
)

// CommentHandler はコメント関連のHTTPハンドラー。
type CommentHandler struct {
	store *store.CommentStore
}

// NewCommentHandler はCommentHandlerを生成する。
func NewCommentHandler(s *store.CommentStore) *CommentHandler {
	return &CommentHandler{store: s}
}

// List は指定施設のコメント一覧を作成日時の降順で返す。
// GET /api/locations/{id}/comments
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	h.store.FetchComments(r.Context(), chi.URLParam(r, "id"))
	if err := h.store.Err(); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}
	writeJSON(w, map[string]any{"comments": h.store.Items()})
}

// Create はコメントを追加する。
// POST /api/locations/{id}/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("リクエストボディを解釈できません"))
		return
	}

	if err := h.store.AddComment(r.Context(), chi.URLParam(r, "id"), input.Text); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"status": "created"})
}

// Delete はコメントを削除する。
// DELETE /api/locations/{id}/comments/{commentID}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteComment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "commentID"))
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "deleted"})
}
