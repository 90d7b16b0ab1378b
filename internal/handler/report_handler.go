package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rioux/courtspot/internal/middleware"
	"github.com/rioux/courtspot/internal/model"
	"github.com/rioux/courtspot/internal/store"
)

// ReportHandler は通報関連のHTTPハンドラー。
// 作成は認証済みユーザー、一覧・状態変更・削除は管理者のみ。
type ReportHandler struct {
	store *store.ReportStore
}

// NewReportHandler はReportHandlerを生成する。
func NewReportHandler(s *store.ReportStore) *ReportHandler {
	return &ReportHandler{store: s}
}

// Create は通報を作成する。
// POST /api/reports
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input model.NewReport
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("リクエストボディを解釈できません"))
		return
	}

	if err := h.store.AddReport(r.Context(), input); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"status": "created"})
}

// List は全通報の一覧を作成日時の降順で返す。
// GET /api/reports
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	h.store.FetchReports(r.Context())
	if err := h.store.Err(); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}
	writeJSON(w, map[string]any{"reports": h.store.Items()})
}

// UpdateStatus は通報の状態を遷移させる。
// PATCH /api/reports/{id}/status
func (h *ReportHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Status model.ReportStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("リクエストボディを解釈できません"))
		return
	}

	if err := h.store.UpdateReportStatus(r.Context(), chi.URLParam(r, "id"), input.Status); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "updated"})
}

// Delete は通報を削除する。
// DELETE /api/reports/{id}
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteReport(r.Context(), chi.URLParam(r, "id")); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "deleted"})
}
