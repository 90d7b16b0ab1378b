package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rioux/courtspot/internal/authz"
	"github.com/rioux/courtspot/internal/docstore"
	"github.com/rioux/courtspot/internal/metrics"
	"github.com/rioux/courtspot/internal/model"
	"github.com/rioux/courtspot/internal/security"
	"github.com/rioux/courtspot/internal/session"
)

// ReportStore は通報コレクションのリソースストア。
// 作成は認証済みユーザーなら誰でも可能だが、
// 一覧・状態変更・削除は管理者のみに制限される。
type ReportStore struct {
	docs      docstore.Store
	session   *session.Store
	authz     *authz.Authorizer
	sanitizer security.TextSanitizerService
	metrics   metrics.Collector
	logger    *slog.Logger

	mu        sync.Mutex
	items     []model.Report
	loading   bool
	lastError error
	listSeq   uint64
}

// NewReportStore はReportStoreを生成する。
func NewReportStore(docs docstore.Store, sess *session.Store, az *authz.Authorizer, sanitizer security.TextSanitizerService, collector metrics.Collector, logger *slog.Logger) *ReportStore {
	return &ReportStore{
		docs:      docs,
		session:   sess,
		authz:     az,
		sanitizer: sanitizer,
		metrics:   collector,
		logger:    logger,
	}
}

// Items は現在の取得結果を返す。
func (s *ReportStore) Items() []model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]model.Report, len(s.items))
	copy(items, s.items)
	return items
}

// Loading は取得処理が進行中かを返す。
func (s *ReportStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err は直近の操作エラーを返す。
func (s *ReportStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// FetchReports は全通報を作成日時の降順で取得する。管理者のみ実行できる。
// 失敗時はitemsを変更せず、エラーをエラースロットに記録する。
func (s *ReportStore) FetchReports(ctx context.Context) {
	id := s.session.Identity()
	if id == nil {
		s.setError(model.NewUnauthenticatedError("通報一覧の取得"))
		return
	}
	if !s.authz.IsAdmin(id) {
		s.setError(model.NewUnauthorizedError("通報一覧は管理者のみ閲覧できます"))
		return
	}

	s.mu.Lock()
	s.loading = true
	s.lastError = nil
	s.listSeq++
	seq := s.listSeq
	s.mu.Unlock()

	docs, err := s.docs.Query(ctx, docstore.CollectionReports, nil,
		&docstore.OrderBy{Field: "createdAt", Desc: true})

	var items []model.Report
	if err == nil {
		items = make([]model.Report, 0, len(docs))
		for _, doc := range docs {
			var r model.Report
			if decodeErr := docstore.Decode(doc, &r); decodeErr != nil {
				err = decodeErr
				break
			}
			r.ID = doc.ID
			items = append(items, r)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.listSeq {
		s.metrics.RecordStaleListDiscard("reports")
		return
	}
	s.loading = false
	if err != nil {
		s.logger.Error("failed to fetch reports", "error", err)
		s.lastError = model.NewRemoteFailureError(err)
		return
	}
	s.items = items
}

// AddReport は通報を作成する。状態はpendingで開始する。
// 作成者が管理者の場合のみ一覧を再取得する。
func (s *ReportStore) AddReport(ctx context.Context, input model.NewReport) error {
	id := s.session.Identity()
	if id == nil {
		err := model.NewUnauthenticatedError("通報の作成")
		s.setError(err)
		return err
	}

	reason := s.sanitizer.Sanitize(input.Reason)
	if reason == "" {
		apiErr := model.NewValidationError("通報理由は必須です")
		s.setError(apiErr)
		return apiErr
	}
	if input.LocationID == "" {
		apiErr := model.NewValidationError("通報対象の施設IDは必須です")
		s.setError(apiErr)
		return apiErr
	}

	fields := map[string]any{
		"locationId":    input.LocationID,
		"locationName":  input.LocationName,
		"reportedBy":    id.ID,
		"reporterEmail": id.Email,
		"reason":        reason,
		"status":        string(model.ReportStatusPending),
		"createdAt":     docstore.ServerTimestamp,
	}

	if _, err := s.docs.Insert(ctx, docstore.CollectionReports, fields); err != nil {
		s.logger.Error("failed to add report", "location_id", input.LocationID, "error", err)
		apiErr := model.NewRemoteFailureError(err)
		s.setError(apiErr)
		return apiErr
	}

	s.setError(nil)
	if s.authz.IsAdmin(id) {
		s.FetchReports(ctx)
	}
	return nil
}

// UpdateReportStatus は通報の状態を遷移させる。管理者のみ実行できる。
// 遷移先はresolvedまたはdismissedのみ。終端状態からの遷移は拒否する。
// 成功後、一覧を再取得する。
func (s *ReportStore) UpdateReportStatus(ctx context.Context, reportID string, status model.ReportStatus) error {
	id := s.session.Identity()
	if id == nil {
		err := model.NewUnauthenticatedError("通報状態の変更")
		s.setError(err)
		return err
	}
	if !s.authz.IsAdmin(id) {
		apiErr := model.NewUnauthorizedError("通報状態を変更できるのは管理者のみです")
		s.setError(apiErr)
		return apiErr
	}

	if !status.IsTerminal() {
		apiErr := model.NewValidationError("遷移先にはresolvedまたはdismissedを指定してください")
		s.setError(apiErr)
		return apiErr
	}

	report, err := s.getReport(ctx, reportID)
	if err != nil {
		s.setError(err)
		return err
	}
	if report.Status.IsTerminal() {
		apiErr := model.NewReportTerminalError(report.Status)
		s.setError(apiErr)
		return apiErr
	}

	fields := map[string]any{"status": string(status)}
	if err := s.docs.Merge(ctx, docstore.CollectionReports, reportID, fields); err != nil {
		s.logger.Error("failed to update report status", "report_id", reportID, "error", err)
		apiErr := model.NewRemoteFailureError(err)
		s.setError(apiErr)
		return apiErr
	}

	s.FetchReports(ctx)
	return nil
}

// DeleteReport は通報を削除する。管理者のみ実行できる。
// 削除後はローカルのitemsから該当IDを取り除く。
func (s *ReportStore) DeleteReport(ctx context.Context, reportID string) error {
	id := s.session.Identity()
	if id == nil {
		err := model.NewUnauthenticatedError("通報の削除")
		s.setError(err)
		return err
	}
	if !s.authz.IsAdmin(id) {
		apiErr := model.NewUnauthorizedError("通報を削除できるのは管理者のみです")
		s.setError(apiErr)
		return apiErr
	}

	if err := s.docs.Remove(ctx, docstore.CollectionReports, reportID); err != nil {
		s.logger.Error("failed to delete report", "report_id", reportID, "error", err)
		apiErr := model.NewRemoteFailureError(err)
		s.setError(apiErr)
		return apiErr
	}

	s.mu.Lock()
	filtered := s.items[:0:0]
	for _, item := range s.items {
		if item.ID != reportID {
			filtered = append(filtered, item)
		}
	}
	s.items = filtered
	s.lastError = nil
	s.mu.Unlock()

	return nil
}

// getReport は指定IDの通報を取得する。存在しない場合はNotFoundエラー。
func (s *ReportStore) getReport(ctx context.Context, reportID string) (*model.Report, error) {
	doc, err := s.docs.Get(ctx, docstore.CollectionReports, reportID)
	if err != nil {
		return nil, model.NewRemoteFailureError(err)
	}
	if doc == nil {
		return nil, model.NewReportNotFoundError(reportID)
	}
	var r model.Report
	if err := docstore.Decode(*doc, &r); err != nil {
		return nil, model.NewRemoteFailureError(err)
	}
	r.ID = doc.ID
	return &r, nil
}

func (s *ReportStore) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err
}
