package store

import (
	"context"
	"testing"

	"github.com/rioux/courtspot/internal/authz"
	"github.com/rioux/courtspot/internal/docstore"
	"github.com/rioux/courtspot/internal/metrics"
	"github.com/rioux/courtspot/internal/model"
	"github.com/rioux/courtspot/internal/security"
)

func newTestReportStore(t *testing.T, docs docstore.Store, id *model.Identity) *ReportStore {
	t.Helper()
	return NewReportStore(docs, newTestSession(t, docs, id), authz.New(testAdminEmail), security.NewTextSanitizer(), metrics.NopCollector{}, testLogger())
}

func seedReport(t *testing.T, docs docstore.Store, status model.ReportStatus) string {
	t.Helper()
	id, err := docs.Insert(context.Background(), docstore.CollectionReports, map[string]any{
		"locationId":    "loc1",
		"locationName":  "Court A",
		"reportedBy":    "u1",
		"reporterEmail": "u1@example.com",
		"reason":        "閉鎖されています",
		"status":        string(status),
		"createdAt":     "2026-08-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("failed to seed report: %v", err)
	}
	return id
}

func adminIdentity() *model.Identity {
	return &model.Identity{ID: "a1", Email: testAdminEmail}
}

func TestReportStore_AddReport(t *testing.T) {
	docs := docstore.NewMemoryStore()
	s := newTestReportStore(t, docs, &model.Identity{ID: "u1", Email: "u1@example.com"})

	err := s.AddReport(context.Background(), model.NewReport{
		LocationID:   "loc1",
		LocationName: "Court A",
		Reason:       "存在しない施設です",
	})
	if err != nil {
		t.Fatalf("AddReport failed: %v", err)
	}

	stored, _ := docs.Query(context.Background(), docstore.CollectionReports, nil, nil)
	if len(stored) != 1 {
		t.Fatalf("stored reports = %d, want 1", len(stored))
	}
	fields := stored[0].Fields
	if fields["status"] != string(model.ReportStatusPending) {
		t.Errorf("status = %v, want pending", fields["status"])
	}
	if fields["reportedBy"] != "u1" {
		t.Errorf("reportedBy = %v, want u1", fields["reportedBy"])
	}
	if fields["reporterEmail"] != "u1@example.com" {
		t.Errorf("reporterEmail = %v", fields["reporterEmail"])
	}
}

func TestReportStore_AddReport_Unauthenticated(t *testing.T) {
	docs := docstore.NewMemoryStore()
	s := newTestReportStore(t, docs, nil)

	err := s.AddReport(context.Background(), model.NewReport{LocationID: "loc1", Reason: "reason"})
	if got := model.CodeOf(err); got != model.ErrCodeUnauthenticated {
		t.Errorf("error code = %s, want %s", got, model.ErrCodeUnauthenticated)
	}

	stored, _ := docs.Query(context.Background(), docstore.CollectionReports, nil, nil)
	if len(stored) != 0 {
		t.Errorf("remote store received %d writes, want 0", len(stored))
	}
}

func TestReportStore_AddReport_Validation(t *testing.T) {
	docs := docstore.NewMemoryStore()
	s := newTestReportStore(t, docs, &model.Identity{ID: "u1", Email: "u1@example.com"})

	err := s.AddReport(context.Background(), model.NewReport{LocationID: "loc1", Reason: ""})
	if got := model.CodeOf(err); got != model.ErrCodeValidationFailure {
		t.Errorf("empty reason error code = %s, want %s", got, model.ErrCodeValidationFailure)
	}

	err = s.AddReport(context.Background(), model.NewReport{LocationID: "", Reason: "reason"})
	if got := model.CodeOf(err); got != model.ErrCodeValidationFailure {
		t.Errorf("empty locationId error code = %s, want %s", got, model.ErrCodeValidationFailure)
	}
}

func TestReportStore_FetchReports_AdminOnly(t *testing.T) {
	docs := docstore.NewMemoryStore()
	seedReport(t, docs, model.ReportStatusPending)

	nonAdmin := newTestReportStore(t, docs, &model.Identity{ID: "u1", Email: "not-admin@example.com"})
	nonAdmin.FetchReports(context.Background())
	if got := model.CodeOf(nonAdmin.Err()); got != model.ErrCodeUnauthorized {
		t.Errorf("non-admin error code = %s, want %s", got, model.ErrCodeUnauthorized)
	}
	if len(nonAdmin.Items()) != 0 {
		t.Errorf("non-admin items = %d, want 0", len(nonAdmin.Items()))
	}

	admin := newTestReportStore(t, docs, adminIdentity())
	admin.FetchReports(context.Background())
	if admin.Err() != nil {
		t.Fatalf("admin FetchReports failed: %v", admin.Err())
	}
	if len(admin.Items()) != 1 {
		t.Errorf("admin items = %d, want 1", len(admin.Items()))
	}
	if admin.Loading() {
		t.Error("loading should be false after fetch")
	}
}

func TestReportStore_UpdateReportStatus_Transitions(t *testing.T) {
	for _, target := range []model.ReportStatus{model.ReportStatusResolved, model.ReportStatusDismissed} {
		t.Run(string(target), func(t *testing.T) {
			docs := docstore.NewMemoryStore()
			s := newTestReportStore(t, docs, adminIdentity())
			id := seedReport(t, docs, model.ReportStatusPending)

			if err := s.UpdateReportStatus(context.Background(), id, target); err != nil {
				t.Fatalf("UpdateReportStatus failed: %v", err)
			}

			doc, _ := docs.Get(context.Background(), docstore.CollectionReports, id)
			if doc.Fields["status"] != string(target) {
				t.Errorf("status = %v, want %s", doc.Fields["status"], target)
			}
		})
	}
}

func TestReportStore_UpdateReportStatus_TerminalStatesRejected(t *testing.T) {
	for _, current := range []model.ReportStatus{model.ReportStatusResolved, model.ReportStatusDismissed} {
		t.Run(string(current), func(t *testing.T) {
			docs := docstore.NewMemoryStore()
			s := newTestReportStore(t, docs, adminIdentity())
			id := seedReport(t, docs, current)

			err := s.UpdateReportStatus(context.Background(), id, model.ReportStatusResolved)
			if got := model.CodeOf(err); got != model.ErrCodeValidationFailure {
				t.Errorf("error code = %s, want %s", got, model.ErrCodeValidationFailure)
			}

			doc, _ := docs.Get(context.Background(), docstore.CollectionReports, id)
			if doc.Fields["status"] != string(current) {
				t.Errorf("status changed from terminal state: %v", doc.Fields["status"])
			}
		})
	}
}

func TestReportStore_UpdateReportStatus_InvalidTarget(t *testing.T) {
	docs := docstore.NewMemoryStore()
	s := newTestReportStore(t, docs, adminIdentity())
	id := seedReport(t, docs, model.ReportStatusPending)

	err := s.UpdateReportStatus(context.Background(), id, model.ReportStatusPending)
	if got := model.CodeOf(err); got != model.ErrCodeValidationFailure {
		t.Errorf("error code = %s, want %s", got, model.ErrCodeValidationFailure)
	}
}

func TestReportStore_UpdateReportStatus_NonAdminRejected(t *testing.T) {
	docs := docstore.NewMemoryStore()
	s := newTestReportStore(t, docs, &model.Identity{ID: "u1", Email: "u1@example.com"})
	id := seedReport(t, docs, model.ReportStatusPending)

	err := s.UpdateReportStatus(context.Background(), id, model.ReportStatusResolved)
	if got := model.CodeOf(err); got != model.ErrCodeUnauthorized {
		t.Errorf("error code = %s, want %s", got, model.ErrCodeUnauthorized)
	}
}

func TestReportStore_UpdateReportStatus_NotFound(t *testing.T) {
	docs := docstore.NewMemoryStore()
	s := newTestReportStore(t, docs, adminIdentity())

	err := s.UpdateReportStatus(context.Background(), "missing", model.ReportStatusResolved)
	if got := model.CodeOf(err); got != model.ErrCodeNotFound {
		t.Errorf("error code = %s, want %s", got, model.ErrCodeNotFound)
	}
}

func TestReportStore_DeleteReport(t *testing.T) {
	docs := docstore.NewMemoryStore()
	s := newTestReportStore(t, docs, adminIdentity())
	id := seedReport(t, docs, model.ReportStatusPending)

	s.FetchReports(context.Background())
	if len(s.Items()) != 1 {
		t.Fatalf("setup: items = %d, want 1", len(s.Items()))
	}

	if err := s.DeleteReport(context.Background(), id); err != nil {
		t.Fatalf("DeleteReport failed: %v", err)
	}

	if len(s.Items()) != 0 {
		t.Errorf("items = %d entries after delete, want 0", len(s.Items()))
	}
	doc, _ := docs.Get(context.Background(), docstore.CollectionReports, id)
	if doc != nil {
		t.Error("document still present after delete")
	}
}

func TestReportStore_DeleteReport_NonAdminRejected(t *testing.T) {
	docs := docstore.NewMemoryStore()
	s := newTestReportStore(t, docs, &model.Identity{ID: "u1", Email: "u1@example.com"})
	id := seedReport(t, docs, model.ReportStatusPending)

	err := s.DeleteReport(context.Background(), id)
	if got := model.CodeOf(err); got != model.ErrCodeUnauthorized {
		t.Errorf("error code = %s, want %s", got, model.ErrCodeUnauthorized)
	}
}
