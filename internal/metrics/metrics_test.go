package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPrometheusCollector_RecordsAndExposesMetrics(t *testing.T) {
	c := NewPrometheusCollector()

	c.RecordRemoteOp("locations", "query", nil, 10*time.Millisecond)
	c.RecordRemoteOp("locations", "insert", errors.New("boom"), 5*time.Millisecond)
	c.RecordStaleListDiscard("locations")
	c.RecordPhotoUpload(3)
	c.RecordPhotoUploadFailure()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("metrics handler status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	wantLines := []string{
		`courtspot_remote_ops_total{collection="locations",op="query",result="success"} 1`,
		`courtspot_remote_ops_total{collection="locations",op="insert",result="failure"} 1`,
		`courtspot_stale_list_discard_total{store="locations"} 1`,
		`courtspot_photo_uploads_total 3`,
		`courtspot_photo_upload_fail_total 1`,
	}
	for _, want := range wantLines {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestPrometheusCollector_IndependentRegistries(t *testing.T) {
	// 専用レジストリを使うため、複数インスタンスの生成が衝突しないこと
	c1 := NewPrometheusCollector()
	c2 := NewPrometheusCollector()

	c1.RecordPhotoUpload(1)

	rec := httptest.NewRecorder()
	c2.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if strings.Contains(rec.Body.String(), "courtspot_photo_uploads_total 1") {
		t.Error("collector instances should not share a registry")
	}
}
