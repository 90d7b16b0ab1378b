package blob

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

// TestMemoryStore_PutAndObject は保存したオブジェクトの取得を検証する。
func TestMemoryStore_PutAndObject(t *testing.T) {
	s := NewMemoryStore()

	key, err := s.Put(context.Background(), "locations/loc-1/photo.jpg", bytes.NewReader([]byte("jpeg-bytes")), "image/jpeg")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if key != "locations/loc-1/photo.jpg" {
		t.Errorf("key = %q", key)
	}

	data, ok := s.Object(key)
	if !ok {
		t.Fatal("expected stored object")
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("data = %q", data)
	}
}

// TestMemoryStore_PublicURL は公開URLの構築を検証する。
func TestMemoryStore_PublicURL(t *testing.T) {
	s := NewMemoryStore()

	url := s.PublicURL("locations/loc-1/photo.jpg")
	if !strings.HasPrefix(url, "https://") {
		t.Errorf("PublicURL = %q, want https URL", url)
	}
	if !strings.HasSuffix(url, "locations/loc-1/photo.jpg") {
		t.Errorf("PublicURL = %q, want key suffix", url)
	}
}

// TestMemoryStore_FailNext は注入した障害が1回だけ発生することを検証する。
func TestMemoryStore_FailNext(t *testing.T) {
	s := NewMemoryStore()
	injected := errors.New("upload failed")
	s.FailNext = injected

	if _, err := s.Put(context.Background(), "k", bytes.NewReader(nil), ""); !errors.Is(err, injected) {
		t.Fatalf("expected injected error, got %v", err)
	}

	if _, err := s.Put(context.Background(), "k", bytes.NewReader(nil), ""); err != nil {
		t.Errorf("second Put() error = %v", err)
	}
}

// TestS3Store_PublicURL はS3実装の公開URL解決順序を検証する。
// クライアント構築は行わず、URL構築のみを確認する。
func TestS3Store_PublicURL(t *testing.T) {
	tests := []struct {
		name  string
		store *S3Store
		want  string
	}{
		{
			name:  "public base URL takes precedence",
			store: &S3Store{bucket: "b", region: "us-east-1", endpoint: "http://minio:9000", publicBaseURL: "https://cdn.example.com"},
			want:  "https://cdn.example.com/k",
		},
		{
			name:  "custom endpoint",
			store: &S3Store{bucket: "b", region: "us-east-1", endpoint: "http://minio:9000"},
			want:  "http://minio:9000/b/k",
		},
		{
			name:  "standard s3 URL",
			store: &S3Store{bucket: "b", region: "ca-central-1"},
			want:  "https://b.s3.ca-central-1.amazonaws.com/k",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.store.PublicURL("k"); got != tt.want {
				t.Errorf("PublicURL = %q, want %q", got, tt.want)
			}
		})
	}
}
