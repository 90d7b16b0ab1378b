package security

import (
	"testing"
	"time"
)

func TestSSRFGuard_ValidateURL(t *testing.T) {
	g := NewSSRFGuard()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid https URL", "https://photos.example.com/court.jpg", false},
		{"valid http URL", "http://photos.example.com/court.jpg", false},
		{"empty URL", "", true},
		{"ftp scheme", "ftp://example.com/file.jpg", true},
		{"file scheme", "file:///etc/passwd", true},
		{"javascript scheme", "javascript:alert(1)", true},
		{"localhost", "http://localhost/photo.png", true},
		{"localhost uppercase", "http://LOCALHOST/photo.png", true},
		{"loopback IP", "http://127.0.0.1/photo.png", true},
		{"private IP 10.x", "http://10.0.0.5/photo.png", true},
		{"private IP 172.16.x", "http://172.16.0.1/photo.png", true},
		{"private IP 192.168.x", "http://192.168.1.1/photo.png", true},
		{"metadata IP", "http://169.254.169.254/latest/meta-data/", true},
		{"current network", "http://0.0.0.0/photo.png", true},
		{"IPv6 loopback", "http://[::1]/photo.png", true},
		{"public IP", "http://93.184.216.34/photo.png", false},
		{"no host", "https:///photo.png", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestSSRFGuard_NewSafeClient(t *testing.T) {
	g := NewSSRFGuard()

	client := g.NewSafeClient(5 * time.Second)
	if client == nil {
		t.Fatal("NewSafeClient returned nil")
	}
	if client.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", client.Timeout)
	}
}
