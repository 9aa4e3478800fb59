package security

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	v := NewURL()

	tests := []struct {
		name    string
		url     string
		blocked bool
	}{
		{"public https", "https://docs.example.com/api", false},
		{"public http", "http://docs.example.com", false},
		{"public with port", "https://docs.example.com:8443/api", false},
		{"ftp scheme", "ftp://docs.example.com", true},
		{"file scheme", "file:///etc/passwd", true},
		{"no scheme", "docs.example.com/api", true},
		{"empty host", "https://", true},
		{"localhost", "http://localhost:8080/admin", true},
		{"localhost mixed case", "http://LocalHost/", true},
		{"loopback ip", "http://127.0.0.1/", true},
		{"loopback range", "http://127.1.2.3/", true},
		{"ipv6 loopback", "http://[::1]/", true},
		{"mapped loopback", "http://[::ffff:127.0.0.1]/", true},
		{"private 10", "http://10.0.0.5/", true},
		{"private 172", "http://172.16.0.1/", true},
		{"private 192", "http://192.168.1.1/", true},
		{"link local metadata", "http://169.254.169.254/latest/meta-data", true},
		{"gcp metadata host", "http://metadata.google.internal/computeMetadata/v1/", true},
		{"unspecified", "http://0.0.0.0/", true},
		{"public ip", "http://93.184.216.34/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.url)
			if tt.blocked && err == nil {
				t.Errorf("Validate(%q) allowed, want blocked", tt.url)
			}
			if !tt.blocked && err != nil {
				t.Errorf("Validate(%q) = %v, want allowed", tt.url, err)
			}
		})
	}
}

func TestValidateAllowLoopback(t *testing.T) {
	v := NewURLAllowLoopback()

	for _, target := range []string{"http://127.0.0.1:8080/", "http://localhost:8080/"} {
		if err := v.Validate(target); err != nil {
			t.Errorf("Validate(%q) = %v, want allowed with loopback enabled", target, err)
		}
	}

	// Loopback permission does not open up private ranges.
	if err := v.Validate("http://10.0.0.5/"); err == nil {
		t.Error("private IP allowed by loopback validator")
	}
	if err := v.Validate("http://metadata.google.internal/"); err == nil {
		t.Error("metadata host allowed by loopback validator")
	}
}

func TestSafeDialContextBlocksPrivateIPs(t *testing.T) {
	v := NewURL()

	for _, addr := range []string{"10.0.0.5:80", "169.254.169.254:80", "127.0.0.1:80"} {
		_, err := v.safeDialContext(t.Context(), "tcp", addr)
		if err == nil || !strings.Contains(err.Error(), "SSRF blocked") {
			t.Errorf("dial %s: err = %v, want SSRF block", addr, err)
		}
	}
}

func TestSafeTransportConfigured(t *testing.T) {
	tr := NewURL().SafeTransport()
	if tr.DialContext == nil {
		t.Fatal("SafeTransport has no custom dialer")
	}
}
