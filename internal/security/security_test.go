package security

import (
	"testing"
	"time"
)

func TestValidateEndpoint(t *testing.T) {
	g := NewOutboundGuard()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid https URL", "https://appapi2.test.bankid.com/rp/v6.0", false},
		{"http rejected", "http://example.com", true},
		{"empty URL", "", true},
		{"missing host", "https://", true},
		{"javascript scheme", "javascript:alert(1)", true},
		{"malformed URL", "https://%zz", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.ValidateEndpoint(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEndpoint(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestNewSafeClient(t *testing.T) {
	g := NewOutboundGuard()

	client := g.NewSafeClient(10 * time.Second)
	if client == nil {
		t.Fatal("expected non-nil client")
	}
	if client.Timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", client.Timeout)
	}
}

func TestSanitizeText(t *testing.T) {
	s := NewInputSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text passes", "Kaffe 12kr", "Kaffe 12kr"},
		{"script tag removed", `<script>alert(1)</script>Kaffe`, "Kaffe"},
		{"html stripped", "<b>Choklad</b>", "Choklad"},
		{"whitespace trimmed", "  Läsk  ", "Läsk"},
		{"empty input", "", ""},
		{"img onerror removed", `<img src=x onerror=alert(1)>Bulle`, "Bulle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// 冪等性: 一度サニタイズした出力を再度通しても変化しないこと。
func TestSanitizeText_Idempotent(t *testing.T) {
	s := NewInputSanitizer()

	inputs := []string{"Kaffe", "<p>nested <b>tags</b></p>", "  spaces  "}
	for _, input := range inputs {
		once := s.SanitizeText(input)
		twice := s.SanitizeText(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}
