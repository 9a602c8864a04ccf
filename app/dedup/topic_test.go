package dedup

import (
	"strings"
	"testing"
)

func TestTopicKey(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Billing Issues", "billing-issue"},
		{"billing issue", "billing-issue"},
		{"  The billing   issues!!", "billing-issue"},
		{"Café Menu -- Prices", "cafe-menu-price"},
		{"API rate-limits", "api-rate-limit"},
		{"Pricing for SSO", "pricing-sso"},
		{"Status", "status"},
		{"Companies", "company"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		if got := TopicKey(tt.label); got != tt.want {
			t.Errorf("TopicKey(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestTopicKey_Bounded(t *testing.T) {
	label := strings.Repeat("integration ", 20)
	key := TopicKey(label)
	if len(key) > MaxTopicKeyLength {
		t.Errorf("Key length %d exceeds %d", len(key), MaxTopicKeyLength)
	}
	if strings.HasSuffix(key, "-") {
		t.Errorf("Key should not end with a separator: %q", key)
	}

	long := TopicKey(strings.Repeat("x", 100))
	if len(long) != MaxTopicKeyLength {
		t.Errorf("Expected single long word truncated to %d, got %d", MaxTopicKeyLength, len(long))
	}
}

func TestTopicKey_Deterministic(t *testing.T) {
	for i := 0; i < 5; i++ {
		if TopicKey("Onboarding Emails") != TopicKey("onboarding email") {
			t.Fatal("Equivalent labels should collapse to one key")
		}
	}
}
