package instrumentation

import "testing"

func TestExtractUserDomain(t *testing.T) {
	tests := []struct {
		email    string
		expected string
	}{
		{"jane@example.com", "example.com"},
		{"test@subdomain.example.com", "subdomain.example.com"},
		{"invalid", "unknown"},
		{"", "unknown"},
		{"@", "unknown"},
		{"user@", "unknown"},
		{"@domain.com", "domain.com"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			result := ExtractUserDomain(tt.email)
			if result != tt.expected {
				t.Errorf("ExtractUserDomain(%q) = %q, want %q", tt.email, result, tt.expected)
			}
		})
	}
}

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		pattern  string
		expected string
	}{
		{"", "unmatched"},
		{"GET /read_appointments", "/read_appointments"},
		{"DELETE /delete_appointment/{event_id}", "/delete_appointment/{event_id}"},
		{"/healthz", "/healthz"},
		{"GET example.com/readyz", "/readyz"},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			if got := RouteLabel(tt.pattern); got != tt.expected {
				t.Errorf("RouteLabel(%q) = %q, want %q", tt.pattern, got, tt.expected)
			}
		})
	}
}
