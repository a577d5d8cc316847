package api

import "testing"

func TestNormalizeLimitOffset(t *testing.T) {
	tests := []struct {
		name       string
		limit      int
		offset     int
		wantLimit  int
		wantOffset int
	}{
		{name: "defaults", limit: 0, offset: 0, wantLimit: 50, wantOffset: 0},
		{name: "negative offset", limit: 25, offset: -5, wantLimit: 25, wantOffset: 0},
		{name: "negative limit", limit: -1, offset: 3, wantLimit: 50, wantOffset: 3},
		{name: "capped", limit: 10000, offset: 0, wantLimit: 500, wantOffset: 0},
		{name: "pass through", limit: 10, offset: 2, wantLimit: 10, wantOffset: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset := normalizeLimitOffset(tt.limit, tt.offset)
			if limit != tt.wantLimit || offset != tt.wantOffset {
				t.Fatalf("expected (%d, %d), got (%d, %d)", tt.wantLimit, tt.wantOffset, limit, offset)
			}
		})
	}
}

func TestParseIntDefault(t *testing.T) {
	if got := parseIntDefault(" 7 ", 1); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	if got := parseIntDefault("seven", 1); got != 1 {
		t.Fatalf("expected fallback, got %d", got)
	}
	if got := parseIntDefault("", 3); got != 3 {
		t.Fatalf("expected fallback for empty, got %d", got)
	}
}
