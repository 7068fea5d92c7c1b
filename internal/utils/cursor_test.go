package utils_test

import (
	"testing"
	"time"

	"github.com/bsebcampus/campus-api/internal/utils"
)

func TestNoteCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	cursor, err := utils.EncodeNoteCursor(createdAt, "note-42")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := utils.DecodeNoteCursor(cursor)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if !decoded.CreatedAt.Equal(createdAt) || decoded.ID != "note-42" {
		t.Errorf("round trip changed the cursor: %+v", decoded)
	}
}

func TestDecodeNoteCursorRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		cursor string
	}{
		{"empty", ""},
		{"not_base64", "!!!"},
		{"not_json", "bm90LWpzb24"},
		{"missing_fields", "e30"},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			if _, err := utils.DecodeNoteCursor(tt.cursor); err == nil {
				t.Fatalf("cursor %q decoded without error", tt.cursor)
			}
		})
	}
}

func TestIsUUID(t *testing.T) {
	if !utils.IsUUID("2b1c6f0a-58b7-4c9e-9f74-38d5f3a1c111") {
		t.Error("valid uuid rejected")
	}

	if utils.IsUUID("not-a-uuid") {
		t.Error("garbage accepted as uuid")
	}
}
