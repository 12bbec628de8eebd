package phone

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		region string
		want   string
		err    error
	}{
		{"iran national format", "0912 345 6789", "IR", "+989123456789", nil},
		{"already e164", "+989123456789", "US", "+989123456789", nil},
		{"us number", "(415) 555-2671", "us", "+14155552671", nil},
		{"empty", "  ", "IR", "", ErrInvalid},
		{"garbage", "not-a-phone", "IR", "", ErrInvalid},
		{"too short", "0912", "IR", "", ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw, tt.region)
			if !errors.Is(err, tt.err) {
				t.Fatalf("Normalize(%q) error = %v, want %v", tt.raw, err, tt.err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestIsMobile(t *testing.T) {
	if !IsMobile("+989123456789") {
		t.Error("expected Iranian 0912 prefix to be mobile")
	}
	if IsMobile("bogus") {
		t.Error("unparseable input must not be mobile")
	}
}
