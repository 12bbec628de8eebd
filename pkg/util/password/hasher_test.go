package password

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"valid", "session2024", nil},
		{"too short", "a1b2", ErrTooShort},
		{"too long", strings.Repeat("a1", 65), ErrTooLong},
		{"letters only", "onlyletters", ErrTooWeak},
		{"digits only", "1234567890", ErrTooWeak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.in); !errors.Is(err, tt.want) {
				t.Errorf("Validate(%q) = %v, want %v", tt.in, err, tt.want)
			}
		})
	}
}

func TestHasher(t *testing.T) {
	h := NewHasher(LowMemoryConfig())

	hash, err := h.Hash("patient-pass-1")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if err := h.Verify(hash, "patient-pass-1"); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
	if err := h.Verify(hash, "wrong-pass-1"); !errors.Is(err, ErrMismatch) {
		t.Errorf("Verify() wrong password = %v, want ErrMismatch", err)
	}
	if h.NeedsRehash(hash) {
		t.Error("NeedsRehash() should be false for the hasher's own params")
	}

	defaultHash, _ := Hash("patient-pass-1")
	if !h.NeedsRehash(defaultHash) {
		t.Error("NeedsRehash() should be true for a hash made with other params")
	}
}

func TestNewHasherFillsZeroConfig(t *testing.T) {
	h := NewHasher(Config{})
	if h.params.Memory != DefaultParams().Memory || h.params.KeyLength != DefaultParams().KeyLength {
		t.Errorf("zero config should fall back to defaults, got %+v", h.params)
	}
}
