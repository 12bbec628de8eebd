package authorize

import (
	"errors"
	"testing"
)

func TestIsValidDomain(t *testing.T) {
	tests := []struct {
		name     string
		domain   Domain
		expected bool
	}{
		// Valid domains
		{"sys domain", DomainSys, true},
		{"wildcard domain", WildcardDomain, true},
		{"valid user domain", Domain("user:550e8400-e29b-41d4-a716-446655440000"), true},

		// Invalid domains
		{"empty domain", Domain(""), false},
		{"random string", Domain("random"), false},
		{"user without uuid", Domain("user:"), false},
		{"user with invalid uuid", Domain("user:not-a-uuid"), false},
		{"uuid-shaped garbage", Domain("user:------------------------------------"), false},
		{"unknown prefix", Domain("clinic:550e8400-e29b-41d4-a716-446655440000"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidDomain(tt.domain)
			if result != tt.expected {
				t.Errorf("IsValidDomain(%q) = %v, want %v", tt.domain, result, tt.expected)
			}
		})
	}
}

func TestUserDomain(t *testing.T) {
	userID := "550e8400-e29b-41d4-a716-446655440000"
	expected := Domain("user:550e8400-e29b-41d4-a716-446655440000")

	result := UserDomain(userID)
	if result != expected {
		t.Errorf("UserDomain(%q) = %q, want %q", userID, result, expected)
	}
}

func TestRBACRoleForAccount(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"patient", RoleSysPatient, false},
		{"Doctor", RoleSysDoctor, false},
		{"admin", RoleSysAdmin, false},
		{"therapist", "", true},
	}

	for _, tt := range tests {
		got, err := RBACRoleForAccount(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("RBACRoleForAccount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidArgs) {
			t.Errorf("RBACRoleForAccount(%q) error must wrap ErrInvalidArgs", tt.in)
		}
		if got != tt.want {
			t.Errorf("RBACRoleForAccount(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultPoliciesUseKnownConstants(t *testing.T) {
	for _, p := range DefaultPolicies() {
		if _, ok := KnownRoles[p.Subject]; !ok {
			t.Errorf("policy %+v uses unknown role", p)
		}
		if _, ok := KnownResources[p.Object]; !ok && p.Object != WildcardResource {
			t.Errorf("policy %+v uses unknown resource", p)
		}
		if _, ok := KnownActions[p.Action]; !ok && p.Action != WildcardAction {
			t.Errorf("policy %+v uses unknown action", p)
		}
		if !IsValidDomain(p.Domain) {
			t.Errorf("policy %+v uses invalid domain", p)
		}
	}
}
