package enums

import "testing"

func TestParseUserRole(t *testing.T) {
	role, err := ParseUserRole("admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !role.IsAdmin() {
		t.Fatalf("expected admin role, got %q", role)
	}
	if _, err := ParseUserRole("Admin"); err == nil {
		t.Fatal("role parsing is case-sensitive")
	}
	if UserRole("root").IsValid() {
		t.Fatal("unknown role must be invalid")
	}
	if UserRoleUser.IsAdmin() {
		t.Fatal("default role must not be admin")
	}
}

func TestParseTurnRole(t *testing.T) {
	for _, raw := range []string{"user", "model"} {
		role, err := ParseTurnRole(raw)
		if err != nil {
			t.Fatalf("ParseTurnRole(%q) returned error: %v", raw, err)
		}
		if role.String() != raw {
			t.Fatalf("expected %q, got %q", raw, role)
		}
	}
	if _, err := ParseTurnRole("assistant"); err == nil {
		t.Fatal("expected error for unknown turn role")
	}
}
