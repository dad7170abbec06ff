package permission

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hitoshi/konsfekt/internal/model"
)

const testTable = `{
	"/api/products": "user",
	"/api/products/create": "maintainer",
	"/api/users": "admin",
	"/api/stats": "maintainer"
}`

func TestParse(t *testing.T) {
	e, err := Parse([]byte(testTable))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !e.Contains("/api/products") {
		t.Error("expected /api/products to be registered")
	}
	if e.Contains("/api/unknown") {
		t.Error("did not expect /api/unknown to be registered")
	}

	role, ok := e.RequiredRole("/api/users")
	if !ok || role != model.RoleAdmin {
		t.Errorf("RequiredRole(/api/users) = %v, %v, want admin, true", role, ok)
	}
}

func TestParse_InvalidRole(t *testing.T) {
	if _, err := Parse([]byte(`{"/api/x": "superuser"}`)); err == nil {
		t.Error("expected error for unknown role name")
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	if _, err := Parse([]byte(`{not json`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "permissions.json")
	if err := os.WriteFile(path, []byte(testTable), 0o600); err != nil {
		t.Fatalf("failed to write test table: %v", err)
	}

	e, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !e.Contains("/api/stats") {
		t.Error("expected /api/stats to be registered")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/permissions.json"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCheckAccess(t *testing.T) {
	e, err := Parse([]byte(testTable))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	tests := []struct {
		name string
		path string
		role model.Role
		want bool
	}{
		{"exact role allowed", "/api/products/create", model.RoleMaintainer, true},
		{"higher role allowed", "/api/products/create", model.RoleAdmin, true},
		{"lower role denied", "/api/products/create", model.RoleUser, false},
		{"admin-only path denies maintainer", "/api/users", model.RoleMaintainer, false},
		{"user path allows user", "/api/products", model.RoleUser, true},
		{"unregistered path fails open", "/api/anything", model.RoleUser, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.CheckAccess(tt.path, tt.role); got != tt.want {
				t.Errorf("CheckAccess(%q, %v) = %v, want %v", tt.path, tt.role, got, tt.want)
			}
		})
	}
}

// アクセス可否がロール順序について単調であること。
func TestCheckAccess_Monotonic(t *testing.T) {
	e, err := Parse([]byte(testTable))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	roles := []model.Role{model.RoleUser, model.RoleBot, model.RoleMaintainer, model.RoleAdmin}

	for _, path := range e.Paths() {
		allowedBefore := false
		for _, role := range roles {
			allowed := e.CheckAccess(path, role)
			if allowedBefore && !allowed {
				t.Errorf("access to %q revoked for higher role %v", path, role)
			}
			allowedBefore = allowed
		}
	}
}

func TestPaths_Sorted(t *testing.T) {
	e, err := Parse([]byte(testTable))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	paths := e.Paths()
	if len(paths) != 4 {
		t.Fatalf("len(paths) = %d, want 4", len(paths))
	}
	for i := 1; i < len(paths); i++ {
		if paths[i-1] >= paths[i] {
			t.Errorf("paths not sorted: %q >= %q", paths[i-1], paths[i])
		}
	}
}
