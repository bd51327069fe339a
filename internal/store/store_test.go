package store

import (
	"database/sql"
	"testing"

	"github.com/dukerupert/choreboard/internal/database"
	"github.com/dukerupert/choreboard/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedFamily creates a family with an admin user and returns both.
func seedFamily(t *testing.T, db *sql.DB) (*model.Family, *model.User) {
	t.Helper()
	fs := NewFamilyStore(db)
	us := NewUserStore(db)

	f, err := fs.Create("The Smiths", "America/Chicago")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	u, err := us.Create("parent@example.com", "Pat", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := fs.AddMember(f.ID, u.ID, model.RoleAdmin); err != nil {
		t.Fatalf("add member: %v", err)
	}
	return f, u
}

func addChild(t *testing.T, db *sql.DB, familyID int64, email, name string) *model.User {
	t.Helper()
	u, err := NewUserStore(db).Create(email, name, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := NewFamilyStore(db).AddMember(familyID, u.ID, model.RoleMember); err != nil {
		t.Fatalf("add member: %v", err)
	}
	return u
}
