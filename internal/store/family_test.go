package store

import (
	"testing"

	"github.com/dukerupert/choreboard/internal/model"
)

func TestFamilyCreate(t *testing.T) {
	fs := NewFamilyStore(setupTestDB(t))

	f, err := fs.Create("The Smiths", "")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	if f.Name != "The Smiths" {
		t.Errorf("name = %q, want %q", f.Name, "The Smiths")
	}
	if f.Timezone != "UTC" {
		t.Errorf("timezone = %q, want UTC", f.Timezone)
	}
	if f.ID == 0 {
		t.Error("expected non-zero ID")
	}
}

func TestFamilyUpdate(t *testing.T) {
	fs := NewFamilyStore(setupTestDB(t))

	f, _ := fs.Create("The Smiths", "UTC")
	updated, err := fs.Update(f.ID, "Smith-Jones", "Europe/Paris")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Smith-Jones" || updated.Timezone != "Europe/Paris" {
		t.Errorf("updated = %+v", updated)
	}
	if loc := updated.Location(); loc.String() != "Europe/Paris" {
		t.Errorf("location = %s, want Europe/Paris", loc)
	}
}

func TestFamilyMembers(t *testing.T) {
	db := setupTestDB(t)
	f, parent := seedFamily(t, db)
	child := addChild(t, db, f.ID, "kid@example.com", "Kid")
	fs := NewFamilyStore(db)

	members, err := fs.ListMembers(f.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("len = %d, want 2", len(members))
	}
	if members[0].UserID != parent.ID || members[0].Role != model.RoleAdmin {
		t.Errorf("members[0] = %+v", members[0])
	}
	if members[1].Name != "Kid" || members[1].Email != "kid@example.com" {
		t.Errorf("members[1] = %+v", members[1])
	}

	m, err := fs.GetMember(f.ID, child.ID)
	if err != nil || m == nil {
		t.Fatalf("get member = %v, %v", m, err)
	}
	if m.Role != model.RoleMember {
		t.Errorf("role = %q, want member", m.Role)
	}

	n, err := fs.CountAdmins(f.ID)
	if err != nil || n != 1 {
		t.Errorf("admins = %d, %v; want 1", n, err)
	}

	promoted, err := fs.UpdateMemberRole(f.ID, child.ID, model.RoleAdmin)
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if promoted.Role != model.RoleAdmin {
		t.Errorf("role = %q, want admin", promoted.Role)
	}

	if err := fs.RemoveMember(f.ID, child.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if m, _ := fs.GetMember(f.ID, child.ID); m != nil {
		t.Error("expected nil after remove")
	}
}

func TestFamilyMemberRoleConstraint(t *testing.T) {
	db := setupTestDB(t)
	f, _ := seedFamily(t, db)
	u, _ := NewUserStore(db).Create("x@example.com", "X", "hash")

	if _, err := NewFamilyStore(db).AddMember(f.ID, u.ID, "overlord"); err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestFamilyListForUser(t *testing.T) {
	db := setupTestDB(t)
	f, u := seedFamily(t, db)
	fs := NewFamilyStore(db)

	other, _ := fs.Create("Grandparents", "UTC")
	if _, err := fs.AddMember(other.ID, u.ID, model.RoleMember); err != nil {
		t.Fatalf("add member: %v", err)
	}

	families, err := fs.ListForUser(u.ID)
	if err != nil {
		t.Fatalf("list for user: %v", err)
	}
	if len(families) != 2 || families[0].ID != f.ID || families[1].ID != other.ID {
		t.Errorf("families = %+v", families)
	}
}
