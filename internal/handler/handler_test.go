package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/choreboard/internal/auth"
	"github.com/dukerupert/choreboard/internal/chore"
	"github.com/dukerupert/choreboard/internal/database"
	"github.com/dukerupert/choreboard/internal/model"
	"github.com/dukerupert/choreboard/internal/store"
	"github.com/dukerupert/choreboard/internal/websocket"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv is a family with an admin parent and a member kid.
type testEnv struct {
	db       *sql.DB
	users    *store.UserStore
	families *store.FamilyStore
	sessions *store.SessionStore
	chores   *store.ChoreStore
	rewards  *store.RewardStore
	hub      *websocket.Hub
	family   *model.Family
	parent   *model.User
	kid      *model.User
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	e := &testEnv{
		db:       db,
		users:    store.NewUserStore(db),
		families: store.NewFamilyStore(db),
		sessions: store.NewSessionStore(db),
		chores:   store.NewChoreStore(db),
		rewards:  store.NewRewardStore(db),
		hub:      websocket.NewHub(discardLogger()),
	}

	e.family, err = e.families.Create("The Smiths", "America/Chicago")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	e.parent = e.addUser(t, e.family.ID, "parent@example.com", "Pat", model.RoleAdmin)
	e.kid = e.addUser(t, e.family.ID, "kid@example.com", "Kid", model.RoleMember)
	return e
}

func (e *testEnv) addUser(t *testing.T, familyID int64, email, name, role string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u, err := e.users.Create(email, name, string(hash))
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := e.families.AddMember(familyID, u.ID, role); err != nil {
		t.Fatalf("add member: %v", err)
	}
	return u
}

func (e *testEnv) asParent() auth.AuthContext {
	return auth.AuthContext{UserID: e.parent.ID, FamilyID: e.family.ID, Role: model.RoleAdmin}
}

func (e *testEnv) asKid() auth.AuthContext {
	return auth.AuthContext{UserID: e.kid.ID, FamilyID: e.family.ID, Role: model.RoleMember}
}

func (e *testEnv) choreHandler() *ChoreHandler {
	svc := chore.NewService(e.chores, discardLogger())
	return NewChoreHandler(e.chores, e.families, svc, e.hub, discardLogger())
}

// request builds a request carrying ac. A string body is sent verbatim;
// anything else is JSON-encoded. pathValues are alternating name, value pairs.
func request(t *testing.T, method, target string, body any, ac auth.AuthContext, pathValues ...string) *http.Request {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, r)
	req = req.WithContext(auth.WithAuth(context.Background(), ac))
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	return req
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}
