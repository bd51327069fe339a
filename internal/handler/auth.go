package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/choreboard/internal/auth"
	"github.com/dukerupert/choreboard/internal/middleware"
	"github.com/dukerupert/choreboard/internal/model"
	"github.com/dukerupert/choreboard/internal/store"
)

const minPasswordLength = 8

type AuthHandler struct {
	userStore     *store.UserStore
	familyStore   *store.FamilyStore
	sessionStore  *store.SessionStore
	sessionTTL    time.Duration
	secureCookies bool
	bcryptCost    int
	logger        *slog.Logger
}

func NewAuthHandler(us *store.UserStore, fs *store.FamilyStore, ss *store.SessionStore, sessionTTL time.Duration, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userStore:     us,
		familyStore:   fs,
		sessionStore:  ss,
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
		bcryptCost:    bcrypt.DefaultCost,
		logger:        logger,
	}
}

// sessionResponse is returned by register, login, me and switch.
type sessionResponse struct {
	User   *model.User   `json:"user"`
	Family *model.Family `json:"family"`
	Role   string        `json:"role"`
}

func (h *AuthHandler) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h *AuthHandler) startSession(w http.ResponseWriter, userID, familyID int64) error {
	sess, err := h.sessionStore.Create(userID, familyID, h.sessionTTL)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func validTimezone(tz string) bool {
	if tz == "" {
		return true
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	FamilyName string `json:"family_name"`
	Timezone   string `json:"timezone"`
}

// Register creates an account, a new family, and an admin membership, then
// signs the user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	req.FamilyName = strings.TrimSpace(req.FamilyName)
	req.Timezone = strings.TrimSpace(req.Timezone)

	switch {
	case !strings.Contains(req.Email, "@"):
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	case len(req.Password) < minPasswordLength:
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	case req.Name == "":
		writeError(w, http.StatusBadRequest, "name is required")
		return
	case req.FamilyName == "":
		writeError(w, http.StatusBadRequest, "family_name is required")
		return
	case !validTimezone(req.Timezone):
		writeError(w, http.StatusBadRequest, "unknown timezone")
		return
	}

	existing, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("register lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}

	hash, err := h.hashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := h.userStore.Create(req.Email, req.Name, hash)
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	family, err := h.familyStore.Create(req.FamilyName, req.Timezone)
	if err != nil {
		h.logger.Error("create family", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if _, err := h.familyStore.AddMember(family.ID, user.ID, model.RoleAdmin); err != nil {
		h.logger.Error("add member", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.startSession(w, user.ID, family.ID); err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("family registered", "family_id", family.ID, "user_id", user.ID)
	writeJSON(w, http.StatusCreated, sessionResponse{User: user, Family: family, Role: model.RoleAdmin})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FamilyID int64  `json:"family_id"`
}

// Login checks the password and opens a session in the requested family, or
// the user's first family when none is named.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, err := h.userStore.GetByEmail(strings.TrimSpace(req.Email))
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	hash, err := h.userStore.GetPasswordHash(user.ID)
	if err != nil {
		h.logger.Error("login hash", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	families, err := h.familyStore.ListForUser(user.ID)
	if err != nil {
		h.logger.Error("login families", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(families) == 0 {
		writeError(w, http.StatusForbidden, "account is not a member of any family")
		return
	}

	family := &families[0]
	if req.FamilyID != 0 {
		family = nil
		for i := range families {
			if families[i].ID == req.FamilyID {
				family = &families[i]
			}
		}
		if family == nil {
			writeError(w, http.StatusForbidden, "not a member of this family")
			return
		}
	}

	member, err := h.familyStore.GetMember(family.ID, user.ID)
	if err != nil || member == nil {
		h.logger.Error("login membership", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.startSession(w, user.ID, family.ID); err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{User: user, Family: family, Role: member.Role})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if ac, ok := auth.FromContext(r.Context()); ok {
		if err := h.sessionStore.Delete(ac.SessionID); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
	})

	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	user, err := h.userStore.GetByID(ac.UserID)
	if err != nil || user == nil {
		h.logger.Error("me user", "user_id", ac.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	family, err := h.familyStore.GetByID(ac.FamilyID)
	if err != nil || family == nil {
		h.logger.Error("me family", "family_id", ac.FamilyID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{User: user, Family: family, Role: ac.Role})
}

// ListFamilies returns every family the signed-in user belongs to.
func (h *AuthHandler) ListFamilies(w http.ResponseWriter, r *http.Request) {
	families, err := h.familyStore.ListForUser(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list families", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list families")
		return
	}
	if families == nil {
		families = []model.Family{}
	}
	writeJSON(w, http.StatusOK, families)
}

// SwitchFamily re-scopes the current session to another of the user's families.
func (h *AuthHandler) SwitchFamily(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req struct {
		FamilyID int64 `json:"family_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	member, err := h.familyStore.GetMember(req.FamilyID, ac.UserID)
	if err != nil {
		h.logger.Error("switch family lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if member == nil {
		writeError(w, http.StatusForbidden, "not a member of this family")
		return
	}

	if err := h.sessionStore.UpdateFamilyID(ac.SessionID, req.FamilyID); err != nil {
		h.logger.Error("switch family", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := h.userStore.GetByID(ac.UserID)
	if err != nil {
		h.logger.Error("switch family user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	family, err := h.familyStore.GetByID(req.FamilyID)
	if err != nil {
		h.logger.Error("switch family get", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{User: user, Family: family, Role: member.Role})
}
