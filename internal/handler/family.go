package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/choreboard/internal/auth"
	"github.com/dukerupert/choreboard/internal/model"
	"github.com/dukerupert/choreboard/internal/store"
	"github.com/dukerupert/choreboard/internal/websocket"
)

type FamilyHandler struct {
	familyStore  *store.FamilyStore
	userStore    *store.UserStore
	sessionStore *store.SessionStore
	hub          *websocket.Hub
	bcryptCost   int
	logger       *slog.Logger
}

func NewFamilyHandler(fs *store.FamilyStore, us *store.UserStore, ss *store.SessionStore, hub *websocket.Hub, logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{familyStore: fs, userStore: us, sessionStore: ss, hub: hub, bcryptCost: bcrypt.DefaultCost, logger: logger}
}

func (h *FamilyHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	family, err := h.familyStore.GetByID(auth.FamilyID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get family")
		return
	}
	if family == nil {
		writeError(w, http.StatusNotFound, "family not found")
		return
	}
	writeJSON(w, http.StatusOK, family)
}

func (h *FamilyHandler) Update(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	var req struct {
		Name     string `json:"name"`
		Timezone string `json:"timezone"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Timezone = strings.TrimSpace(req.Timezone)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}
	if !validTimezone(req.Timezone) {
		writeError(w, http.StatusBadRequest, "unknown timezone")
		return
	}

	family, err := h.familyStore.Update(familyID, req.Name, req.Timezone)
	if err != nil {
		h.logger.Error("update family", "family_id", familyID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update family")
		return
	}

	h.broadcast(familyID, websocket.NewMessage("family", "updated", familyID, nil))
	writeJSON(w, http.StatusOK, family)
}

func (h *FamilyHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.familyStore.ListMembers(auth.FamilyID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if members == nil {
		members = []model.FamilyMember{}
	}
	writeJSON(w, http.StatusOK, members)
}

type addMemberRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// AddMember adds an account to the family, creating it first when the email
// is not registered yet.
func (h *FamilyHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	var req addMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Role == "" {
		req.Role = model.RoleMember
	}
	if req.Role != model.RoleMember && req.Role != model.RoleAdmin {
		writeError(w, http.StatusBadRequest, "role must be admin or member")
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	user, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("add member lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if user == nil {
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		if len(req.Password) < minPasswordLength {
			writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.bcryptCost)
		if err != nil {
			h.logger.Error("hash password", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		user, err = h.userStore.Create(req.Email, req.Name, string(hash))
		if err != nil {
			h.logger.Error("create user", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	} else {
		existing, err := h.familyStore.GetMember(familyID, user.ID)
		if err != nil {
			h.logger.Error("add member check", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if existing != nil {
			writeError(w, http.StatusConflict, "already a member of this family")
			return
		}
	}

	member, err := h.familyStore.AddMember(familyID, user.ID, req.Role)
	if err != nil {
		h.logger.Error("add member", "family_id", familyID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add member")
		return
	}

	h.broadcast(familyID, websocket.NewMessage("family_member", "created", user.ID, nil))
	writeJSON(w, http.StatusCreated, member)
}

// lastAdmin reports whether userID is the family's only admin.
func (h *FamilyHandler) lastAdmin(familyID int64, member *model.FamilyMember) (bool, error) {
	if member.Role != model.RoleAdmin {
		return false, nil
	}
	n, err := h.familyStore.CountAdmins(familyID)
	if err != nil {
		return false, err
	}
	return n <= 1, nil
}

func (h *FamilyHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	userID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Role != model.RoleMember && req.Role != model.RoleAdmin {
		writeError(w, http.StatusBadRequest, "role must be admin or member")
		return
	}

	member, err := h.familyStore.GetMember(familyID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get member")
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}

	if req.Role == model.RoleMember {
		last, err := h.lastAdmin(familyID, member)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to count admins")
			return
		}
		if last {
			writeError(w, http.StatusBadRequest, "a family needs at least one admin")
			return
		}
	}

	updated, err := h.familyStore.UpdateMemberRole(familyID, userID, req.Role)
	if err != nil {
		h.logger.Error("update member role", "family_id", familyID, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update member")
		return
	}

	h.broadcast(familyID, websocket.NewMessage("family_member", "updated", userID, nil))
	writeJSON(w, http.StatusOK, updated)
}

func (h *FamilyHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	userID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	member, err := h.familyStore.GetMember(familyID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get member")
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}

	last, err := h.lastAdmin(familyID, member)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count admins")
		return
	}
	if last {
		writeError(w, http.StatusBadRequest, "a family needs at least one admin")
		return
	}

	if err := h.familyStore.RemoveMember(familyID, userID); err != nil {
		h.logger.Error("remove member", "family_id", familyID, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove member")
		return
	}

	revoked, err := h.sessionStore.DeleteForMember(familyID, userID)
	if err != nil {
		h.logger.Error("revoke member sessions", "family_id", familyID, "user_id", userID, "error", err)
	} else if revoked > 0 {
		h.logger.Info("revoked member sessions", "family_id", familyID, "user_id", userID, "count", revoked)
	}

	h.broadcast(familyID, websocket.NewMessage("family_member", "deleted", userID, nil))
	w.WriteHeader(http.StatusNoContent)
}
