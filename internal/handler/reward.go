package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/choreboard/internal/auth"
	"github.com/dukerupert/choreboard/internal/model"
	"github.com/dukerupert/choreboard/internal/store"
	"github.com/dukerupert/choreboard/internal/websocket"
)

type RewardHandler struct {
	rewardStore *store.RewardStore
	familyStore *store.FamilyStore
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewRewardHandler(rs *store.RewardStore, fs *store.FamilyStore, hub *websocket.Hub, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{rewardStore: rs, familyStore: fs, hub: hub, logger: logger}
}

func (h *RewardHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

type rewardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PointCost   int    `json:"point_cost"`
	Active      *bool  `json:"active"`
}

func (req *rewardRequest) validate() string {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return "title is required"
	}
	if req.PointCost < 0 {
		return "point_cost must be >= 0"
	}
	return ""
}

func (req rewardRequest) active() bool {
	return req.Active == nil || *req.Active
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	var req rewardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	reward, err := h.rewardStore.Create(familyID, req.Title, req.Description, req.PointCost, req.active())
	if err != nil {
		h.logger.Error("create reward", "family_id", familyID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create reward")
		return
	}

	h.broadcast(familyID, websocket.NewMessage("reward", "created", reward.ID, nil))
	writeJSON(w, http.StatusCreated, reward)
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.rewardStore.List(auth.FamilyID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list rewards")
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.Reward, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	reward, err := h.rewardStore.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get reward")
		return nil, false
	}
	if reward == nil || reward.FamilyID != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusNotFound, "reward not found")
		return nil, false
	}
	return reward, true
}

func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req rewardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	reward, err := h.rewardStore.Update(existing.ID, req.Title, req.Description, req.PointCost, req.active())
	if err != nil {
		h.logger.Error("update reward", "reward_id", existing.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update reward")
		return
	}

	h.broadcast(existing.FamilyID, websocket.NewMessage("reward", "updated", reward.ID, nil))
	writeJSON(w, http.StatusOK, reward)
}

func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if err := h.rewardStore.Delete(existing.ID); err != nil {
		h.logger.Error("delete reward", "reward_id", existing.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete reward")
		return
	}

	h.broadcast(existing.FamilyID, websocket.NewMessage("reward", "deleted", existing.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Redeem spends the redeemer's points on a reward. Members redeem for
// themselves; admins may name another member in redeemed_by.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	reward, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if !reward.Active {
		writeError(w, http.StatusBadRequest, "reward is not active")
		return
	}

	var req struct {
		RedeemedBy *int64 `json:"redeemed_by"`
	}
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	redeemer := ac.UserID
	if req.RedeemedBy != nil && *req.RedeemedBy != ac.UserID {
		if ac.Role != model.RoleAdmin {
			writeError(w, http.StatusForbidden, "only admins can redeem for another member")
			return
		}
		member, err := h.familyStore.GetMember(ac.FamilyID, *req.RedeemedBy)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to check family member")
			return
		}
		if member == nil {
			writeError(w, http.StatusBadRequest, "family member not found")
			return
		}
		redeemer = *req.RedeemedBy
	}

	redemption, err := h.rewardStore.Redeem(ac.FamilyID, reward.ID, redeemer, reward.PointCost)
	if errors.Is(err, store.ErrInsufficientPoints) {
		writeError(w, http.StatusBadRequest, "insufficient points")
		return
	}
	if err != nil {
		h.logger.Error("redeem reward", "reward_id", reward.ID, "user_id", redeemer, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to redeem reward")
		return
	}

	h.broadcast(ac.FamilyID, websocket.NewMessage("reward", "redeemed", reward.ID, map[string]any{
		"redeemed_by": redeemer,
	}))
	writeJSON(w, http.StatusCreated, redemption)
}

// memberParam resolves the {id} path value to a member of the caller's family.
func (h *RewardHandler) memberParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid member id")
		return 0, false
	}
	member, err := h.familyStore.GetMember(auth.FamilyID(r.Context()), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get member")
		return 0, false
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return 0, false
	}
	return userID, true
}

func (h *RewardHandler) GetPointBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.memberParam(w, r)
	if !ok {
		return
	}

	balance, err := h.rewardStore.GetPointBalance(auth.FamilyID(r.Context()), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get balance")
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (h *RewardHandler) ListRedemptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.memberParam(w, r)
	if !ok {
		return
	}

	redemptions, err := h.rewardStore.ListRedemptionsByMember(auth.FamilyID(r.Context()), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list redemptions")
		return
	}
	if redemptions == nil {
		redemptions = []model.RewardRedemption{}
	}
	writeJSON(w, http.StatusOK, redemptions)
}

func (h *RewardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	balances, err := h.rewardStore.GetAllPointBalances(auth.FamilyID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get leaderboard")
		return
	}
	if balances == nil {
		balances = []model.PointBalance{}
	}
	writeJSON(w, http.StatusOK, balances)
}
