package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/choreboard/internal/auth"
	"github.com/dukerupert/choreboard/internal/calendar"
	"github.com/dukerupert/choreboard/internal/chore"
	"github.com/dukerupert/choreboard/internal/model"
	"github.com/dukerupert/choreboard/internal/recurrence"
	"github.com/dukerupert/choreboard/internal/store"
	"github.com/dukerupert/choreboard/internal/websocket"
)

// defaultScheduleDays is the occurrence window when no end date is given.
const defaultScheduleDays = 28

type ChoreHandler struct {
	choreStore  *store.ChoreStore
	familyStore *store.FamilyStore
	service     *chore.Service
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewChoreHandler(cs *store.ChoreStore, fs *store.FamilyStore, svc *chore.Service, hub *websocket.Hub, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{choreStore: cs, familyStore: fs, service: svc, hub: hub, logger: logger}
}

func (h *ChoreHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

// describe fills in the human-readable recurrence for API output.
func describe(c *model.Chore) *model.Chore {
	if c.RecurrenceRule == "" {
		return c
	}
	if rule, err := recurrence.Parse(c.RecurrenceRule); err == nil {
		c.RecurrenceDescription = recurrence.Describe(rule)
	}
	return c
}

type choreRequest struct {
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Points         int           `json:"points"`
	AssignedTo     *int64        `json:"assigned_to"`
	StartDate      calendar.Date `json:"start_date"`
	RecurrenceRule string        `json:"recurrence_rule"`
	SortOrder      int           `json:"sort_order"`
}

// params validates req and returns store parameters. A non-empty recurrence
// rule is stored in canonical form.
func (h *ChoreHandler) params(familyID int64, req choreRequest) (store.ChoreParams, string) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return store.ChoreParams{}, "title is required"
	}
	if req.Points < 0 {
		return store.ChoreParams{}, "points must be >= 0"
	}

	rule := strings.TrimSpace(req.RecurrenceRule)
	if rule != "" {
		parsed, err := recurrence.Parse(rule)
		if err != nil {
			return store.ChoreParams{}, err.Error()
		}
		rule = parsed.String()
	}

	if req.AssignedTo != nil {
		member, err := h.familyStore.GetMember(familyID, *req.AssignedTo)
		if err != nil {
			h.logger.Error("check assignee", "error", err)
			return store.ChoreParams{}, "failed to check family member"
		}
		if member == nil {
			return store.ChoreParams{}, "family member not found"
		}
	}

	return store.ChoreParams{
		Title:          title,
		Description:    strings.TrimSpace(req.Description),
		Points:         req.Points,
		AssignedTo:     req.AssignedTo,
		StartDate:      req.StartDate,
		RecurrenceRule: rule,
		SortOrder:      req.SortOrder,
	}, ""
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	var req choreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	p, msg := h.params(familyID, req)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	c, err := h.choreStore.Create(familyID, p)
	if err != nil {
		h.logger.Error("create chore", "family_id", familyID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create chore")
		return
	}

	h.broadcast(familyID, websocket.NewMessage("chore", "created", c.ID, nil))
	writeJSON(w, http.StatusCreated, describe(c))
}

// List returns the family's chores. ?assigned_to=ID narrows to one member.
func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	var (
		chores []model.Chore
		err    error
	)
	if v := r.URL.Query().Get("assigned_to"); v != "" {
		userID, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid assigned_to")
			return
		}
		chores, err = h.choreStore.ListByAssignee(familyID, userID)
	} else {
		chores, err = h.choreStore.ListByFamily(familyID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list chores")
		return
	}

	if chores == nil {
		chores = []model.Chore{}
	}
	for i := range chores {
		describe(&chores[i])
	}
	writeJSON(w, http.StatusOK, chores)
}

// lookup loads the chore named in the path, answering 404 when it is missing
// or belongs to another family.
func (h *ChoreHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.Chore, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	c, err := h.choreStore.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get chore")
		return nil, false
	}
	if c == nil || c.FamilyID != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusNotFound, "chore not found")
		return nil, false
	}
	return c, true
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, describe(c))
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req choreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	p, msg := h.params(existing.FamilyID, req)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	c, err := h.choreStore.Update(existing.ID, p)
	if err != nil {
		h.logger.Error("update chore", "chore_id", existing.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update chore")
		return
	}

	h.broadcast(existing.FamilyID, websocket.NewMessage("chore", "updated", c.ID, nil))
	writeJSON(w, http.StatusOK, describe(c))
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if err := h.choreStore.Delete(existing.ID); err != nil {
		h.logger.Error("delete chore", "chore_id", existing.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete chore")
		return
	}

	h.broadcast(existing.FamilyID, websocket.NewMessage("chore", "deleted", existing.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

// today returns the current date in the family's timezone.
func (h *ChoreHandler) today(familyID int64) (calendar.Date, error) {
	family, err := h.familyStore.GetByID(familyID)
	if err != nil {
		return calendar.Date{}, err
	}
	if family == nil {
		return calendar.Today(time.UTC), nil
	}
	return calendar.Today(family.Location()), nil
}

// dateParam parses the named query parameter, falling back to def when absent.
func dateParam(r *http.Request, name string, def calendar.Date) (calendar.Date, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return calendar.Parse(v)
}

type scheduleResponse struct {
	ChoreID int64           `json:"chore_id"`
	From    calendar.Date   `json:"from"`
	To      calendar.Date   `json:"to"`
	Dates   []calendar.Date `json:"dates"`
}

// Occurrences lists the days in ?from=&to= on which the chore is due.
func (h *ChoreHandler) Occurrences(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	today, err := h.today(c.FamilyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get family")
		return
	}
	from, err := dateParam(r, "from", today)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date")
		return
	}
	to, err := dateParam(r, "to", from.AddDays(defaultScheduleDays-1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date")
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not be before from")
		return
	}

	dates, err := chore.Schedule(*c, from, to)
	if err != nil {
		h.logger.Error("invalid recurrence rule", "chore_id", c.ID, "rule", c.RecurrenceRule, "error", err)
		writeError(w, http.StatusInternalServerError, "chore has an invalid recurrence rule")
		return
	}
	if dates == nil {
		dates = []calendar.Date{}
	}

	writeJSON(w, http.StatusOK, scheduleResponse{ChoreID: c.ID, From: from, To: to, Dates: dates})
}

// History returns every recorded instance of the chore, newest day first.
func (h *ChoreHandler) History(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	instances, err := h.choreStore.ListInstancesByChore(c.ID)
	if err != nil {
		h.logger.Error("list chore history", "chore_id", c.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list chore history")
		return
	}
	if instances == nil {
		instances = []model.ChoreInstance{}
	}
	writeJSON(w, http.StatusOK, instances)
}

// Day returns the chore list for ?date=, defaulting to today in the family's
// timezone. ?assigned_to=ID narrows to one member.
func (h *ChoreHandler) Day(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	today, err := h.today(familyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get family")
		return
	}
	day, err := dateParam(r, "date", today)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}

	var assignee *int64
	if v := r.URL.Query().Get("assigned_to"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid assigned_to")
			return
		}
		assignee = &id
	}

	items, err := h.service.Day(familyID, day)
	if err != nil {
		h.logger.Error("build day list", "family_id", familyID, "date", day.String(), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list chores")
		return
	}

	out := make([]model.DayItem, 0, len(items))
	for _, it := range items {
		if assignee != nil && (it.AssignedTo == nil || *it.AssignedTo != *assignee) {
			continue
		}
		out = append(out, it)
	}
	writeJSON(w, http.StatusOK, out)
}

type instanceRequest struct {
	ChoreID        int64                 `json:"chore_id"`
	Date           string                `json:"date"`
	Status         *model.ChoreStatus    `json:"status"`
	ApprovalStatus *model.ApprovalStatus `json:"approval_status"`
	Notes          *string               `json:"notes"`
}

// SetInstance records a completion, approval, or notes change for one chore
// on one day. A body naming none of status, approval_status, or notes marks
// the chore complete.
func (h *ChoreHandler) SetInstance(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req instanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.ChoreID <= 0 {
		writeError(w, http.StatusBadRequest, "chore_id is required")
		return
	}
	if strings.TrimSpace(req.Date) == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	day, err := calendar.Parse(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	if req.Status != nil && !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "status must be incomplete or complete")
		return
	}
	if req.ApprovalStatus != nil && !req.ApprovalStatus.Valid() {
		writeError(w, http.StatusBadRequest, "approval_status must be unapproved, approved, or rejected")
		return
	}

	if req.Status == nil && req.ApprovalStatus == nil && req.Notes == nil {
		done := model.StatusComplete
		req.Status = &done
	}

	if req.ApprovalStatus != nil && *req.ApprovalStatus != model.ApprovalUnapproved && ac.Role != model.RoleAdmin {
		writeError(w, http.StatusForbidden, "only admins can approve or reject chores")
		return
	}

	inst, err := h.service.SetInstance(ac.FamilyID, chore.Update{
		ChoreID: req.ChoreID,
		Day:     day,
		Request: chore.Request{Status: req.Status, Approval: req.ApprovalStatus},
		Notes:   req.Notes,
		Actor:   ac.UserID,
	})
	if errors.Is(err, chore.ErrChoreNotFound) {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}
	if err != nil {
		h.logger.Error("set chore instance", "chore_id", req.ChoreID, "date", day.String(), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update chore")
		return
	}

	h.broadcast(ac.FamilyID, websocket.NewMessage("chore_instance", "updated", inst.ChoreID, map[string]any{
		"date":            inst.InstanceDate.String(),
		"status":          inst.Status,
		"approval_status": inst.ApprovalStatus,
	}))
	writeJSON(w, http.StatusOK, inst)
}
