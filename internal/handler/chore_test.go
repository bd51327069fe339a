package handler

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/choreboard/internal/auth"
	"github.com/dukerupert/choreboard/internal/calendar"
	"github.com/dukerupert/choreboard/internal/model"
	"github.com/dukerupert/choreboard/internal/store"
)

func TestChoreCreateCanonicalRule(t *testing.T) {
	e := setupEnv(t)
	h := e.choreHandler()

	rec := serve(h.Create, request(t, "POST", "/api/chores", map[string]any{
		"title":           "  Take out trash ",
		"points":          3,
		"assigned_to":     e.kid.ID,
		"start_date":      "2024-01-01",
		"recurrence_rule": "freq=weekly;byday=mo,we",
	}, e.asParent()))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	c := decode[model.Chore](t, rec)
	if c.Title != "Take out trash" {
		t.Errorf("title = %q, want %q", c.Title, "Take out trash")
	}
	if c.RecurrenceRule != "FREQ=WEEKLY;BYDAY=MO,WE" {
		t.Errorf("recurrence_rule = %q, want canonical form", c.RecurrenceRule)
	}
	if c.RecurrenceDescription != "Repeats weekly on Mon, Wed" {
		t.Errorf("recurrence_description = %q", c.RecurrenceDescription)
	}
	if c.StartDate != calendar.New(2024, time.January, 1) {
		t.Errorf("start_date = %s, want 2024-01-01", c.StartDate)
	}
	if c.FamilyID != e.family.ID {
		t.Errorf("family_id = %d, want %d", c.FamilyID, e.family.ID)
	}
}

func TestChoreCreateValidation(t *testing.T) {
	e := setupEnv(t)
	h := e.choreHandler()

	tests := []struct {
		name string
		body any
		want string
	}{
		{"invalid json", "{", "invalid JSON"},
		{"missing title", map[string]any{"title": " "}, "title is required"},
		{"negative points", map[string]any{"title": "x", "points": -1}, "points must be >= 0"},
		{"bad frequency", map[string]any{"title": "x", "recurrence_rule": "FREQ=HOURLY"}, "malformed recurrence rule"},
		{"bad interval", map[string]any{"title": "x", "recurrence_rule": "FREQ=DAILY;INTERVAL=0"}, "malformed recurrence rule"},
		{"unknown assignee", map[string]any{"title": "x", "assigned_to": 999}, "family member not found"},
		{"bad start date", map[string]any{"title": "x", "start_date": "someday"}, "invalid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h.Create, request(t, "POST", "/api/chores", tt.body, e.asParent()))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if msg := errorMessage(t, rec); !strings.Contains(msg, tt.want) {
				t.Errorf("error = %q, want it to contain %q", msg, tt.want)
			}
		})
	}
}

func TestChoreOtherFamilyNotFound(t *testing.T) {
	e := setupEnv(t)
	h := e.choreHandler()

	other, _ := e.families.Create("Neighbors", "UTC")
	c, _ := e.chores.Create(other.ID, store.ChoreParams{Title: "Their chore"})
	id := strconv.FormatInt(c.ID, 10)

	for name, fn := range map[string]http.HandlerFunc{"get": h.Get, "update": h.Update, "delete": h.Delete, "occurrences": h.Occurrences} {
		t.Run(name, func(t *testing.T) {
			rec := serve(fn, request(t, "GET", "/api/chores/"+id, map[string]any{"title": "mine now"}, e.asParent(), "id", id))
			if rec.Code != http.StatusNotFound {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
			}
		})
	}
}

func TestChoreUpdateAndDelete(t *testing.T) {
	e := setupEnv(t)
	h := e.choreHandler()
	c, _ := e.chores.Create(e.family.ID, store.ChoreParams{Title: "Dishes", Points: 1})
	id := strconv.FormatInt(c.ID, 10)

	rec := serve(h.Update, request(t, "PUT", "/api/chores/"+id, map[string]any{
		"title": "Dishes", "points": 2, "recurrence_rule": "FREQ=DAILY;INTERVAL=2",
	}, e.asParent(), "id", id))
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}
	updated := decode[model.Chore](t, rec)
	if updated.Points != 2 || updated.RecurrenceDescription != "Repeats every 2 days" {
		t.Errorf("updated = %+v", updated)
	}

	rec = serve(h.Delete, request(t, "DELETE", "/api/chores/"+id, nil, e.asParent(), "id", id))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if got, _ := e.chores.GetByID(c.ID); got != nil {
		t.Error("chore still present after delete")
	}
}

// seedDay creates three chores all due on Wednesday 2024-01-03.
func seedDay(t *testing.T, e *testEnv) (trash, cat, dentist *model.Chore) {
	t.Helper()
	var err error
	trash, err = e.chores.Create(e.family.ID, store.ChoreParams{
		Title: "Trash", Points: 3, AssignedTo: &e.kid.ID,
		StartDate: calendar.New(2024, time.January, 1), RecurrenceRule: "FREQ=WEEKLY;BYDAY=MO,WE",
	})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	cat, _ = e.chores.Create(e.family.ID, store.ChoreParams{
		Title: "Feed cat", Points: 1,
		StartDate: calendar.New(2024, time.January, 2), RecurrenceRule: "FREQ=DAILY",
	})
	dentist, _ = e.chores.Create(e.family.ID, store.ChoreParams{
		Title: "Dentist", StartDate: calendar.New(2024, time.January, 3),
	})
	return trash, cat, dentist
}

func TestDayList(t *testing.T) {
	e := setupEnv(t)
	h := e.choreHandler()
	trash, cat, dentist := seedDay(t, e)

	rec := serve(h.Day, request(t, "GET", "/api/day?date=2024-01-03", nil, e.asKid()))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	items := decode[[]model.DayItem](t, rec)
	want := []int64{trash.ID, cat.ID, dentist.ID}
	if len(items) != len(want) {
		t.Fatalf("len = %d, want %d: %+v", len(items), len(want), items)
	}
	for i, id := range want {
		if items[i].ChoreID != id {
			t.Errorf("items[%d].ChoreID = %d, want %d", i, items[i].ChoreID, id)
		}
		if items[i].Status != model.StatusIncomplete || items[i].ApprovalStatus != model.ApprovalUnapproved {
			t.Errorf("items[%d] state = %s/%s, want defaults", i, items[i].Status, items[i].ApprovalStatus)
		}
	}

	// Thursday: only the daily chore.
	rec = serve(h.Day, request(t, "GET", "/api/day?date=2024-01-04", nil, e.asKid()))
	items = decode[[]model.DayItem](t, rec)
	if len(items) != 1 || items[0].ChoreID != cat.ID {
		t.Errorf("thursday items = %+v, want only feed cat", items)
	}

	// Filtered to the kid's chores.
	rec = serve(h.Day, request(t, "GET", "/api/day?date=2024-01-03&assigned_to="+strconv.FormatInt(e.kid.ID, 10), nil, e.asKid()))
	items = decode[[]model.DayItem](t, rec)
	if len(items) != 1 || items[0].ChoreID != trash.ID {
		t.Errorf("assigned items = %+v, want only trash", items)
	}
}

func TestDayListBadDate(t *testing.T) {
	e := setupEnv(t)
	rec := serve(e.choreHandler().Day, request(t, "GET", "/api/day?date=2024-02-30", nil, e.asKid()))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestDayListDefaultsToToday(t *testing.T) {
	e := setupEnv(t)
	e.chores.Create(e.family.ID, store.ChoreParams{Title: "Whenever"})

	rec := serve(e.choreHandler().Day, request(t, "GET", "/api/day", nil, e.asKid()))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if items := decode[[]model.DayItem](t, rec); len(items) != 1 {
		t.Errorf("items = %+v, want the unscheduled chore", items)
	}
}

func putInstance(t *testing.T, h *ChoreHandler, body any, ac auth.AuthContext) *httptest.ResponseRecorder {
	t.Helper()
	return serve(h.SetInstance, request(t, "PUT", "/api/chore-instances", body, ac))
}

func TestSetInstanceLifecycle(t *testing.T) {
	e := setupEnv(t)
	h := e.choreHandler()
	trash, _, _ := seedDay(t, e)

	// Kid marks it done with a bare body.
	rec := putInstance(t, h, map[string]any{"chore_id": trash.ID, "date": "2024-01-03"}, e.asKid())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	inst := decode[model.ChoreInstance](t, rec)
	if inst.Status != model.StatusComplete || inst.ApprovalStatus != model.ApprovalUnapproved {
		t.Errorf("after bare body = %s/%s, want complete/unapproved", inst.Status, inst.ApprovalStatus)
	}
	if inst.CompletedBy == nil || *inst.CompletedBy != e.kid.ID {
		t.Errorf("completed_by = %v, want %d", inst.CompletedBy, e.kid.ID)
	}

	// Parent approves.
	rec = putInstance(t, h, map[string]any{"chore_id": trash.ID, "date": "2024-01-03", "approval_status": "approved"}, e.asParent())
	inst = decode[model.ChoreInstance](t, rec)
	if inst.Status != model.StatusComplete || inst.ApprovalStatus != model.ApprovalApproved {
		t.Errorf("after approve = %s/%s, want complete/approved", inst.Status, inst.ApprovalStatus)
	}
	if inst.CompletedBy == nil || *inst.CompletedBy != e.kid.ID {
		t.Errorf("approval must keep completed_by, got %v", inst.CompletedBy)
	}

	// Parent rejects.
	rec = putInstance(t, h, map[string]any{"chore_id": trash.ID, "date": "2024-01-03", "approval_status": "rejected", "notes": "still smells"}, e.asParent())
	inst = decode[model.ChoreInstance](t, rec)
	if inst.Status != model.StatusIncomplete || inst.ApprovalStatus != model.ApprovalRejected {
		t.Errorf("after reject = %s/%s, want incomplete/rejected", inst.Status, inst.ApprovalStatus)
	}
	if inst.CompletedBy != nil {
		t.Errorf("completed_by = %d, want nil after rejection", *inst.CompletedBy)
	}

	// Kid redoes it; completion always resets approval.
	rec = putInstance(t, h, map[string]any{"chore_id": trash.ID, "date": "2024-01-03", "status": "complete"}, e.asKid())
	inst = decode[model.ChoreInstance](t, rec)
	if inst.Status != model.StatusComplete || inst.ApprovalStatus != model.ApprovalUnapproved {
		t.Errorf("after redo = %s/%s, want complete/unapproved", inst.Status, inst.ApprovalStatus)
	}
	if inst.Notes == nil || *inst.Notes != "still smells" {
		t.Errorf("notes = %v, want carried over", inst.Notes)
	}

	// The day list reflects the stored row.
	rec = serve(h.Day, request(t, "GET", "/api/day?date=2024-01-03", nil, e.asKid()))
	items := decode[[]model.DayItem](t, rec)
	if items[0].Status != model.StatusComplete || items[0].Notes == nil {
		t.Errorf("day item = %+v", items[0])
	}
}

func TestSetInstanceMemberCannotApprove(t *testing.T) {
	e := setupEnv(t)
	h := e.choreHandler()
	trash, _, _ := seedDay(t, e)

	for _, approval := range []string{"approved", "rejected"} {
		rec := putInstance(t, h, map[string]any{"chore_id": trash.ID, "date": "2024-01-03", "approval_status": approval}, e.asKid())
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s: status = %d, want %d", approval, rec.Code, http.StatusForbidden)
		}
	}

	// Resetting to unapproved is allowed.
	rec := putInstance(t, h, map[string]any{"chore_id": trash.ID, "date": "2024-01-03", "approval_status": "unapproved"}, e.asKid())
	if rec.Code != http.StatusOK {
		t.Errorf("unapproved: status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestSetInstanceErrors(t *testing.T) {
	e := setupEnv(t)
	h := e.choreHandler()
	trash, _, _ := seedDay(t, e)
	other, _ := e.families.Create("Neighbors", "UTC")
	theirs, _ := e.chores.Create(other.ID, store.ChoreParams{Title: "Theirs"})

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"invalid json", "not json", http.StatusBadRequest},
		{"missing chore", map[string]any{"date": "2024-01-03"}, http.StatusBadRequest},
		{"missing date", map[string]any{"chore_id": trash.ID}, http.StatusBadRequest},
		{"bad date", map[string]any{"chore_id": trash.ID, "date": "01/03/2024"}, http.StatusBadRequest},
		{"bad status", map[string]any{"chore_id": trash.ID, "date": "2024-01-03", "status": "done"}, http.StatusBadRequest},
		{"bad approval", map[string]any{"chore_id": trash.ID, "date": "2024-01-03", "approval_status": "maybe"}, http.StatusBadRequest},
		{"unknown chore", map[string]any{"chore_id": 9999, "date": "2024-01-03"}, http.StatusNotFound},
		{"other family", map[string]any{"chore_id": theirs.ID, "date": "2024-01-03"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := putInstance(t, h, tt.body, e.asParent())
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
		})
	}

	if rows, _ := e.chores.ListInstancesByChore(theirs.ID); len(rows) != 0 {
		t.Errorf("rejected write created %d rows", len(rows))
	}
}

func TestSetInstanceDatetimeUsesOwnOffset(t *testing.T) {
	e := setupEnv(t)
	h := e.choreHandler()
	trash, _, _ := seedDay(t, e)

	rec := putInstance(t, h, map[string]any{"chore_id": trash.ID, "date": "2024-01-03T23:30:00-06:00"}, e.asKid())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	inst := decode[model.ChoreInstance](t, rec)
	if inst.InstanceDate != calendar.New(2024, time.January, 3) {
		t.Errorf("instance_date = %s, want 2024-01-03", inst.InstanceDate)
	}
}

func TestSetInstanceNotesOnly(t *testing.T) {
	e := setupEnv(t)
	h := e.choreHandler()
	trash, _, _ := seedDay(t, e)

	rec := putInstance(t, h, map[string]any{"chore_id": trash.ID, "date": "2024-01-03", "notes": "bags by the door"}, e.asKid())
	inst := decode[model.ChoreInstance](t, rec)
	if inst.Status != model.StatusIncomplete || inst.ApprovalStatus != model.ApprovalUnapproved {
		t.Errorf("notes-only write = %s/%s, want incomplete/unapproved", inst.Status, inst.ApprovalStatus)
	}
	if inst.Notes == nil || *inst.Notes != "bags by the door" {
		t.Errorf("notes = %v", inst.Notes)
	}
}

func TestOccurrences(t *testing.T) {
	e := setupEnv(t)
	h := e.choreHandler()
	trash, _, _ := seedDay(t, e)
	id := strconv.FormatInt(trash.ID, 10)

	rec := serve(h.Occurrences, request(t, "GET", "/api/chores/"+id+"/occurrences?from=2024-01-01&to=2024-01-14", nil, e.asKid(), "id", id))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[scheduleResponse](t, rec)
	want := []calendar.Date{
		calendar.New(2024, time.January, 1),
		calendar.New(2024, time.January, 3),
		calendar.New(2024, time.January, 8),
		calendar.New(2024, time.January, 10),
	}
	if len(resp.Dates) != len(want) {
		t.Fatalf("dates = %v, want %v", resp.Dates, want)
	}
	for i := range want {
		if resp.Dates[i] != want[i] {
			t.Errorf("dates[%d] = %s, want %s", i, resp.Dates[i], want[i])
		}
	}

	rec = serve(h.Occurrences, request(t, "GET", "/api/chores/"+id+"/occurrences?from=2024-01-14&to=2024-01-01", nil, e.asKid(), "id", id))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("reversed range status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSetInstanceApprovalOnlyDoesNotComplete(t *testing.T) {
	e := setupEnv(t)
	h := e.choreHandler()
	trash, _, _ := seedDay(t, e)

	rec := putInstance(t, h, map[string]any{"chore_id": trash.ID, "date": "2024-01-03", "approval_status": "approved"}, e.asParent())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	inst := decode[model.ChoreInstance](t, rec)
	if inst.Status != model.StatusIncomplete || inst.ApprovalStatus != model.ApprovalApproved {
		t.Errorf("approval-only write = %s/%s, want incomplete/approved", inst.Status, inst.ApprovalStatus)
	}
	if inst.CompletedBy != nil {
		t.Errorf("completed_by = %d, want nil", *inst.CompletedBy)
	}
}

func TestHistory(t *testing.T) {
	e := setupEnv(t)
	h := e.choreHandler()
	trash, cat, _ := seedDay(t, e)
	id := strconv.FormatInt(trash.ID, 10)

	rec := serve(h.History, request(t, "GET", "/api/chores/"+id+"/instances", nil, e.asKid(), "id", id))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[[]model.ChoreInstance](t, rec); len(got) != 0 {
		t.Errorf("history = %+v, want empty", got)
	}

	putInstance(t, h, map[string]any{"chore_id": trash.ID, "date": "2024-01-01"}, e.asKid())
	putInstance(t, h, map[string]any{"chore_id": trash.ID, "date": "2024-01-03"}, e.asKid())
	putInstance(t, h, map[string]any{"chore_id": cat.ID, "date": "2024-01-03"}, e.asKid())

	rec = serve(h.History, request(t, "GET", "/api/chores/"+id+"/instances", nil, e.asKid(), "id", id))
	got := decode[[]model.ChoreInstance](t, rec)
	if len(got) != 2 {
		t.Fatalf("history = %+v, want 2 rows", got)
	}
	if got[0].InstanceDate != calendar.New(2024, time.January, 3) || got[1].InstanceDate != calendar.New(2024, time.January, 1) {
		t.Errorf("history order = %s, %s, want newest first", got[0].InstanceDate, got[1].InstanceDate)
	}

	other, _ := e.families.Create("Neighbors", "UTC")
	theirs, _ := e.chores.Create(other.ID, store.ChoreParams{Title: "Theirs"})
	theirsID := strconv.FormatInt(theirs.ID, 10)
	rec = serve(h.History, request(t, "GET", "/api/chores/"+theirsID+"/instances", nil, e.asKid(), "id", theirsID))
	if rec.Code != http.StatusNotFound {
		t.Errorf("other family status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
