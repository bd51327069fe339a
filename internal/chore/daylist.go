package chore

import (
	"log/slog"

	"github.com/dukerupert/choreboard/internal/calendar"
	"github.com/dukerupert/choreboard/internal/model"
)

// BuildDay returns the chores due on day, in the order of defs, merged with
// the instance rows recorded for that day. Chores without a row get the
// default state. Chores with a malformed recurrence rule are logged and left
// out.
func BuildDay(logger *slog.Logger, defs []model.Chore, instances []model.ChoreInstance, day calendar.Date) []model.DayItem {
	if logger == nil {
		logger = slog.Default()
	}

	byChore := make(map[int64]model.ChoreInstance, len(instances))
	for _, inst := range instances {
		if inst.InstanceDate == day {
			byChore[inst.ChoreID] = inst
		}
	}

	items := make([]model.DayItem, 0, len(defs))
	for _, c := range defs {
		due, err := Eligible(c, day)
		if err != nil {
			logger.Error("invalid recurrence rule", "chore_id", c.ID, "rule", c.RecurrenceRule, "error", err)
			continue
		}
		if !due {
			continue
		}

		item := model.DayItem{
			ChoreID:        c.ID,
			Title:          c.Title,
			Points:         c.Points,
			AssignedTo:     c.AssignedTo,
			Status:         DefaultState.Status,
			ApprovalStatus: DefaultState.Approval,
		}
		if inst, ok := byChore[c.ID]; ok {
			item.Status = inst.Status
			item.ApprovalStatus = inst.ApprovalStatus
			item.Notes = inst.Notes
		}
		items = append(items, item)
	}
	return items
}
