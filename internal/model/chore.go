package model

import (
	"time"

	"github.com/dukerupert/choreboard/internal/calendar"
)

type ChoreStatus string

const (
	StatusIncomplete ChoreStatus = "incomplete"
	StatusComplete   ChoreStatus = "complete"
)

func (s ChoreStatus) Valid() bool {
	return s == StatusIncomplete || s == StatusComplete
}

type ApprovalStatus string

const (
	ApprovalUnapproved ApprovalStatus = "unapproved"
	ApprovalApproved   ApprovalStatus = "approved"
	ApprovalRejected   ApprovalStatus = "rejected"
)

func (a ApprovalStatus) Valid() bool {
	return a == ApprovalUnapproved || a == ApprovalApproved || a == ApprovalRejected
}

// Chore is a chore definition. StartDate anchors RecurrenceRule; an empty
// RecurrenceRule means the chore does not repeat.
type Chore struct {
	ID                    int64         `json:"id"`
	FamilyID              int64         `json:"family_id"`
	Title                 string        `json:"title"`
	Description           string        `json:"description"`
	Points                int           `json:"points"`
	AssignedTo            *int64        `json:"assigned_to"`
	StartDate             calendar.Date `json:"start_date"`
	RecurrenceRule        string        `json:"recurrence_rule"`
	RecurrenceDescription string        `json:"recurrence_description,omitempty"`
	SortOrder             int           `json:"sort_order"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// ChoreInstance is the realized state of one chore on one calendar day.
type ChoreInstance struct {
	ChoreID        int64          `json:"chore_id"`
	InstanceDate   calendar.Date  `json:"instance_date"`
	Status         ChoreStatus    `json:"status"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	Notes          *string        `json:"notes,omitempty"`
	CompletedBy    *int64         `json:"completed_by,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// DayItem is one row of a family's chore list for a single day.
type DayItem struct {
	ChoreID        int64          `json:"chore_id"`
	Title          string         `json:"title"`
	Points         int            `json:"points"`
	AssignedTo     *int64         `json:"assigned_to,omitempty"`
	Status         ChoreStatus    `json:"status"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	Notes          *string        `json:"notes,omitempty"`
}
