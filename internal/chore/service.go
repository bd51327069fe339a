package chore

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/choreboard/internal/calendar"
	"github.com/dukerupert/choreboard/internal/model"
)

// ErrChoreNotFound is returned when an instance write names a chore that does
// not exist in the caller's family.
var ErrChoreNotFound = errors.New("chore not found")

// Repository is the persistence the service needs. UpsertInstance must insert
// or update atomically on (chore_id, instance_date).
type Repository interface {
	GetByID(id int64) (*model.Chore, error)
	ListByFamily(familyID int64) ([]model.Chore, error)
	ListInstancesForDay(familyID int64, day calendar.Date) ([]model.ChoreInstance, error)
	GetInstance(choreID int64, day calendar.Date) (*model.ChoreInstance, error)
	UpsertInstance(inst model.ChoreInstance) (*model.ChoreInstance, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Day returns the family's chore list for day.
func (s *Service) Day(familyID int64, day calendar.Date) ([]model.DayItem, error) {
	defs, err := s.repo.ListByFamily(familyID)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	instances, err := s.repo.ListInstancesForDay(familyID, day)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	return BuildDay(s.logger, defs, instances, day), nil
}

// Update is a write to one chore instance. Notes nil leaves the stored notes
// untouched; an empty string clears them.
type Update struct {
	ChoreID int64
	Day     calendar.Date
	Request
	Notes *string
	Actor int64
}

// SetInstance resolves and persists the instance named by u.
func (s *Service) SetInstance(familyID int64, u Update) (*model.ChoreInstance, error) {
	c, err := s.repo.GetByID(u.ChoreID)
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	if c == nil || c.FamilyID != familyID {
		return nil, ErrChoreNotFound
	}

	existing, err := s.repo.GetInstance(u.ChoreID, u.Day)
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}

	var prev *State
	if existing != nil {
		prev = &State{Status: existing.Status, Approval: existing.ApprovalStatus}
	}
	next := Resolve(prev, u.Request)

	inst := model.ChoreInstance{
		ChoreID:        u.ChoreID,
		InstanceDate:   u.Day,
		Status:         next.Status,
		ApprovalStatus: next.Approval,
	}

	switch {
	case next.Status == model.StatusIncomplete:
	case u.Status != nil && *u.Status == model.StatusComplete:
		actor := u.Actor
		inst.CompletedBy = &actor
	case existing != nil:
		inst.CompletedBy = existing.CompletedBy
	}

	switch {
	case u.Notes != nil && *u.Notes != "":
		notes := *u.Notes
		inst.Notes = &notes
	case u.Notes == nil && existing != nil:
		inst.Notes = existing.Notes
	}

	saved, err := s.repo.UpsertInstance(inst)
	if err != nil {
		return nil, fmt.Errorf("upsert instance: %w", err)
	}

	s.logger.Debug("chore instance updated",
		"chore_id", u.ChoreID, "date", u.Day.String(),
		"status", saved.Status, "approval_status", saved.ApprovalStatus)
	return saved, nil
}
