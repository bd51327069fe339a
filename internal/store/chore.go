package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/choreboard/internal/calendar"
	"github.com/dukerupert/choreboard/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

// ChoreParams holds the editable fields of a chore definition.
type ChoreParams struct {
	Title          string
	Description    string
	Points         int
	AssignedTo     *int64
	StartDate      calendar.Date
	RecurrenceRule string
	SortOrder      int
}

// --- Chore methods ---

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var assignedTo sql.NullInt64

	err := scanner.Scan(
		&c.ID, &c.FamilyID, &c.Title, &c.Description, &c.Points,
		&assignedTo, &c.StartDate, &c.RecurrenceRule, &c.SortOrder,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assignedTo.Valid {
		c.AssignedTo = &assignedTo.Int64
	}
	return &c, nil
}

const choreCols = `id, family_id, title, description, points, assigned_to, start_date, recurrence_rule, sort_order, created_at, updated_at`

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func (s *ChoreStore) Create(familyID int64, p ChoreParams) (*model.Chore, error) {
	result, err := s.db.Exec(
		`INSERT INTO chores (family_id, title, description, points, assigned_to, start_date, recurrence_rule, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		familyID, p.Title, p.Description, p.Points, nullInt64(p.AssignedTo), p.StartDate, p.RecurrenceRule, p.SortOrder,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

// ListByFamily returns the family's chores ordered by schedule: dated chores
// by start date first, then undated ones, each by creation time.
func (s *ChoreStore) ListByFamily(familyID int64) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE family_id = ?
		ORDER BY start_date IS NULL, start_date ASC, created_at ASC, id ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

func (s *ChoreStore) ListByAssignee(familyID, userID int64) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE family_id = ? AND assigned_to = ?
		ORDER BY start_date IS NULL, start_date ASC, created_at ASC, id ASC`,
		familyID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores by assignee: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

func (s *ChoreStore) Update(id int64, p ChoreParams) (*model.Chore, error) {
	_, err := s.db.Exec(
		`UPDATE chores SET title = ?, description = ?, points = ?, assigned_to = ?, start_date = ?,
		recurrence_rule = ?, sort_order = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		p.Title, p.Description, p.Points, nullInt64(p.AssignedTo), p.StartDate, p.RecurrenceRule, p.SortOrder, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}

// --- Instance methods ---

func scanInstance(scanner interface{ Scan(...any) error }) (*model.ChoreInstance, error) {
	var inst model.ChoreInstance
	var notes sql.NullString
	var completedBy sql.NullInt64

	err := scanner.Scan(
		&inst.ChoreID, &inst.InstanceDate, &inst.Status, &inst.ApprovalStatus,
		&notes, &completedBy, &inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if notes.Valid {
		inst.Notes = &notes.String
	}
	if completedBy.Valid {
		inst.CompletedBy = &completedBy.Int64
	}
	return &inst, nil
}

const instanceCols = `chore_id, instance_date, status, approval_status, notes, completed_by, updated_at`

// GetInstance returns the instance row for (choreID, day), or nil if none was written.
func (s *ChoreStore) GetInstance(choreID int64, day calendar.Date) (*model.ChoreInstance, error) {
	row := s.db.QueryRow(
		`SELECT `+instanceCols+` FROM chore_instances WHERE chore_id = ? AND instance_date = ?`,
		choreID, day,
	)
	inst, err := scanInstance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}
	return inst, nil
}

// ListInstancesForDay returns the instance rows written for the family's chores on day.
func (s *ChoreStore) ListInstancesForDay(familyID int64, day calendar.Date) ([]model.ChoreInstance, error) {
	rows, err := s.db.Query(
		`SELECT ci.chore_id, ci.instance_date, ci.status, ci.approval_status, ci.notes, ci.completed_by, ci.updated_at
		FROM chore_instances ci JOIN chores c ON c.id = ci.chore_id
		WHERE c.family_id = ? AND ci.instance_date = ?`,
		familyID, day,
	)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()

	var instances []model.ChoreInstance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		instances = append(instances, *inst)
	}
	return instances, rows.Err()
}

// ListInstancesByChore returns a chore's history, newest day first.
func (s *ChoreStore) ListInstancesByChore(choreID int64) ([]model.ChoreInstance, error) {
	rows, err := s.db.Query(
		`SELECT `+instanceCols+` FROM chore_instances WHERE chore_id = ? ORDER BY instance_date DESC`,
		choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("list instances by chore: %w", err)
	}
	defer rows.Close()

	var instances []model.ChoreInstance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		instances = append(instances, *inst)
	}
	return instances, rows.Err()
}

// UpsertInstance writes inst in one statement keyed on (chore_id, instance_date),
// so concurrent writers to the same day serialize instead of losing a row.
func (s *ChoreStore) UpsertInstance(inst model.ChoreInstance) (*model.ChoreInstance, error) {
	var notes sql.NullString
	if inst.Notes != nil {
		notes = sql.NullString{String: *inst.Notes, Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO chore_instances (chore_id, instance_date, status, approval_status, notes, completed_by)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (chore_id, instance_date) DO UPDATE SET
			status = excluded.status,
			approval_status = excluded.approval_status,
			notes = excluded.notes,
			completed_by = excluded.completed_by,
			updated_at = CURRENT_TIMESTAMP`,
		inst.ChoreID, inst.InstanceDate, inst.Status, inst.ApprovalStatus, notes, nullInt64(inst.CompletedBy),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert instance: %w", err)
	}
	return s.GetInstance(inst.ChoreID, inst.InstanceDate)
}
