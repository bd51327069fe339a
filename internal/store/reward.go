package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/dukerupert/choreboard/internal/model"
)

// ErrInsufficientPoints is returned by Redeem when the member cannot afford the reward.
var ErrInsufficientPoints = errors.New("insufficient points")

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

// --- Reward methods ---

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	var active int

	err := scanner.Scan(&r.ID, &r.FamilyID, &r.Title, &r.Description, &r.PointCost, &active, &r.CreatedAt)
	if err != nil {
		return nil, err
	}

	r.Active = active != 0
	return &r, nil
}

const rewardCols = `id, family_id, title, description, point_cost, active, created_at`

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *RewardStore) Create(familyID int64, title, description string, pointCost int, active bool) (*model.Reward, error) {
	result, err := s.db.Exec(
		`INSERT INTO rewards (family_id, title, description, point_cost, active) VALUES (?, ?, ?, ?, ?)`,
		familyID, title, description, pointCost, boolInt(active),
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

// List returns the family's rewards, active first, then by title.
func (s *RewardStore) List(familyID int64) ([]model.Reward, error) {
	rows, err := s.db.Query(
		`SELECT `+rewardCols+` FROM rewards WHERE family_id = ? ORDER BY active DESC, title ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) Update(id int64, title, description string, pointCost int, active bool) (*model.Reward, error) {
	_, err := s.db.Exec(
		`UPDATE rewards SET title = ?, description = ?, point_cost = ?, active = ? WHERE id = ?`,
		title, description, pointCost, boolInt(active), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM rewards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	return nil
}

// --- Redemption methods ---

func scanRedemption(scanner interface{ Scan(...any) error }) (*model.RewardRedemption, error) {
	var r model.RewardRedemption
	err := scanner.Scan(&r.ID, &r.RewardID, &r.RedeemedBy, &r.PointsSpent, &r.RedeemedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const redemptionCols = `id, reward_id, redeemed_by, points_spent, redeemed_at`

// Redeem records a redemption after checking the member's balance. The check
// and the insert share a transaction so two redemptions cannot overspend.
func (s *RewardStore) Redeem(familyID, rewardID, userID int64, pointCost int) (*model.RewardRedemption, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	earned, spent, err := pointTotals(tx, familyID, userID)
	if err != nil {
		return nil, err
	}
	if earned-spent < pointCost {
		return nil, ErrInsufficientPoints
	}

	result, err := tx.Exec(
		`INSERT INTO reward_redemptions (reward_id, redeemed_by, points_spent) VALUES (?, ?, ?)`,
		rewardID, userID, pointCost,
	)
	if err != nil {
		return nil, fmt.Errorf("insert redemption: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := tx.QueryRow(`SELECT `+redemptionCols+` FROM reward_redemptions WHERE id = ?`, id)
	redemption, err := scanRedemption(row)
	if err != nil {
		return nil, fmt.Errorf("get redemption: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return redemption, nil
}

// ListRedemptionsByMember returns a member's redemptions of the family's
// rewards, newest first.
func (s *RewardStore) ListRedemptionsByMember(familyID, userID int64) ([]model.RewardRedemption, error) {
	rows, err := s.db.Query(
		`SELECT rr.id, rr.reward_id, rr.redeemed_by, rr.points_spent, rr.redeemed_at
		FROM reward_redemptions rr JOIN rewards r ON r.id = rr.reward_id
		WHERE r.family_id = ? AND rr.redeemed_by = ?
		ORDER BY rr.redeemed_at DESC, rr.id DESC`,
		familyID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list redemptions by member: %w", err)
	}
	defer rows.Close()

	var redemptions []model.RewardRedemption
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		redemptions = append(redemptions, *r)
	}
	return redemptions, rows.Err()
}

// --- Point balance methods ---

type queryRower interface {
	QueryRow(query string, args ...any) *sql.Row
}

// pointTotals sums the points a member earned from approved completions of
// the family's chores and spent on the family's rewards.
func pointTotals(q queryRower, familyID, userID int64) (earned, spent int, err error) {
	err = q.QueryRow(
		`SELECT COALESCE(SUM(c.points), 0)
		FROM chore_instances ci JOIN chores c ON c.id = ci.chore_id
		WHERE c.family_id = ? AND ci.completed_by = ? AND ci.status = ? AND ci.approval_status = ?`,
		familyID, userID, model.StatusComplete, model.ApprovalApproved,
	).Scan(&earned)
	if err != nil {
		return 0, 0, fmt.Errorf("sum points earned: %w", err)
	}

	err = q.QueryRow(
		`SELECT COALESCE(SUM(rr.points_spent), 0)
		FROM reward_redemptions rr JOIN rewards r ON r.id = rr.reward_id
		WHERE r.family_id = ? AND rr.redeemed_by = ?`,
		familyID, userID,
	).Scan(&spent)
	if err != nil {
		return 0, 0, fmt.Errorf("sum points spent: %w", err)
	}
	return earned, spent, nil
}

// GetPointBalance computes the balance for a single member: earned - spent.
func (s *RewardStore) GetPointBalance(familyID, userID int64) (*model.PointBalance, error) {
	var name string
	err := s.db.QueryRow(`SELECT name FROM users WHERE id = ?`, userID).Scan(&name)
	if err == sql.ErrNoRows {
		name = "Unknown"
	} else if err != nil {
		return nil, fmt.Errorf("get member name: %w", err)
	}

	earned, spent, err := pointTotals(s.db, familyID, userID)
	if err != nil {
		return nil, err
	}

	return &model.PointBalance{
		UserID:      userID,
		Name:        name,
		TotalEarned: earned,
		TotalSpent:  spent,
		Balance:     earned - spent,
	}, nil
}

// GetAllPointBalances returns point balances for all family members, ordered by balance DESC.
func (s *RewardStore) GetAllPointBalances(familyID int64) ([]model.PointBalance, error) {
	rows, err := s.db.Query(
		`SELECT u.id, u.name FROM family_members fm JOIN users u ON u.id = fm.user_id
		WHERE fm.family_id = ? ORDER BY fm.created_at ASC, fm.id ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	type memberInfo struct {
		ID   int64
		Name string
	}
	var members []memberInfo
	for rows.Next() {
		var m memberInfo
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	rows.Close()

	balances := make([]model.PointBalance, 0, len(members))
	for _, m := range members {
		earned, spent, err := pointTotals(s.db, familyID, m.ID)
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", m.ID, err)
		}
		balances = append(balances, model.PointBalance{
			UserID:      m.ID,
			Name:        m.Name,
			TotalEarned: earned,
			TotalSpent:  spent,
			Balance:     earned - spent,
		})
	}

	sort.SliceStable(balances, func(i, j int) bool {
		return balances[i].Balance > balances[j].Balance
	})
	return balances, nil
}
