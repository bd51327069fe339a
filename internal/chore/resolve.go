package chore

import "github.com/dukerupert/choreboard/internal/model"

// State is the (status, approval) pair persisted on a chore instance.
type State struct {
	Status   model.ChoreStatus
	Approval model.ApprovalStatus
}

// DefaultState applies when no instance row exists.
var DefaultState = State{Status: model.StatusIncomplete, Approval: model.ApprovalUnapproved}

// Request carries the fields a caller actually sent. A nil field was omitted
// and must not be confused with a field that was sent with a default value.
type Request struct {
	Status   *model.ChoreStatus
	Approval *model.ApprovalStatus
}

// Resolve computes the next state of an instance. The first matching rule wins:
//
//  1. an explicit complete status yields (complete, unapproved), whatever
//     approval was also sent;
//  2. an explicit rejected or unapproved approval forces status incomplete;
//  3. otherwise each omitted field carries over from existing, or from
//     DefaultState when existing is nil.
func Resolve(existing *State, req Request) State {
	if req.Status != nil && *req.Status == model.StatusComplete {
		return State{Status: model.StatusComplete, Approval: model.ApprovalUnapproved}
	}

	if req.Approval != nil && (*req.Approval == model.ApprovalRejected || *req.Approval == model.ApprovalUnapproved) {
		return State{Status: model.StatusIncomplete, Approval: *req.Approval}
	}

	next := DefaultState
	if existing != nil {
		next = *existing
	}
	if req.Status != nil {
		next.Status = *req.Status
	}
	if req.Approval != nil {
		next.Approval = *req.Approval
	}
	return next
}
