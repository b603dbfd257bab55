package approval

import "github.com/expensehub/expensehub/internal"

// DecisionDTO carries the optional comment on an approve action.
type DecisionDTO struct {
	Comments string `json:"comments"`
}

// RejectDTO requires a reason so the employee knows what to fix.
type RejectDTO struct {
	Reason string `json:"reason"`
}

func (d *RejectDTO) Validate() error {
	if d.Reason == "" {
		return internal.NewValidationError("rejection reason is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

// EscalateDTO names the user the decision is handed to.
type EscalateDTO struct {
	TargetUserID int64  `json:"target_user_id"`
	Reason       string `json:"reason"`
}

func (d *EscalateDTO) Validate() error {
	if d.TargetUserID <= 0 {
		return internal.NewValidationError("target_user_id is required", internal.ErrCodeValidationFailed)
	}
	return nil
}
