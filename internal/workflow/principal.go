package workflow

import "github.com/protomem/credit-bank/internal/model"

// Principal is the authenticated caller of an operation.
type Principal struct {
	ID         model.ID
	Privileged bool
}

// Scope returns the owner restriction for get and list operations. A nil
// result means no restriction and is only produced for privileged callers.
func Scope(p Principal, requested *model.ID, personal bool) *model.ID {
	own := p.ID

	if !p.Privileged || personal {
		return &own
	}
	if requested != nil {
		id := *requested
		return &id
	}
	return nil
}

func (p Principal) owns(userID model.ID) bool {
	return p.ID == userID
}

// targetUser resolves the user a new order or credit is created for. Only
// privileged callers may act on behalf of another user.
func (p Principal) targetUser(requested model.ID) (model.ID, error) {
	if requested == 0 || p.owns(requested) {
		return p.ID, nil
	}
	if !p.Privileged {
		return 0, model.ErrForbidden
	}
	return requested, nil
}
