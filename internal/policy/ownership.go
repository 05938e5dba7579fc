package policy

import (
	"context"

	"github.com/ares-dev-tech/dashboard/gate"
)

// Ownable is implemented by every model scoped to a user.
type Ownable interface {
	GetUserID() uint
}

// OwnershipPolicy allows a user to act on the records they own.
type OwnershipPolicy struct{}

func NewOwnershipPolicy() *OwnershipPolicy {
	return &OwnershipPolicy{}
}

// Can reports whether userID owns resource. A nil resource (list, create)
// is always allowed: the query itself is scoped to the user. Resources that
// are not Ownable are denied.
func (p *OwnershipPolicy) Can(_ context.Context, userID uint, _ gate.Action, resource any) bool {
	if resource == nil {
		return true
	}
	ownable, ok := resource.(Ownable)
	if !ok {
		return false
	}
	return ownable.GetUserID() == userID
}
