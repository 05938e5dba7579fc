package gate

import "context"

// Policy decides whether user may perform action on resource.
// For list/create the resource is nil.
type Policy[U any] interface {
	Can(ctx context.Context, user U, action Action, resource any) bool
}

// PolicyFunc adapts a plain function to Policy.
type PolicyFunc[U any] func(ctx context.Context, user U, action Action, resource any) bool

// Can implements Policy.
func (f PolicyFunc[U]) Can(ctx context.Context, user U, action Action, resource any) bool {
	return f(ctx, user, action, resource)
}

// AllowActions restricts an inner policy to a set of actions; anything else is denied.
func AllowActions[U any](inner Policy[U], actions ...Action) Policy[U] {
	allowed := make(map[Action]struct{}, len(actions))
	for _, a := range actions {
		allowed[a] = struct{}{}
	}
	return PolicyFunc[U](func(ctx context.Context, user U, action Action, resource any) bool {
		if _, ok := allowed[action]; !ok {
			return false
		}
		return inner.Can(ctx, user, action, resource)
	})
}
