// Package permissions decides whether an actor may operate on a user record.
package permissions

// Decision is the outcome of a policy evaluation.
type Decision int

const (
	// Allow lets the request proceed.
	Allow Decision = iota
	// DenyUnauthenticated means no actor was identified (HTTP 401).
	DenyUnauthenticated
	// DenyForbidden means the actor is known but not allowed (HTTP 403).
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "unauthenticated"
	case DenyForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Operation identifies what the actor wants to do.
type Operation string

const (
	OpList                Operation = "user.list"
	OpRetrieve            Operation = "user.retrieve"
	OpUpdate              Operation = "user.update"
	OpDelete              Operation = "user.delete"
	OpManageNotifications Operation = "notification.manage"
)

// adminOnly reports operations that never apply to a single owned record.
func (op Operation) adminOnly() bool {
	return op == OpList || op == OpManageNotifications
}

// Actor is the authenticated identity behind a request.
type Actor struct {
	UserID     string
	IsAdmin    bool
	IsVerified bool
}

// Decide evaluates the access rules in order:
//  1. no actor is unauthenticated
//  2. admins may do anything
//  3. unverified actors are forbidden, even on themselves
//  4. collection and notification operations need an admin
//  5. verified actors may act on their own record only
func Decide(actor *Actor, op Operation, targetID string) Decision {
	if actor == nil || actor.UserID == "" {
		return DenyUnauthenticated
	}
	if actor.IsAdmin {
		return Allow
	}
	if !actor.IsVerified {
		return DenyForbidden
	}
	if op.adminOnly() {
		return DenyForbidden
	}
	if targetID != "" && targetID == actor.UserID {
		return Allow
	}
	return DenyForbidden
}
