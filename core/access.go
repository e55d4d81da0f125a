package core

// Authorize decides whether principal may perform an operation on a
// resource. It is a pure function of its inputs: no side effects, no
// persistence dependency.
//
// Rules, evaluated in order:
//  1. requiredRole set and principal's role differs -> ErrRoleRequired.
//  2. ownerID set, principal is neither the owner nor an admin -> ErrNotOwner.
//  3. otherwise allowed.
//
// Pass the zero value to skip a check.
func Authorize(principal *User, ownerID string, requiredRole Role) error {
	if principal == nil {
		return ErrUnauthenticated
	}

	if requiredRole != "" && principal.Role != requiredRole {
		return ErrRoleRequired
	}

	if ownerID != "" && principal.ID != ownerID && principal.Role != RoleAdmin {
		return ErrNotOwner
	}

	return nil
}
