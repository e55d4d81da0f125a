package core

import (
	"errors"
	"testing"
)

// Requirement: Authorize evaluates role, then ownership, then allows;
// admins bypass ownership but not role checks for other roles.
func TestAuthorize(t *testing.T) {
	owner := &User{ID: "user_owner", Role: RoleUser}
	stranger := &User{ID: "user_stranger", Role: RoleUser}
	admin := &User{ID: "user_admin", Role: RoleAdmin}

	tests := []struct {
		name         string
		principal    *User
		ownerID      string
		requiredRole Role
		wantErr      error
	}{
		{name: "owner reads own resource", principal: owner, ownerID: "user_owner"},
		{name: "admin reads someone else's resource", principal: admin, ownerID: "user_owner"},
		{name: "stranger denied", principal: stranger, ownerID: "user_owner", wantErr: ErrNotOwner},
		{name: "non-admin denied admin operation", principal: owner, requiredRole: RoleAdmin, wantErr: ErrRoleRequired},
		{name: "admin allowed admin operation", principal: admin, requiredRole: RoleAdmin},
		{name: "role check precedes ownership check", principal: owner, ownerID: "user_owner", requiredRole: RoleAdmin, wantErr: ErrRoleRequired},
		{name: "no checks requested", principal: stranger},
		{name: "nil principal", principal: nil, ownerID: "user_owner", wantErr: ErrUnauthenticated},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := Authorize(test.principal, test.ownerID, test.requiredRole)

			if test.wantErr == nil {
				if err != nil {
					t.Fatalf("Authorize() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("Authorize() = %v, want %v", err, test.wantErr)
			}
		})
	}
}
