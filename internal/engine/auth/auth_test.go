package auth

import (
	"errors"
	"testing"

	"liftbay/internal/domain"
)

func TestAuthorize(t *testing.T) {
	cases := []struct {
		name     string
		actor    domain.Actor
		required []domain.Role
		want     bool
	}{
		{"exact match", domain.Actor{ID: "a", Role: domain.RoleManager}, []domain.Role{domain.RoleManager}, true},
		{"one of several", domain.Actor{ID: "a", Role: domain.RoleStockKeeper}, []domain.Role{domain.RoleStockKeeper, domain.RoleManager}, true},
		{"wrong role", domain.Actor{ID: "a", Role: domain.RoleMechanic}, []domain.Role{domain.RoleManager}, false},
		{"manager is not a receptionist", domain.Actor{ID: "a", Role: domain.RoleManager}, []domain.Role{domain.RoleReceptionist}, false},
		{"empty role defaults to client", domain.Actor{ID: "a"}, []domain.Role{domain.RoleClient}, true},
		{"empty role is not staff", domain.Actor{ID: "a"}, []domain.Role{domain.RoleMechanic}, false},
		{"no requirement matches nothing", domain.Actor{ID: "a", Role: domain.RoleManager}, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Authorize(tc.actor, tc.required...); got != tc.want {
				t.Fatalf("Authorize = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRequire(t *testing.T) {
	if err := Require(domain.Actor{ID: "a", Role: domain.RoleManager}, domain.RoleManager); err != nil {
		t.Fatalf("authorized actor: %v", err)
	}
	err := Require(domain.Actor{ID: "a", Role: domain.RoleClient}, domain.RoleReceptionist, domain.RoleManager)
	var fe ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want ForbiddenError", err)
	}
	if fe.Error() != "role Receptionist or Manager required" {
		t.Fatalf("message = %q", fe.Error())
	}
}
