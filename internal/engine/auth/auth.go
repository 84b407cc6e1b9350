package auth

import (
	"fmt"
	"strings"

	"liftbay/internal/domain"
)

// ForbiddenError indicates the actor's role does not permit the operation.
// It is deliberately distinct from a transition error so callers can avoid
// leaking whether the target entity exists to an unauthorized actor.
type ForbiddenError struct {
	Required []domain.Role
}

func (e ForbiddenError) Error() string {
	names := make([]string, len(e.Required))
	for i, r := range e.Required {
		names[i] = string(r)
	}
	return fmt.Sprintf("role %s required", strings.Join(names, " or "))
}

// Authorize reports whether the actor holds one of the required roles.
// Pure function; the role tag is its sole input besides the requirement.
func Authorize(actor domain.Actor, required ...domain.Role) bool {
	role := actor.Role
	if role == "" {
		// An actor with no role tag authorizes only client-scoped operations.
		role = domain.RoleClient
	}
	for _, want := range required {
		if role == want {
			return true
		}
	}
	return false
}

// Require is Authorize with a ForbiddenError on failure. It must be
// consulted before any entity is loaded.
func Require(actor domain.Actor, required ...domain.Role) error {
	if Authorize(actor, required...) {
		return nil
	}
	return ForbiddenError{Required: required}
}
