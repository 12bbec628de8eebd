// Package caller identifies the authenticated principal a service call is
// made on behalf of.
package caller

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Alijeyrad/mindcare_backend/internal/store"
	"github.com/Alijeyrad/mindcare_backend/pkg/reqctx"
)

var ErrUnauthenticated = errors.New("caller: request is not authenticated")

type Caller struct {
	ID   uuid.UUID
	Role store.Role
}

func (c Caller) IsAdmin() bool   { return c.Role == store.RoleAdmin }
func (c Caller) IsDoctor() bool  { return c.Role == store.RoleDoctor }
func (c Caller) IsPatient() bool { return c.Role == store.RolePatient }

// Is reports whether c is the user id.
func (c Caller) Is(id uuid.UUID) bool { return c.ID != uuid.Nil && c.ID == id }

// FromContext builds the caller from the token claims set by the auth
// middleware.
func FromContext(ctx context.Context) (Caller, error) {
	if !reqctx.IsAuthenticated(ctx) {
		return Caller{}, ErrUnauthenticated
	}
	claims := reqctx.ClaimsFromContext(ctx)
	role := store.Role(claims.GetRole())
	if !role.Valid() {
		return Caller{}, ErrUnauthenticated
	}
	return Caller{ID: claims.GetUserID(), Role: role}, nil
}
