package authorize

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Alijeyrad/mindcare_backend/pkg/reqctx"
)

var ErrNoSubjectInContext = errors.New("no subject found in context")

// SubjectFromContext returns the casbin subject of the authenticated user.
func SubjectFromContext(ctx context.Context) (GroupSubject, error) {
	claims := reqctx.ClaimsFromContext(ctx)
	if claims == nil || claims.GetUserID() == uuid.Nil {
		return "", ErrNoSubjectInContext
	}
	return GroupSubject(claims.GetUserID().String()), nil
}
