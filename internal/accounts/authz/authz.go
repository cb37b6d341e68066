// Package authz decides whether the caller may manage salesperson accounts.
package authz

import (
	"context"
	"errors"

	"prospector/internal/accounts/models"
	"prospector/internal/docstore"
	id "prospector/pkg/domain"
	dErrors "prospector/pkg/domain-errors"
	"prospector/pkg/platform/sentinel"
	"prospector/pkg/requestcontext"
)

// Reader is the point-read side of the document store.
type Reader interface {
	Get(ctx context.Context, ref docstore.Ref) (docstore.Document, error)
}

// Caller is an authorized principal.
type Caller struct {
	ID   id.UserID
	Role models.Role
}

// Guard checks the caller's users record on every call and caches nothing.
type Guard struct {
	reader Reader
}

func NewGuard(reader Reader) (*Guard, error) {
	if reader == nil {
		return nil, errors.New("document reader is required")
	}
	return &Guard{reader: reader}, nil
}

// Authorize requires an authenticated caller whose users record has the
// super_admin role. It performs exactly one store read.
func (g *Guard) Authorize(ctx context.Context) (Caller, error) {
	callerID := requestcontext.UserID(ctx)
	if callerID.IsNil() {
		return Caller{}, dErrors.New(dErrors.CodeUnauthenticated, "you must be authenticated to perform this action")
	}

	doc, err := g.reader.Get(ctx, models.UserRef(callerID))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Caller{}, dErrors.New(dErrors.CodePermissionDenied, "you do not have permission to manage salespeople")
		}
		return Caller{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load caller")
	}

	role := models.RoleOf(doc)
	if role != models.RoleSuperAdmin {
		return Caller{}, dErrors.New(dErrors.CodePermissionDenied, "you do not have permission to manage salespeople")
	}
	return Caller{ID: callerID, Role: role}, nil
}
