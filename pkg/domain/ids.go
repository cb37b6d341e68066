package domain

import (
	"github.com/google/uuid"

	dErrors "prospector/pkg/domain-errors"
)

// UserID identifies an account across the identity service and the document
// store: the credential id doubles as the key of the users and salespeople
// records.
type UserID uuid.UUID

// NewUserID returns a fresh random UserID.
func NewUserID() UserID {
	return UserID(uuid.New())
}

// ParseUserID parses a non-nil UUID string.
func ParseUserID(s string) (UserID, error) {
	if s == "" {
		return UserID{}, dErrors.New(dErrors.CodeInvalidArgument, "user id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, dErrors.New(dErrors.CodeInvalidArgument, "user id must be a valid uuid")
	}
	if parsed == uuid.Nil {
		return UserID{}, dErrors.New(dErrors.CodeInvalidArgument, "user id must not be nil")
	}
	return UserID(parsed), nil
}

func (id UserID) String() string {
	return uuid.UUID(id).String()
}

func (id UserID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}
