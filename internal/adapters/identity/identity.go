// Package identity resolves user ids to display names.
//
// Users are owned by an external identity collaborator; this package only
// reads them and never creates or mutates user records.
package identity

import (
	"context"
	"errors"
)

// ErrNotFound marks a user id with no identity record.
var ErrNotFound = errors.New("user not found")

// Resolver looks up presentation data for a user.
type Resolver interface {
	// DisplayName returns the display name for userID, or ErrNotFound.
	DisplayName(ctx context.Context, userID string) (string, error)
}
