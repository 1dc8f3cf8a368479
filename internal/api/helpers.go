package api

import (
	"strings"

	domainerrors "github.com/roadbook/roadbook-server/internal/errors"
)

// OwnerHeader carries the caller's owner scope.
const OwnerHeader = "X-Owner-ID"

// requireOwner returns the owner id from the X-Owner-ID header value.
func requireOwner(ownerID string) (string, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return "", domainerrors.Validation("missing " + OwnerHeader + " header")
	}
	return ownerID, nil
}
