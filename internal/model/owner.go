package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// OwnerKey identifies who a seat lock belongs to: either an authenticated
// user or an anonymous guest session.  Exactly one of the two is set; the
// zero value means "no owner".  Constructing through UserOwner/GuestOwner
// keeps the two sides mutually exclusive instead of carrying two nullable
// fields around.
type OwnerKey struct {
	kind    ownerKind
	userID  uint64
	session string
}

type ownerKind uint8

const (
	ownerNone ownerKind = iota
	ownerUser
	ownerGuest
)

// ErrBadOwnerKey is returned when a stored owner key string cannot be
// parsed back into an OwnerKey.
var ErrBadOwnerKey = errors.New("malformed owner key")

// UserOwner builds an owner key for an authenticated user.
func UserOwner(userID uint64) OwnerKey {
	return OwnerKey{kind: ownerUser, userID: userID}
}

// GuestOwner builds an owner key for a guest session.
func GuestOwner(sessionID string) OwnerKey {
	return OwnerKey{kind: ownerGuest, session: sessionID}
}

// IsZero reports whether no owner is set.
func (k OwnerKey) IsZero() bool { return k.kind == ownerNone }

// User returns the user ID and true when the key belongs to an
// authenticated user.
func (k OwnerKey) User() (uint64, bool) {
	return k.userID, k.kind == ownerUser
}

// Guest returns the guest session ID and true when the key belongs to a
// guest session.
func (k OwnerKey) Guest() (string, bool) {
	return k.session, k.kind == ownerGuest
}

// String renders the canonical form stored in the locks table and in the
// fast lock store: "user:<id>" or "guest:<session>".  The zero value
// renders as an empty string.
func (k OwnerKey) String() string {
	switch k.kind {
	case ownerUser:
		return fmt.Sprintf("user:%d", k.userID)
	case ownerGuest:
		return "guest:" + k.session
	}
	return ""
}

// ParseOwnerKey converts a stored "user:<id>" / "guest:<session>" string
// back into an OwnerKey.
func ParseOwnerKey(s string) (OwnerKey, error) {
	prefix, rest, ok := strings.Cut(s, ":")
	if !ok || rest == "" {
		return OwnerKey{}, ErrBadOwnerKey
	}
	switch prefix {
	case "user":
		id, err := strconv.ParseUint(rest, 10, 64)
		if err != nil || id == 0 {
			return OwnerKey{}, ErrBadOwnerKey
		}
		return UserOwner(id), nil
	case "guest":
		return GuestOwner(rest), nil
	}
	return OwnerKey{}, ErrBadOwnerKey
}
