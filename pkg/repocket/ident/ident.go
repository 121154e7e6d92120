// Package ident provides stable document identifiers. A document identifier
// is derived from the item's resolved URL, so the same article always maps to
// the same file set on the device across runs.
package ident

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ID is a canonical lowercase hyphenated UUID string. It is used both as the
// on-disk filename stem and as the reconciliation store's map key.
type ID string

// ErrInvalidID is returned when a string cannot be parsed as an identifier.
var ErrInvalidID = errors.New("invalid identifier")

// New returns a fresh random identifier. Used for the folder descriptors,
// which have no source URL to derive from.
func New() ID {
	return ID(uuid.New().String())
}

// FromURL derives the identifier for a document from its resolved URL.
// Equal URLs always yield equal identifiers (UUIDv5 over the OID namespace).
func FromURL(url string) ID {
	return ID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(url)).String())
}

// FromString parses and canonicalizes an identifier.
func FromString(s string) (ID, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty string", ErrInvalidID)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidID, s)
	}
	return ID(u.String()), nil
}

// IsZero reports whether the identifier is unset or the nil UUID.
func (id ID) IsZero() bool {
	return id == "" || id == ID(uuid.Nil.String())
}

func (id ID) String() string {
	return string(id)
}
