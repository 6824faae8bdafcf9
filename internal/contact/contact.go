// Package contact stores the emergency contact list for offline access.
//
// Contact management screens live in the host application; this package is
// the durable side-store they read and write through, plus the validation
// the pipeline relies on when composing alerts.
package contact

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrNotFound is returned when the requested contact does not exist.
var ErrNotFound = errors.New("contact: not found")

// phonePattern is the accepted national phone format (+254 followed by nine
// digits).
var phonePattern = regexp.MustCompile(`^\+254[0-9]{9}$`)

// Contact is a trusted person to notify in an emergency.
type Contact struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`

	// IsPrimary marks the preferred first contact. At most one contact
	// should be primary; the host UI maintains that, not this store.
	IsPrimary bool `json:"is_primary"`
}

// Validate checks that c has the required fields and an acceptable phone
// number. It returns a joined error listing every problem found.
func (c Contact) Validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if c.Phone == "" {
		errs = append(errs, errors.New("phone is required"))
	} else if !phonePattern.MatchString(c.Phone) {
		errs = append(errs, fmt.Errorf("phone %q must match +254XXXXXXXXX", c.Phone))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("contact: %w", err)
	}
	return nil
}

// Store is the contact side-store. Implementations must be safe for
// concurrent use and must survive process restart.
type Store interface {
	// Add validates and persists c, assigning an ID if empty.
	Add(ctx context.Context, c Contact) (Contact, error)

	// List returns all contacts in insertion order.
	List(ctx context.Context) ([]Contact, error)

	// Update replaces the stored contact with the same ID.
	Update(ctx context.Context, c Contact) error

	// Delete removes the contact with the given ID. Deleting an unknown ID
	// returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Primary returns the first contact marked primary, or the first contact
	// if none is marked. Returns ErrNotFound for an empty store.
	Primary(ctx context.Context) (Contact, error)
}
