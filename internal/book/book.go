package book

import "github.com/starford/othala/internal/models"

// Repository defines the contacts-store boundary. The core treats the
// store as an opaque record keeper: contact fields plus one free-text
// notes field with a single-field replace primitive. Consumers should
// depend on this interface rather than the concrete *DB type so a
// platform-native store could swap in.
type Repository interface {
	CreateContact(c *models.Contact) error
	GetContact(id string) (*models.Contact, error)
	UpdateContact(c *models.Contact) error
	DeleteContact(id string) error
	ListContacts(limit, offset int, query, sort string) ([]models.ContactSummary, int, error)

	// FetchRawNotes returns the current notes field content (possibly empty).
	FetchRawNotes(id string) (string, error)
	// ReplaceRawNotes atomically overwrites the notes field.
	ReplaceRawNotes(id, raw string) error

	GetSetting(key string) (string, error)
	SetSetting(key, value string) error

	Close() error
}

// Verify *DB satisfies Repository at compile time.
var _ Repository = (*DB)(nil)
