// Package models defines the domain types for Othala.
package models

import "time"

// Contact represents one entry in the address book.
// Notes holds the raw notes field as stored; it is the single durable
// representation of the contact's note log (see the notelog package).
type Contact struct {
	ID         string    `json:"id"`
	GivenName  string    `json:"given_name"`
	FamilyName string    `json:"family_name"`
	Org        string    `json:"org,omitempty"`
	Phones     []string  `json:"phones,omitempty"`
	Emails     []string  `json:"emails,omitempty"`
	Notes      string    `json:"-"`
	PhotoPath  string    `json:"photo_path,omitempty"`
	Favorite   bool      `json:"favorite"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DisplayName returns "Given Family", falling back to whichever part is set,
// then to the organisation.
func (c *Contact) DisplayName() string {
	switch {
	case c.GivenName != "" && c.FamilyName != "":
		return c.GivenName + " " + c.FamilyName
	case c.FamilyName != "":
		return c.FamilyName
	case c.GivenName != "":
		return c.GivenName
	default:
		return c.Org
	}
}

// ContactSummary is a lightweight representation returned by list operations.
type ContactSummary struct {
	ID         string    `json:"id"`
	GivenName  string    `json:"given_name"`
	FamilyName string    `json:"family_name"`
	Org        string    `json:"org,omitempty"`
	Favorite   bool      `json:"favorite"`
	UpdatedAt  time.Time `json:"updated_at"`
}
