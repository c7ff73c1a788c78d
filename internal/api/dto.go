package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/othala/internal/contactsvc"
	"github.com/starford/othala/internal/models"
)

// ContactRequest is the request body for creating or updating a contact.
type ContactRequest struct {
	GivenName  string   `json:"given_name"`
	FamilyName string   `json:"family_name"`
	Org        string   `json:"org"`
	Phones     []string `json:"phones"`
	Emails     []string `json:"emails"`
	Favorite   bool     `json:"favorite"`
}

// Validate checks field lengths and requires at least one display field.
func (r ContactRequest) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.GivenName, validation.Length(0, 200)),
		validation.Field(&r.FamilyName, validation.Length(0, 200)),
		validation.Field(&r.Org, validation.Length(0, 200)),
		validation.Field(&r.Phones, validation.Each(validation.Length(1, 64))),
		validation.Field(&r.Emails, validation.Each(validation.Length(3, 254))),
	); err != nil {
		return err
	}
	if r.GivenName == "" && r.FamilyName == "" && r.Org == "" {
		return validation.NewError("validation_empty_contact", "one of given_name, family_name, or org is required")
	}
	return nil
}

// Fields converts the request into service-layer fields.
func (r ContactRequest) Fields() contactsvc.ContactFields {
	return contactsvc.ContactFields{
		GivenName:  r.GivenName,
		FamilyName: r.FamilyName,
		Org:        r.Org,
		Phones:     r.Phones,
		Emails:     r.Emails,
		Favorite:   r.Favorite,
	}
}

// NoteRequest is the request body for adding or editing a note entry.
type NoteRequest struct {
	Content string `json:"content"`
}

// Validate requires non-empty content within the notes-field budget.
func (r NoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required, validation.Length(1, 64<<10)),
	)
}

// NoteCreatedResponse reports the tag assigned to a new note entry.
type NoteCreatedResponse struct {
	Timestamp string `json:"timestamp"`
}

// ContactListResponse wraps paginated contact listings.
type ContactListResponse struct {
	Contacts []ContactSummary `json:"contacts"`
	Total    int              `json:"total"`
}

// ContactDetail is the full contact response type (aliased from the
// domain layer).
type ContactDetail = contactsvc.ContactDetail

// ContactSummary is a lightweight item in a list response (aliased from
// the domain layer).
type ContactSummary = models.ContactSummary

// PhotoUploadResponse is returned after a successful photo upload.
type PhotoUploadResponse struct {
	PhotoPath string `json:"photo_path"`
	URL       string `json:"url"`
}
