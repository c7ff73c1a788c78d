// Package contactsvc coordinates the contacts repository, the note log
// codec, and photo storage.
package contactsvc

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/book"
	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/media"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/notelog"
	"github.com/starford/othala/internal/photo"
)

// Preference keys stored in the repository's settings table.
const (
	PrefSortBySurname = "sort_by_surname"
	PrefCompactRows   = "compact_rows"
)

// EventCallback is invoked after a successful mutation.
// kind is one of "contact.created", "contact.updated", "contact.deleted",
// "note.appended", "note.edited".
type EventCallback func(kind, contactID string)

// ContactDetail is the full representation of a contact, with the note
// log parsed and rendered for display.
type ContactDetail struct {
	models.Contact
	Name     string                    `json:"name"`
	Revision string                    `json:"revision"`
	Segments []notelog.RenderedSegment `json:"segments"`
}

// ContactFields carries the editable contact fields for create/update.
type ContactFields struct {
	GivenName  string   `json:"given_name"`
	FamilyName string   `json:"family_name"`
	Org        string   `json:"org"`
	Phones     []string `json:"phones"`
	Emails     []string `json:"emails"`
	Favorite   bool     `json:"favorite"`
}

// Prefs are the durable user preference flags.
type Prefs struct {
	SortBySurname bool `json:"sort_by_surname"`
	CompactRows   bool `json:"compact_rows"`
}

// Service coordinates repository, note log, and media operations.
type Service struct {
	repo  book.Repository
	store media.Store
	onEvt EventCallback
}

// NewService creates a new contact service. store may be nil when photo
// support is disabled.
func NewService(repo book.Repository, store media.Store) *Service {
	return &Service{repo: repo, store: store}
}

// OnEvent registers a change callback (e.g. the SSE broker).
func (s *Service) OnEvent(cb EventCallback) {
	s.onEvt = cb
}

func (s *Service) emit(kind, id string) {
	if s.onEvt != nil {
		s.onEvt(kind, id)
	}
}

// GetContact returns the full contact detail including rendered note segments.
func (s *Service) GetContact(_ context.Context, id string) (*ContactDetail, error) {
	c, err := s.repo.GetContact(id)
	if err != nil {
		return nil, err
	}
	return buildDetail(c), nil
}

// CreateContact inserts a new contact with a fresh UUID.
func (s *Service) CreateContact(ctx context.Context, f ContactFields) (*ContactDetail, error) {
	c := &models.Contact{
		ID:         uuid.NewString(),
		GivenName:  f.GivenName,
		FamilyName: f.FamilyName,
		Org:        f.Org,
		Phones:     f.Phones,
		Emails:     f.Emails,
		Favorite:   f.Favorite,
	}
	if err := s.repo.CreateContact(c); err != nil {
		return nil, err
	}
	s.emit("contact.created", c.ID)
	return s.GetContact(ctx, c.ID)
}

// UpdateContact replaces the editable fields with optimistic concurrency:
// a non-empty ifMatch must equal the current revision checksum.
func (s *Service) UpdateContact(ctx context.Context, id string, f ContactFields, ifMatch string) (*ContactDetail, error) {
	c, err := s.repo.GetContact(id)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != revision(c) {
		return nil, apperr.ErrConflict
	}
	c.GivenName = f.GivenName
	c.FamilyName = f.FamilyName
	c.Org = f.Org
	c.Phones = f.Phones
	c.Emails = f.Emails
	c.Favorite = f.Favorite
	if err := s.repo.UpdateContact(c); err != nil {
		return nil, err
	}
	s.emit("contact.updated", id)
	return s.GetContact(ctx, id)
}

// DeleteContact removes a contact and its stored photo (best effort).
func (s *Service) DeleteContact(_ context.Context, id string) error {
	c, err := s.repo.GetContact(id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteContact(id); err != nil {
		return err
	}
	if c.PhotoPath != "" && s.store != nil {
		_ = s.store.Delete(c.PhotoPath)
	}
	s.emit("contact.deleted", id)
	return nil
}

// List returns contact summaries with optional containment search.
func (s *Service) List(_ context.Context, limit, offset int, query, sort string) ([]models.ContactSummary, int, error) {
	items, total, err := s.repo.ListContacts(limit, offset, query, sort)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []models.ContactSummary{}
	}
	return items, total, nil
}

// Notes returns the contact's parsed and rendered note log.
func (s *Service) Notes(_ context.Context, id string) ([]notelog.RenderedSegment, error) {
	raw, err := s.repo.FetchRawNotes(id)
	if err != nil {
		return nil, err
	}
	segs := notelog.RenderSegments(raw)
	if segs == nil {
		segs = []notelog.RenderedSegment{}
	}
	return segs, nil
}

// AddNote prepends a freshly timestamped entry to the contact's note log
// and returns the new entry's tag. The existing raw string is treated as
// an opaque suffix: unrelated entries are not reparsed on this path.
func (s *Service) AddNote(_ context.Context, id, content string, now time.Time) (string, error) {
	raw, err := s.repo.FetchRawNotes(id)
	if err != nil {
		return "", err
	}
	tag := notelog.FormatTag(now)
	next := notelog.PrependEntry(raw, tag+"\n"+content)
	if err := s.repo.ReplaceRawNotes(id, next); err != nil {
		return "", err
	}
	s.emit("note.appended", id)
	return tag, nil
}

// EditNote replaces the content of the segment identified by tag. The
// read-modify-write cycle is not transactional; a concurrent writer's
// change can be lost (last write wins).
func (s *Service) EditNote(_ context.Context, id, tag, content string) error {
	raw, err := s.repo.FetchRawNotes(id)
	if err != nil {
		return err
	}
	next, err := notelog.ApplyEdit(raw, tag, content)
	if err != nil {
		return err
	}
	if err := s.repo.ReplaceRawNotes(id, next); err != nil {
		return err
	}
	s.emit("note.edited", id)
	return nil
}

// SetPhoto decodes the uploaded image, applies the crop rectangle, stores
// the result, and records the path on the contact. Returns the stored
// relative path.
func (s *Service) SetPhoto(_ context.Context, id string, data []byte, rect photo.Rect) (string, error) {
	if s.store == nil {
		return "", fmt.Errorf("contactsvc: photo storage not configured")
	}
	c, err := s.repo.GetContact(id)
	if err != nil {
		return "", err
	}

	img, format, err := photo.Decode(data)
	if err != nil {
		return "", err
	}
	cropped, err := photo.Crop(img, rect)
	if err != nil {
		return "", err
	}
	out, err := photo.Encode(cropped, format)
	if err != nil {
		return "", err
	}

	path := "photos/" + id + photo.Ext(format)
	if err := s.store.Write(path, out); err != nil {
		return "", err
	}

	if old := c.PhotoPath; old != "" && old != path {
		_ = s.store.Delete(old)
	}
	c.PhotoPath = path
	if err := s.repo.UpdateContact(c); err != nil {
		return "", err
	}
	s.emit("contact.updated", id)
	return path, nil
}

// GetPrefs reads the preference flags; unset flags default to false.
func (s *Service) GetPrefs(_ context.Context) (Prefs, error) {
	var p Prefs
	for key, dst := range map[string]*bool{
		PrefSortBySurname: &p.SortBySurname,
		PrefCompactRows:   &p.CompactRows,
	} {
		v, err := s.repo.GetSetting(key)
		if err != nil {
			return Prefs{}, err
		}
		*dst, _ = strconv.ParseBool(v)
	}
	return p, nil
}

// SetPrefs stores the preference flags.
func (s *Service) SetPrefs(_ context.Context, p Prefs) error {
	if err := s.repo.SetSetting(PrefSortBySurname, strconv.FormatBool(p.SortBySurname)); err != nil {
		return err
	}
	return s.repo.SetSetting(PrefCompactRows, strconv.FormatBool(p.CompactRows))
}

// buildDetail renders a contact for presentation.
func buildDetail(c *models.Contact) *ContactDetail {
	segs := notelog.RenderSegments(c.Notes)
	if segs == nil {
		segs = []notelog.RenderedSegment{}
	}
	return &ContactDetail{
		Contact:  *c,
		Name:     c.DisplayName(),
		Revision: revision(c),
		Segments: segs,
	}
}

// revision is the optimistic-concurrency token for a contact record: a
// SHA-256 over the editable fields and the raw notes.
func revision(c *models.Contact) string {
	canonical := strings.Join([]string{
		c.ID, c.GivenName, c.FamilyName, c.Org,
		strings.Join(c.Phones, "\x1f"), strings.Join(c.Emails, "\x1f"),
		c.Notes, c.PhotoPath, strconv.FormatBool(c.Favorite),
	}, "\x1e")
	return checksum.Sum([]byte(canonical))
}
