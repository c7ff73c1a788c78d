package book

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

// Sort modes accepted by ListContacts.
const (
	SortGivenName  = "given_name"
	SortFamilyName = "family_name"
	SortRecent     = "recent"
)

// CreateContact inserts a new contact. Returns apperr.ErrAlreadyExists
// when the id is already present.
func (db *DB) CreateContact(c *models.Contact) error {
	phones, _ := json.Marshal(emptyIfNil(c.Phones))
	emails, _ := json.Marshal(emptyIfNil(c.Emails))

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	_, err := db.conn.Exec(`
		INSERT INTO contacts (id, given_name, family_name, org, phones, emails, notes, photo_path, favorite, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.GivenName, c.FamilyName, c.Org, string(phones), string(emails),
		c.Notes, c.PhotoPath, boolToInt(c.Favorite), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrAlreadyExists
		}
		return fmt.Errorf("book: create contact: %w", err)
	}
	return nil
}

// GetContact returns the full contact record including the raw notes field.
func (db *DB) GetContact(id string) (*models.Contact, error) {
	row := db.conn.QueryRow(`
		SELECT id, given_name, family_name, org, phones, emails, notes, photo_path, favorite, created_at, updated_at
		FROM contacts WHERE id = ?
	`, id)
	return scanContact(row)
}

// UpdateContact replaces every field of an existing contact except the
// notes field, which has its own single-field primitive (ReplaceRawNotes).
func (db *DB) UpdateContact(c *models.Contact) error {
	phones, _ := json.Marshal(emptyIfNil(c.Phones))
	emails, _ := json.Marshal(emptyIfNil(c.Emails))
	c.UpdatedAt = time.Now().UTC()

	res, err := db.conn.Exec(`
		UPDATE contacts
		SET given_name = ?, family_name = ?, org = ?, phones = ?, emails = ?,
		    photo_path = ?, favorite = ?, updated_at = ?
		WHERE id = ?
	`, c.GivenName, c.FamilyName, c.Org, string(phones), string(emails),
		c.PhotoPath, boolToInt(c.Favorite), c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("book: update contact: %w", err)
	}
	return requireRow(res)
}

// DeleteContact removes a contact.
func (db *DB) DeleteContact(id string) error {
	res, err := db.conn.Exec(`DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("book: delete contact: %w", err)
	}
	return requireRow(res)
}

// ListContacts returns a page of contact summaries plus the total count.
// query, when non-empty, filters by simple substring containment over
// names, organisation, phones, and emails.
func (db *DB) ListContacts(limit, offset int, query, sort string) ([]models.ContactSummary, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := ""
	var args []any
	if query != "" {
		like := "%" + query + "%"
		where = `WHERE given_name LIKE ? OR family_name LIKE ? OR org LIKE ? OR phones LIKE ? OR emails LIKE ?`
		args = append(args, like, like, like, like, like)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM contacts `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("book: count contacts: %w", err)
	}

	order := `family_name COLLATE NOCASE, given_name COLLATE NOCASE`
	switch sort {
	case SortGivenName:
		order = `given_name COLLATE NOCASE, family_name COLLATE NOCASE`
	case SortRecent:
		order = `updated_at DESC`
	}

	rows, err := db.conn.Query(fmt.Sprintf(`
		SELECT id, given_name, family_name, org, favorite, updated_at
		FROM contacts %s
		ORDER BY favorite DESC, %s
		LIMIT ? OFFSET ?
	`, where, order), append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("book: list contacts: %w", err)
	}
	defer rows.Close()

	var out []models.ContactSummary
	for rows.Next() {
		var s models.ContactSummary
		var fav int
		if err := rows.Scan(&s.ID, &s.GivenName, &s.FamilyName, &s.Org, &fav, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		s.Favorite = fav != 0
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// FetchRawNotes returns the current notes field content (possibly empty).
func (db *DB) FetchRawNotes(id string) (string, error) {
	var raw string
	err := db.conn.QueryRow(`SELECT notes FROM contacts WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("book: fetch notes: %w", err)
	}
	return raw, nil
}

// ReplaceRawNotes atomically overwrites the notes field. There is no
// partial-field patch primitive; callers hand over the full new value.
func (db *DB) ReplaceRawNotes(id, raw string) error {
	res, err := db.conn.Exec(`UPDATE contacts SET notes = ?, updated_at = ? WHERE id = ?`,
		raw, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("book: replace notes: %w", err)
	}
	return requireRow(res)
}

// GetSetting returns a preference value, or empty string when unset.
func (db *DB) GetSetting(key string) (string, error) {
	var v string
	err := db.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("book: get setting: %w", err)
	}
	return v, nil
}

// SetSetting stores a preference value.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("book: set setting: %w", err)
	}
	return nil
}

func scanContact(row *sql.Row) (*models.Contact, error) {
	var (
		c              models.Contact
		phones, emails string
		fav            int
	)
	err := row.Scan(&c.ID, &c.GivenName, &c.FamilyName, &c.Org, &phones, &emails,
		&c.Notes, &c.PhotoPath, &fav, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("book: scan contact: %w", err)
	}
	_ = json.Unmarshal([]byte(phones), &c.Phones)
	_ = json.Unmarshal([]byte(emails), &c.Emails)
	c.Favorite = fav != 0
	return &c, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
