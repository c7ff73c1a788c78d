package contactsvc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/photo"
	"github.com/starford/othala/internal/testutil"
)

func testService(t *testing.T) *Service {
	t.Helper()
	repo := testutil.TestBook(t)
	_, store := testutil.TestMedia(t)
	return NewService(repo, store)
}

func createContact(t *testing.T, svc *Service, given, family string) *ContactDetail {
	t.Helper()
	d, err := svc.CreateContact(context.Background(), ContactFields{
		GivenName:  given,
		FamilyName: family,
	})
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	return d
}

func TestCreateAndGetContact(t *testing.T) {
	svc := testService(t)
	d := createContact(t, svc, "Ada", "Lovelace")
	if d.ID == "" {
		t.Fatal("expected generated id")
	}
	if d.Name != "Ada Lovelace" {
		t.Errorf("name = %q", d.Name)
	}
	if d.Revision == "" {
		t.Error("expected revision checksum")
	}
	if len(d.Segments) != 0 {
		t.Errorf("fresh contact segments = %+v", d.Segments)
	}
}

func TestUpdateContact_RevisionConflict(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	d := createContact(t, svc, "Grace", "Hopper")

	// Matching revision succeeds.
	upd, err := svc.UpdateContact(ctx, d.ID, ContactFields{GivenName: "Grace", FamilyName: "Hopper", Org: "Navy"}, d.Revision)
	if err != nil {
		t.Fatalf("UpdateContact: %v", err)
	}
	if upd.Org != "Navy" {
		t.Errorf("org = %q", upd.Org)
	}

	// Stale revision conflicts.
	_, err = svc.UpdateContact(ctx, d.ID, ContactFields{GivenName: "G"}, d.Revision)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}

	// Empty If-Match skips the check.
	if _, err := svc.UpdateContact(ctx, d.ID, ContactFields{GivenName: "G2"}, ""); err != nil {
		t.Errorf("unconditional update: %v", err)
	}
}

func TestAddNote_PrependsNewestFirst(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	d := createContact(t, svc, "Note", "Taker")

	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	tag1, err := svc.AddNote(ctx, d.ID, "first written", t1)
	if err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	tag2, err := svc.AddNote(ctx, d.ID, "second written", t2)
	if err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if tag1 == tag2 {
		t.Fatalf("tags must differ")
	}

	segs, err := svc.Notes(ctx, d.ID)
	if err != nil {
		t.Fatalf("Notes: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("len = %d, want 2", len(segs))
	}
	// Newest entry first.
	if segs[0].Timestamp != tag2 || segs[0].Content != "second written" {
		t.Errorf("segment 0 = %+v", segs[0])
	}
	if segs[1].Timestamp != tag1 || segs[1].Content != "first written" {
		t.Errorf("segment 1 = %+v", segs[1])
	}
}

func TestEditNote_TargetsOnlyOneSegment(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	d := createContact(t, svc, "Edit", "Target")

	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	tag1, _ := svc.AddNote(ctx, d.ID, "keep me", t1)
	tag2, _ := svc.AddNote(ctx, d.ID, "edit me", t2)

	if err := svc.EditNote(ctx, d.ID, tag2, "edited"); err != nil {
		t.Fatalf("EditNote: %v", err)
	}
	segs, _ := svc.Notes(ctx, d.ID)
	if segs[0].Content != "edited" {
		t.Errorf("edited segment = %+v", segs[0])
	}
	if segs[1].Timestamp != tag1 || segs[1].Content != "keep me" {
		t.Errorf("untouched segment = %+v", segs[1])
	}
}

func TestEditNote_SegmentNotFound(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	d := createContact(t, svc, "No", "Segment")
	_, _ = svc.AddNote(ctx, d.ID, "only entry", time.Now())

	err := svc.EditNote(ctx, d.ID, "[1999-01-01T00:00:00Z]", "x")
	if !errors.Is(err, apperr.ErrSegmentNotFound) {
		t.Errorf("err = %v, want ErrSegmentNotFound", err)
	}

	// The log is untouched after a failed edit.
	segs, _ := svc.Notes(ctx, d.ID)
	if len(segs) != 1 || segs[0].Content != "only entry" {
		t.Errorf("segments after failed edit = %+v", segs)
	}
}

func TestNotes_RendersMarkup(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	d := createContact(t, svc, "Rich", "Text")
	_, _ = svc.AddNote(ctx, d.ID, "**call** tomorrow", time.Now())

	segs, _ := svc.Notes(ctx, d.ID)
	if len(segs) != 1 || len(segs[0].Spans) != 2 {
		t.Fatalf("segments = %+v", segs)
	}
	if !segs[0].Spans[0].Style.Has(models.StyleBold) || segs[0].Spans[0].Text != "call" {
		t.Errorf("spans = %+v", segs[0].Spans)
	}
}

func TestSetPhoto_CropAndStore(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	d := createContact(t, svc, "Photo", "Genic")

	data := testutil.TestPNG(t, 20, 20)
	path, err := svc.SetPhoto(ctx, d.ID, data, photo.Rect{X: 5, Y: 5, W: 10, H: 10})
	if err != nil {
		t.Fatalf("SetPhoto: %v", err)
	}
	if path == "" {
		t.Fatal("expected stored path")
	}

	got, err := svc.GetContact(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.PhotoPath != path {
		t.Errorf("photo path = %q, want %q", got.PhotoPath, path)
	}
}

func TestSetPhoto_BadImage(t *testing.T) {
	svc := testService(t)
	d := createContact(t, svc, "Bad", "Bytes")
	if _, err := svc.SetPhoto(context.Background(), d.ID, []byte("junk"), photo.Rect{W: 1, H: 1}); err == nil {
		t.Error("expected decode error")
	}
}

func TestDeleteContact_EmitsEvent(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	var events []string
	svc.OnEvent(func(kind, id string) { events = append(events, kind) })

	d := createContact(t, svc, "Ev", "Ent")
	if err := svc.DeleteContact(ctx, d.ID); err != nil {
		t.Fatal(err)
	}

	want := []string{"contact.created", "contact.deleted"}
	if len(events) != len(want) {
		t.Fatalf("events = %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, events[i], want[i])
		}
	}
}

func TestPrefs_RoundTrip(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	p, err := svc.GetPrefs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if p.SortBySurname || p.CompactRows {
		t.Errorf("defaults = %+v, want false/false", p)
	}

	if err := svc.SetPrefs(ctx, Prefs{SortBySurname: true}); err != nil {
		t.Fatal(err)
	}
	p, _ = svc.GetPrefs(ctx)
	if !p.SortBySurname || p.CompactRows {
		t.Errorf("prefs = %+v", p)
	}
}
