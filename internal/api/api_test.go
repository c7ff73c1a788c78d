package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/othala/internal/contactsvc"
	"github.com/starford/othala/internal/testutil"
)

// testEnv sets up a temp repository, media store, service, and router.
// authToken="" means disabled mode; a non-empty token enables auth.
func testEnv(t *testing.T, authToken string) (*contactsvc.Service, http.Handler) {
	t.Helper()
	svc, router, _ := testEnvWithMedia(t, authToken != "", authToken)
	return svc, router
}

func testEnvWithMedia(t *testing.T, authEnabled bool, authToken string) (*contactsvc.Service, http.Handler, string) {
	t.Helper()

	repo := testutil.TestBook(t)
	mediaDir, store := testutil.TestMedia(t)

	svc := contactsvc.NewService(repo, store)
	router := NewRouter(svc, authEnabled, authToken, nil, store)
	return svc, router, mediaDir
}

func createContact(t *testing.T, router http.Handler, fields map[string]any) ContactDetail {
	t.Helper()
	body, _ := json.Marshal(fields)
	req := httptest.NewRequest(http.MethodPost, "/contacts", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var detail ContactDetail
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return detail
}

func TestCreateAndGetContact(t *testing.T) {
	_, router := testEnv(t, "")

	created := createContact(t, router, map[string]any{
		"given_name": "Grace", "family_name": "Hopper", "org": "Navy",
	})
	if created.ID == "" {
		t.Fatal("created contact has no id")
	}
	if created.Name != "Grace Hopper" {
		t.Errorf("name = %q", created.Name)
	}

	req := httptest.NewRequest(http.MethodGet, "/contacts/"+created.ID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got ContactDetail
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.GivenName != "Grace" || got.Org != "Navy" {
		t.Errorf("got = %+v", got)
	}
	if got.Revision == "" {
		t.Error("revision should be set")
	}
}

func TestCreateContact_EmptyRejected(t *testing.T) {
	_, router := testEnv(t, "")

	body, _ := json.Marshal(map[string]any{"phones": []string{"+1 555"}})
	req := httptest.NewRequest(http.MethodPost, "/contacts", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty contact = %d, want 400", w.Code)
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	_, router := testEnv(t, "")

	created := createContact(t, router, map[string]any{"given_name": "Alan", "family_name": "Turing"})

	// Update with correct revision.
	updateBody, _ := json.Marshal(map[string]any{"given_name": "Alan", "family_name": "Turing", "org": "NPL"})
	req := httptest.NewRequest(http.MethodPut, "/contacts/"+created.ID, bytes.NewReader(updateBody))
	req.Header.Set("If-Match", created.Revision)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update with correct revision = %d, body = %s", w.Code, w.Body.String())
	}

	// Update with stale revision → 409.
	req = httptest.NewRequest(http.MethodPut, "/contacts/"+created.ID, bytes.NewReader(updateBody))
	req.Header.Set("If-Match", created.Revision) // stale now
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("update with stale revision = %d, want 409", w.Code)
	}
}

func TestUpdateWithoutIfMatch(t *testing.T) {
	_, router := testEnv(t, "")

	created := createContact(t, router, map[string]any{"given_name": "Ada"})

	updateBody, _ := json.Marshal(map[string]any{"given_name": "Ada", "org": "Engines"})
	req := httptest.NewRequest(http.MethodPut, "/contacts/"+created.ID, bytes.NewReader(updateBody))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("update without If-Match = %d, want 200", w.Code)
	}
}

func TestDeleteContact(t *testing.T) {
	_, router := testEnv(t, "")

	created := createContact(t, router, map[string]any{"given_name": "Gone"})

	req := httptest.NewRequest(http.MethodDelete, "/contacts/"+created.ID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}

	// GET should now 404.
	req = httptest.NewRequest(http.MethodGet, "/contacts/"+created.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestListContacts_Search(t *testing.T) {
	_, router := testEnv(t, "")

	createContact(t, router, map[string]any{"given_name": "Alan", "family_name": "Turing"})
	createContact(t, router, map[string]any{"given_name": "Grace", "family_name": "Hopper"})

	req := httptest.NewRequest(http.MethodGet, "/contacts?q=uri&limit=10", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp ContactListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || len(resp.Contacts) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Contacts[0].FamilyName != "Turing" {
		t.Errorf("match = %q", resp.Contacts[0].FamilyName)
	}
}

func TestNoteAddEditFlow(t *testing.T) {
	_, router := testEnv(t, "")

	created := createContact(t, router, map[string]any{"given_name": "Notes"})

	// Add a note.
	body, _ := json.Marshal(map[string]string{"content": "Met at **the** conference"})
	req := httptest.NewRequest(http.MethodPost, "/contacts/"+created.ID+"/notes", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("add note = %d, body = %s", w.Code, w.Body.String())
	}
	var noteResp NoteCreatedResponse
	_ = json.Unmarshal(w.Body.Bytes(), &noteResp)
	if noteResp.Timestamp == "" {
		t.Fatal("no timestamp in add-note response")
	}

	// Edit it via the URL-escaped tag.
	editBody, _ := json.Marshal(map[string]string{"content": "Revised"})
	editURL := "/contacts/" + created.ID + "/notes/" + url.PathEscape(noteResp.Timestamp)
	req = httptest.NewRequest(http.MethodPut, editURL, bytes.NewReader(editBody))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("edit note = %d, body = %s", w.Code, w.Body.String())
	}

	// List shows the revised content.
	req = httptest.NewRequest(http.MethodGet, "/contacts/"+created.ID+"/notes", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list notes = %d", w.Code)
	}
	var listResp struct {
		Segments []struct {
			Timestamp string `json:"timestamp"`
			Content   string `json:"content"`
		} `json:"segments"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &listResp)
	if len(listResp.Segments) != 1 {
		t.Fatalf("segments = %+v", listResp.Segments)
	}
	if listResp.Segments[0].Content != "Revised" {
		t.Errorf("content = %q", listResp.Segments[0].Content)
	}
}

func TestEditNote_UnknownTag(t *testing.T) {
	_, router := testEnv(t, "")

	created := createContact(t, router, map[string]any{"given_name": "Tagless"})

	body, _ := json.Marshal(map[string]string{"content": "x"})
	editURL := "/contacts/" + created.ID + "/notes/" + url.PathEscape("[2024-01-01T00:00:00.000Z]")
	req := httptest.NewRequest(http.MethodPut, editURL, bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("edit unknown tag = %d, want 404", w.Code)
	}
}

func TestAddNote_EmptyContent(t *testing.T) {
	_, router := testEnv(t, "")

	created := createContact(t, router, map[string]any{"given_name": "Strict"})

	body, _ := json.Marshal(map[string]string{"content": ""})
	req := httptest.NewRequest(http.MethodPost, "/contacts/"+created.ID+"/notes", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty note = %d, want 400", w.Code)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	_, router := testEnv(t, "")

	body, _ := json.Marshal(map[string]bool{"sort_by_surname": true, "compact_rows": false})
	req := httptest.NewRequest(http.MethodPut, "/settings", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("put settings = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/settings", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get settings = %d", w.Code)
	}
	var prefs contactsvc.Prefs
	_ = json.Unmarshal(w.Body.Bytes(), &prefs)
	if !prefs.SortBySurname || prefs.CompactRows {
		t.Errorf("prefs = %+v", prefs)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	body, _ := json.Marshal(map[string]any{"given_name": "Authed"})
	req := httptest.NewRequest(http.MethodPost, "/contacts", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	// SSE handler writes 200 and blocks, so cancel after a short time.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

// testEnvWithSSE creates a router with a stub SSE handler to test auth on
// /events.
func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()

	repo := testutil.TestBook(t)
	_, store := testutil.TestMedia(t)
	svc := contactsvc.NewService(repo, store)

	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})

	return NewRouter(svc, authEnabled, token, sseHandler, store)
}

// Photo tests.

func uploadPhoto(t *testing.T, router http.Handler, id string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "photo.png")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/contacts/"+id+"/photo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadAndServePhoto(t *testing.T) {
	_, router, mediaDir := testEnvWithMedia(t, false, "")

	created := createContact(t, router, map[string]any{"given_name": "Pic"})

	w := uploadPhoto(t, router, created.ID, testutil.TestPNG(t, 40, 40),
		map[string]string{"x": "10", "y": "10", "w": "20", "h": "20"})
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var resp PhotoUploadResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.PhotoPath == "" {
		t.Fatal("no photo_path in response")
	}

	// Verify file on disk.
	if _, err := os.Stat(filepath.Join(mediaDir, filepath.FromSlash(resp.PhotoPath))); err != nil {
		t.Fatalf("photo not on disk: %v", err)
	}

	// Serve it back.
	req := httptest.NewRequest(http.MethodGet, resp.URL, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("serve photo = %d", rec.Code)
	}
}

func TestUploadPhoto_NoCropFields(t *testing.T) {
	_, router := testEnv(t, "")

	created := createContact(t, router, map[string]any{"given_name": "Full"})

	w := uploadPhoto(t, router, created.ID, testutil.TestPNG(t, 16, 16), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("uncropped upload = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestUploadPhoto_BadImage(t *testing.T) {
	_, router := testEnv(t, "")

	created := createContact(t, router, map[string]any{"given_name": "Garbled"})

	w := uploadPhoto(t, router, created.ID, []byte("not an image"), nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("garbage upload = %d, want 400", w.Code)
	}
}

func TestUploadPhoto_UnknownContact(t *testing.T) {
	_, router := testEnv(t, "")

	w := uploadPhoto(t, router, "no-such-id", testutil.TestPNG(t, 8, 8), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("upload to unknown contact = %d, want 404", w.Code)
	}
}

func TestServePhoto_TraversalBlocked(t *testing.T) {
	_, router := testEnv(t, "")

	for _, p := range []string{"/media/../secret.db", "/media/..%2F..%2Fetc%2Fpasswd"} {
		req := httptest.NewRequest(http.MethodGet, p, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code == http.StatusOK {
			t.Errorf("traversal %q should not return 200", p)
		}
	}
}
