package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/contactsvc"
	"github.com/starford/othala/internal/media"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// store, if non-nil, enables photo upload and media serving.
func NewRouter(svc *contactsvc.Service, authEnabled bool, token string, sseHandler http.Handler, store media.Store) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Contacts CRUD and search.
	r.Get("/contacts", h.ListContacts)
	r.Post("/contacts", h.CreateContact)
	r.Get("/contacts/{id}", h.GetContact)
	r.Put("/contacts/{id}", h.UpdateContact)
	r.Delete("/contacts/{id}", h.DeleteContact)

	// Note log.
	r.Get("/contacts/{id}/notes", h.ListNotes)
	r.Post("/contacts/{id}/notes", h.AddNote)
	r.Put("/contacts/{id}/notes/{tag}", h.EditNote)

	// Settings.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.PutSettings)

	// Photos (auth-protected like everything else).
	if store != nil {
		ph := NewPhotoHandler(svc, store)
		r.Post("/contacts/{id}/photo", ph.Upload)
		r.Get("/media/*", ph.ServeFile)
	}

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
