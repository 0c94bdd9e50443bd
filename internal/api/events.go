package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dharsanguruparan/EventDrop/internal/auth"
	"github.com/dharsanguruparan/EventDrop/internal/events"
	"github.com/dharsanguruparan/EventDrop/internal/model"
)

type createEventRequest struct {
	Name  string `json:"name"`
	Date  string `json:"date,omitempty"`
	Owner string `json:"owner,omitempty"`
}

type createEventResponse struct {
	*model.Event
	AdminSecret string `json:"adminSecret"`
	UploadURL   string `json:"uploadUrl"`
}

type sessionRequest struct {
	Secret string `json:"secret"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: invalid JSON body", model.ErrValidation))
		return
	}
	date, err := parseEventDate(req.Date)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	e, err := s.events.Create(r.Context(), events.CreateParams{Name: req.Name, Date: date, Owner: req.Owner})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, createEventResponse{
		Event:       e,
		AdminSecret: e.AdminSecret,
		UploadURL:   s.cfg.PublicURL + "/api/v1/events/" + e.ID + "/uploads",
	})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.FindEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

// handleAdminSession trades the admin secret for a session token, returned in
// the body and as a cookie so browser media requests carry it.
func (s *Server) handleAdminSession(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.FindEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	secret := r.Header.Get(auth.SecretHeader)
	if secret == "" {
		var req sessionRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<12)).Decode(&req); err != nil {
			s.respondError(w, r, fmt.Errorf("%w: invalid JSON body", model.ErrValidation))
			return
		}
		secret = req.Secret
	}
	token, exp, err := s.auth.Login(e, secret)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, sessionResponse{Token: token, ExpiresAt: exp})
}

// parseEventDate accepts a calendar date or an RFC 3339 timestamp.
func parseEventDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: date %q is not YYYY-MM-DD or RFC 3339", model.ErrValidation, v)
}
