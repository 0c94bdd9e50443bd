// Package events creates events with short public IDs and an admin secret.
package events

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/EventDrop/internal/model"
)

const (
	idLength      = 8
	maxAttempts   = 5
	maxNameLength = 200
	alphabet      = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// Store persists new events.
type Store interface {
	CreateEvent(ctx context.Context, e *model.Event) error
}

// CreateParams is the caller-supplied part of an event.
type CreateParams struct {
	Name  string
	Date  *time.Time
	Owner string
}

// Service creates events.
type Service struct {
	store Store
	log   *zap.Logger
	newID func() (string, error)
}

// New returns a Service backed by store.
func New(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log.Named("events"), newID: NewID}
}

// Create stores a new event, retrying with a fresh ID when the generated one
// is already taken.
func (s *Service) Create(ctx context.Context, p CreateParams) (*model.Event, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: event name is required", model.ErrValidation)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, fmt.Errorf("%w: event name longer than %d characters", model.ErrValidation, maxNameLength)
	}
	secret, err := NewSecret()
	if err != nil {
		return nil, err
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		id, err := s.newID()
		if err != nil {
			return nil, err
		}
		e := &model.Event{
			ID:          id,
			Name:        name,
			Date:        p.Date,
			Owner:       strings.TrimSpace(p.Owner),
			AdminSecret: secret,
			CreatedAt:   time.Now().UTC(),
		}
		err = s.store.CreateEvent(ctx, e)
		if errors.Is(err, model.ErrEventExists) {
			s.log.Debug("event id collision", zap.String("event_id", id), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create event: %w", err)
		}
		s.log.Info("event created", zap.String("event_id", id))
		return e, nil
	}
	return nil, fmt.Errorf("create event: %w: no free id after %d attempts", model.ErrEventExists, maxAttempts)
}

// NewID returns a random 8-character base62 string.
func NewID() (string, error) {
	out := make([]byte, 0, idLength)
	buf := make([]byte, idLength*2)
	for len(out) < idLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate event id: %w", err)
		}
		for _, b := range buf {
			// 248 is the largest multiple of 62 below 256; larger bytes would
			// bias the distribution.
			if b >= 248 {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == idLength {
				break
			}
		}
	}
	return string(out), nil
}

// NewSecret returns a random admin secret.
func NewSecret() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate admin secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
