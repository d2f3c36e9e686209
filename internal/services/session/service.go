// Package session ties a browser to its conversation through a signed cookie.
package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aigw/simplychat/internal/chat"
)

const (
	cookieLifetime = 1 * time.Hour
	// Cookies with less than this left are re-issued for the same session.
	refreshWindow = cookieLifetime / 2
)

// ErrSubmitInProgress is returned by BeginSubmit while another submission for
// the same session has not finished.
var ErrSubmitInProgress = errors.New("a submission is already in progress for this session")

type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// Initializer seeds a freshly created conversation.
type Initializer interface {
	Initialize(conv *chat.Conversation)
}

type Options struct {
	CookieName string
	Secret     []byte
	Secure     bool
}

type Service struct {
	store       Store
	initializer Initializer
	opts        Options

	mu       sync.Mutex
	inFlight map[string]struct{}

	now func() time.Time
}

func NewService(store Store, initializer Initializer, opts Options) *Service {
	return &Service{
		store:       store,
		initializer: initializer,
		opts:        opts,
		inFlight:    make(map[string]struct{}),
		now:         time.Now,
	}
}

// Lifetime is how long an idle session and its conversation are kept.
func Lifetime() time.Duration {
	return cookieLifetime
}

// Resolve returns the session ID carried by the request cookie. When the
// cookie is missing, expired or forged a new session is started and its
// cookie is written to w. A valid cookie nearing expiry is re-issued so an
// active session lives as long as its stored conversation.
func (s *Service) Resolve(w http.ResponseWriter, r *http.Request) (string, error) {
	return s.ResolveHeader(w.Header(), r)
}

// ResolveHeader is Resolve for callers that cannot write to a
// ResponseWriter yet, such as a websocket upgrade. Any Set-Cookie header is
// added to h.
func (s *Service) ResolveHeader(h http.Header, r *http.Request) (string, error) {
	if claims := s.validate(r); claims != nil {
		if claims.ExpiresAt != nil && claims.ExpiresAt.Sub(s.now()) < refreshWindow {
			if err := s.issue(h, claims.SessionID); err != nil {
				return "", err
			}
			log.Debug().Str("session_id", claims.SessionID).Msg("Refreshed session cookie")
		}
		return claims.SessionID, nil
	}

	sessionID := uuid.New().String()
	if err := s.issue(h, sessionID); err != nil {
		return "", err
	}

	log.Debug().Str("session_id", sessionID).Msg("Started new session")
	return sessionID, nil
}

func (s *Service) validate(r *http.Request) *SessionClaims {
	cookie, err := r.Cookie(s.opts.CookieName)
	if err != nil {
		return nil
	}

	token, err := jwt.ParseWithClaims(cookie.Value, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.opts.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		log.Debug().Err(err).Msg("Rejected session cookie")
		return nil
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil
	}
	return claims
}

func (s *Service) issue(h http.Header, sessionID string) error {
	now := s.now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(cookieLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        sessionID,
		},
		SessionID: sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.opts.Secret)
	if err != nil {
		return err
	}

	cookie := &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    signedToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  now.Add(cookieLifetime),
	}
	h.Add("Set-Cookie", cookie.String())
	return nil
}

// Conversation loads the conversation of a session, creating and seeding it
// on first use.
func (s *Service) Conversation(ctx context.Context, sessionID string) (*chat.Conversation, error) {
	conv, err := s.store.Load(ctx, sessionID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	conv = &chat.Conversation{}
	s.initializer.Initialize(conv)
	if err := s.store.Save(ctx, sessionID, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *Service) Save(ctx context.Context, sessionID string, conv *chat.Conversation) error {
	return s.store.Save(ctx, sessionID, conv)
}

// BeginSubmit marks a submission as running for the session. Each successful
// call must be paired with EndSubmit.
func (s *Service) BeginSubmit(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[sessionID]; busy {
		return ErrSubmitInProgress
	}
	s.inFlight[sessionID] = struct{}{}
	return nil
}

func (s *Service) EndSubmit(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sessionID)
}
