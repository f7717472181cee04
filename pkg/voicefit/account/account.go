// Package account holds the sign-in surface. No identity backend is connected yet:
// every remote call fails with ErrAuthNotConnected and the Session falls back to a
// local signed-in state, reported through a notice.
package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrAuthNotConnected = errors.New("AUTH_NOT_CONNECTED")
	ErrLoginRequired    = errors.New("this feature requires signing in")
)

const SessionKey = "voicefit.session"

type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderKakao  Provider = "kakao"
	ProviderNaver  Provider = "naver"
)

func ParseProvider(s string) (Provider, bool) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderGoogle, ProviderKakao, ProviderNaver:
		return p, true
	}
	return "", false
}

type Credentials struct {
	Email    string
	Password string
}

type SignupRequest struct {
	Name     string
	Email    string
	Password string
}

// Authenticator is the remote identity service.
type Authenticator interface {
	LoginWithEmail(ctx context.Context, c Credentials) error
	SignupWithEmail(ctx context.Context, r SignupRequest) error
	LoginWithSocial(ctx context.Context, p Provider) error
	Logout(ctx context.Context) error
}

// StubAuthenticator rejects everything with ErrAuthNotConnected.
type StubAuthenticator struct{}

func (StubAuthenticator) LoginWithEmail(context.Context, Credentials) error {
	return ErrAuthNotConnected
}
func (StubAuthenticator) SignupWithEmail(context.Context, SignupRequest) error {
	return ErrAuthNotConnected
}
func (StubAuthenticator) LoginWithSocial(context.Context, Provider) error { return ErrAuthNotConnected }
func (StubAuthenticator) Logout(context.Context) error                    { return ErrAuthNotConnected }

type KeyValueStore interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Notices shown when the remote call failed and a temporary session is used instead.
const (
	NoticeLoginFallback  = "Sign-in is not available yet. You can continue with a temporary session."
	NoticeSignupFallback = "Sign-up is not available yet. You can continue with a temporary account."
	NoticeSocialFallback = "Social sign-in is not connected yet. You can continue with a temporary session."
)

type state struct {
	LoggedIn bool   `json:"logged_in"`
	Label    string `json:"label"`
}

// Session tracks who is signed in. The state is persisted when a store is given.
type Session struct {
	mu    sync.Mutex
	auth  Authenticator
	store KeyValueStore
	st    state
}

func NewSession(auth Authenticator, store KeyValueStore) *Session {
	if auth == nil {
		auth = StubAuthenticator{}
	}
	s := &Session{auth: auth, store: store}
	if store != nil {
		if raw, ok, err := store.Get(SessionKey); err == nil && ok {
			var st state
			if json.Unmarshal([]byte(raw), &st) == nil {
				s.st = st
			}
		}
	}
	return s
}

func (s *Session) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.LoggedIn
}

func (s *Session) Label() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Label
}

// RequireLogin returns ErrLoginRequired unless someone is signed in.
func (s *Session) RequireLogin() error {
	if !s.LoggedIn() {
		return ErrLoginRequired
	}
	return nil
}

// LoginWithEmail signs in. The returned notice is non-empty when the remote call
// failed and the temporary session was used.
func (s *Session) LoginWithEmail(ctx context.Context, c Credentials) (string, error) {
	if strings.TrimSpace(c.Email) == "" {
		return "", errors.New("email is required")
	}
	err := s.auth.LoginWithEmail(ctx, c)
	return s.settle(err, c.Email, NoticeLoginFallback)
}

func (s *Session) SignupWithEmail(ctx context.Context, r SignupRequest) (string, error) {
	if strings.TrimSpace(r.Email) == "" {
		return "", errors.New("email is required")
	}
	label := r.Name
	if strings.TrimSpace(label) == "" {
		label = r.Email
	}
	err := s.auth.SignupWithEmail(ctx, r)
	return s.settle(err, label, NoticeSignupFallback)
}

func (s *Session) LoginWithSocial(ctx context.Context, p Provider) (string, error) {
	err := s.auth.LoginWithSocial(ctx, p)
	return s.settle(err, fmt.Sprintf("%s account", p), NoticeSocialFallback)
}

// Logout always clears the local session, whatever the remote call says.
func (s *Session) Logout(ctx context.Context) error {
	_ = s.auth.Logout(ctx)
	return s.save(state{})
}

func (s *Session) settle(authErr error, label, notice string) (string, error) {
	if authErr != nil && !errors.Is(authErr, ErrAuthNotConnected) {
		return "", authErr
	}
	if err := s.save(state{LoggedIn: true, Label: label}); err != nil {
		return "", err
	}
	if authErr != nil {
		return notice, nil
	}
	return "", nil
}

func (s *Session) save(st state) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = st
	if s.store == nil {
		return nil
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := s.store.Set(SessionKey, string(raw)); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}
