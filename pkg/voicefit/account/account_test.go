package account

import (
	"context"
	"errors"
	"testing"

	"github.com/himanishpuri/VoiceFit/pkg/voicefit/storage"
)

type okAuth struct{ StubAuthenticator }

func (okAuth) LoginWithEmail(context.Context, Credentials) error { return nil }

type brokenAuth struct{ StubAuthenticator }

func (brokenAuth) LoginWithEmail(context.Context, Credentials) error {
	return errors.New("invalid password")
}

func TestStubFallsBackToLocalSession(t *testing.T) {
	store := storage.NewMemoryStore()
	s := NewSession(nil, store)

	if err := s.RequireLogin(); !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("RequireLogin() = %v, want ErrLoginRequired", err)
	}

	notice, err := s.LoginWithEmail(context.Background(), Credentials{Email: "me@example.com"})
	if err != nil {
		t.Fatalf("LoginWithEmail() error = %v", err)
	}
	if notice != NoticeLoginFallback {
		t.Errorf("notice = %q", notice)
	}
	if !s.LoggedIn() || s.Label() != "me@example.com" {
		t.Errorf("session = %t %q", s.LoggedIn(), s.Label())
	}

	reloaded := NewSession(nil, store)
	if !reloaded.LoggedIn() {
		t.Error("session not restored from store")
	}

	if err := reloaded.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if NewSession(nil, store).LoggedIn() {
		t.Error("logout not persisted")
	}
}

func TestSignupAndSocialLabels(t *testing.T) {
	s := NewSession(StubAuthenticator{}, nil)

	notice, err := s.SignupWithEmail(context.Background(), SignupRequest{Email: "a@b.c"})
	if err != nil || notice != NoticeSignupFallback || s.Label() != "a@b.c" {
		t.Errorf("signup: notice=%q err=%v label=%q", notice, err, s.Label())
	}

	notice, err = s.LoginWithSocial(context.Background(), ProviderKakao)
	if err != nil || notice != NoticeSocialFallback || s.Label() != "kakao account" {
		t.Errorf("social: notice=%q err=%v label=%q", notice, err, s.Label())
	}
}

func TestConnectedAuthenticator(t *testing.T) {
	s := NewSession(okAuth{}, nil)
	notice, err := s.LoginWithEmail(context.Background(), Credentials{Email: "me@example.com"})
	if err != nil || notice != "" {
		t.Fatalf("notice=%q err=%v, want clean login", notice, err)
	}

	s = NewSession(brokenAuth{}, nil)
	if _, err := s.LoginWithEmail(context.Background(), Credentials{Email: "me@example.com"}); err == nil {
		t.Fatal("expected real auth errors to surface")
	}
	if s.LoggedIn() {
		t.Error("session should stay signed out after a real auth failure")
	}
}

func TestParseProvider(t *testing.T) {
	if p, ok := ParseProvider(" Google "); !ok || p != ProviderGoogle {
		t.Errorf("ParseProvider(Google) = %q, %t", p, ok)
	}
	if _, ok := ParseProvider("myspace"); ok {
		t.Error("ParseProvider(myspace) should fail")
	}
}
