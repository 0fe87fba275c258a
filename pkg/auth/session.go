package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/oauth2"
)

const (
	SessionCookie = "session"
	StateCookie   = "oauth_state"
	SessionMaxAge = 24 * time.Hour
	stateMaxAge   = 10 * time.Minute
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrStateMismatch    = errors.New("oauth state mismatch")
)

// Sessions stores OAuth tokens in a signed and encrypted cookie.
type Sessions struct {
	codec *securecookie.SecureCookie
}

func NewSessions(secret string) *Sessions {
	hashKey := sha256.Sum256([]byte("hash:" + secret))
	blockKey := sha256.Sum256([]byte("block:" + secret))

	codec := securecookie.New(hashKey[:], blockKey[:])
	codec.MaxAge(int(SessionMaxAge.Seconds()))
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &Sessions{codec: codec}
}

func (s *Sessions) Save(w http.ResponseWriter, tok *oauth2.Token) error {
	value, err := s.codec.Encode(SessionCookie, tok)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
	return nil
}

// Load returns the session token or ErrNotAuthenticated.
func (s *Sessions) Load(r *http.Request) (*oauth2.Token, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, ErrNotAuthenticated
	}
	var tok oauth2.Token
	if err := s.codec.Decode(SessionCookie, c.Value, &tok); err != nil {
		return nil, ErrNotAuthenticated
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, ErrNotAuthenticated
	}
	return &tok, nil
}

func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// NewState issues a random OAuth state and remembers it in a short-lived cookie.
func (s *Sessions) NewState(w http.ResponseWriter) (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	state := base64.RawURLEncoding.EncodeToString(buf)

	value, err := s.codec.Encode(StateCookie, state)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(stateMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	return state, nil
}

// VerifyState checks state against the cookie and clears it.
func (s *Sessions) VerifyState(w http.ResponseWriter, r *http.Request, state string) error {
	http.SetCookie(w, &http.Cookie{Name: StateCookie, Path: "/", MaxAge: -1})

	c, err := r.Cookie(StateCookie)
	if err != nil {
		return ErrStateMismatch
	}
	var want string
	if err := s.codec.Decode(StateCookie, c.Value, &want); err != nil || want == "" || want != state {
		return ErrStateMismatch
	}
	return nil
}
