package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"dashboard-server/internal/shared/cookies"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const sessionIssuer = "dashboard-server"

var ErrInvalidSession = errors.New("invalid session token")

// User is the profile exposed to pages. Image is nil when the provider
// gave no avatar.
type User struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Image *string `json:"image,omitempty"`
}

// Session is the per-request proof of sign-in.
type Session struct {
	User    User      `json:"user"`
	Expires time.Time `json:"expires"`
}

type Claims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// SessionManager signs and verifies session tokens with the session secret.
type SessionManager struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

func NewSessionManager(secret string, maxAge time.Duration) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Issue signs a session for user. subject identifies the user in the
// account directory.
func (m *SessionManager) Issue(user User, subject string) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.maxAge)

	claims := Claims{
		Name:  user.Name,
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	if user.Image != nil {
		claims.Picture = *user.Image
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, expires, nil
}

// Parse verifies tokenString and returns the session it carries.
func (m *SessionManager) Parse(tokenString string) (*Session, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	session := &Session{
		User: User{
			Name:  claims.Name,
			Email: claims.Email,
		},
		Expires: claims.ExpiresAt.Time,
	}
	if claims.Picture != "" {
		picture := claims.Picture
		session.User.Image = &picture
	}
	return session, nil
}

// Resolver reads the session cookie of a request.
type Resolver struct {
	sessions *SessionManager
	cookies  cookies.Options
}

func NewResolver(sessions *SessionManager, cookieOpts cookies.Options) *Resolver {
	return &Resolver{sessions: sessions, cookies: cookieOpts}
}

// GetCurrentSession returns nil when the request carries no valid session.
// A forged, expired or malformed cookie counts as no session.
func (r *Resolver) GetCurrentSession(req *http.Request) (*Session, error) {
	token, ok := cookies.ReadSession(req, r.cookies)
	if !ok {
		return nil, nil
	}

	session, err := r.sessions.Parse(token)
	if err != nil {
		slog.Debug("Ignoring invalid session cookie",
			"component", "session_resolver",
			"path", req.URL.Path,
			"error", err)
		return nil, nil
	}
	return session, nil
}
