package identity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/colonyops/taskdeck/pkg/randid"
	"github.com/golang-jwt/jwt/v5"
)

const (
	sessionFile  = "session.token"
	secretFile   = "auth.secret"
	sessionTTL   = 30 * 24 * time.Hour
	sessionPerms = 0o600
)

// LoadOrCreateSecret returns the token signing secret: the configured value
// when set, otherwise a per-install secret persisted under dataDir and
// generated on first use.
func LoadOrCreateSecret(dataDir, configured string) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}

	path := filepath.Join(dataDir, secretFile)
	raw, err := os.ReadFile(path)
	if err == nil {
		return []byte(strings.TrimSpace(string(raw))), nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read auth secret: %w", err)
	}

	secret := randid.Generate(48)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(secret), sessionPerms); err != nil {
		return nil, fmt.Errorf("write auth secret: %w", err)
	}
	return []byte(secret), nil
}

// LocalProvider persists the session as a signed token in the data
// directory. It is the single-machine stand-in for a hosted auth provider.
type LocalProvider struct {
	dataDir string
	secret  []byte

	mu       sync.Mutex
	onChange []func(User)
}

// NewLocalProvider creates a provider storing its session under dataDir.
func NewLocalProvider(dataDir string, secret []byte) *LocalProvider {
	return &LocalProvider{dataDir: dataDir, secret: secret}
}

var _ Provider = (*LocalProvider)(nil)

// CurrentUser reads and validates the stored session token.
func (p *LocalProvider) CurrentUser(_ context.Context) (User, error) {
	raw, err := os.ReadFile(p.sessionPath())
	if os.IsNotExist(err) {
		return User{}, ErrNotAuthenticated
	}
	if err != nil {
		return User{}, fmt.Errorf("read session: %w", err)
	}

	return p.parseToken(strings.TrimSpace(string(raw)))
}

// OnChange registers an identity-change hook.
func (p *LocalProvider) OnChange(fn func(User)) {
	p.mu.Lock()
	p.onChange = append(p.onChange, fn)
	p.mu.Unlock()
}

// Login establishes a session for the given name and email. If a valid
// session for the same email already exists its user id is kept, so
// re-authenticating does not orphan the user's tasks.
func (p *LocalProvider) Login(ctx context.Context, name, email string) (User, error) {
	if email == "" {
		return User{}, fmt.Errorf("email must not be empty")
	}

	user := User{ID: "u_" + randid.Generate(16), Name: name, Email: email}
	if existing, err := p.CurrentUser(ctx); err == nil && existing.Email == email {
		user.ID = existing.ID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"name":    user.Name,
		"email":   user.Email,
		"exp":     time.Now().Add(sessionTTL).Unix(),
	})
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return User{}, fmt.Errorf("sign session token: %w", err)
	}

	if err := os.MkdirAll(p.dataDir, 0o755); err != nil {
		return User{}, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(p.sessionPath(), []byte(signed), sessionPerms); err != nil {
		return User{}, fmt.Errorf("write session: %w", err)
	}

	p.notify(user)
	return user, nil
}

// Logout removes the stored session.
func (p *LocalProvider) Logout(_ context.Context) error {
	err := os.Remove(p.sessionPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session: %w", err)
	}
	p.notify(User{})
	return nil
}

func (p *LocalProvider) parseToken(raw string) (User, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return User{}, ErrNotAuthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return User{}, ErrNotAuthenticated
	}

	user := User{}
	if v, ok := claims["user_id"].(string); ok {
		user.ID = v
	}
	if v, ok := claims["name"].(string); ok {
		user.Name = v
	}
	if v, ok := claims["email"].(string); ok {
		user.Email = v
	}
	if user.ID == "" {
		return User{}, ErrNotAuthenticated
	}
	return user, nil
}

func (p *LocalProvider) notify(user User) {
	p.mu.Lock()
	fns := make([]func(User), len(p.onChange))
	copy(fns, p.onChange)
	p.mu.Unlock()
	for _, fn := range fns {
		fn(user)
	}
}

func (p *LocalProvider) sessionPath() string {
	return filepath.Join(p.dataDir, sessionFile)
}

// Static is a Provider pinned to a fixed user. Used in tests.
type Static struct {
	User User
}

// CurrentUser returns the fixed user.
func (s Static) CurrentUser(context.Context) (User, error) {
	if s.User.ID == "" {
		return User{}, ErrNotAuthenticated
	}
	return s.User, nil
}

// OnChange is a no-op: a static identity never changes.
func (s Static) OnChange(func(User)) {}
