package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Sup3rSecret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if bytes.Contains(hash, []byte("Sup3rSecret")) {
		t.Fatal("digest contains the plaintext password")
	}
	if err := CheckPassword(hash, "Sup3rSecret"); err != nil {
		t.Fatalf("CheckPassword() error = %v", err)
	}
	if err := CheckPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("CheckPassword(wrong) error = %v, want ErrInvalidCredentials", err)
	}
}

func TestHashPasswordRejectsShortPasswords(t *testing.T) {
	if _, err := HashPassword("abc"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("HashPassword(short) error = %v, want ErrPasswordTooShort", err)
	}
}

func TestSignerRoundTrip(t *testing.T) {
	signer, err := NewSigner(testSecret)
	if err != nil {
		t.Fatalf("NewSigner() error = %v", err)
	}
	token, err := signer.Issue("user-1", "alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UserID != "user-1" || claims.Username != "alice" {
		t.Fatalf("Verify() claims = %+v", claims)
	}
}

func TestSignerRejectsTamperedToken(t *testing.T) {
	signer, err := NewSigner(testSecret)
	if err != nil {
		t.Fatalf("NewSigner() error = %v", err)
	}
	token, err := signer.Issue("user-1", "alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	body, sig, _ := strings.Cut(token, ".")
	for _, bad := range []string{
		"",
		"nodot",
		body + "." + sig + "x",
		body + "x." + sig,
		"." + sig,
		body + ".",
	} {
		if _, err := signer.Verify(bad); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("Verify(%q) error = %v, want ErrTokenInvalid", bad, err)
		}
	}
}

func TestSignerRejectsExpiredToken(t *testing.T) {
	issuedAt := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	now := issuedAt
	signer, err := NewSigner(testSecret,
		WithTokenTTL(time.Hour),
		WithSignerClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewSigner() error = %v", err)
	}
	token, err := signer.Issue("user-1", "alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	now = issuedAt.Add(30 * time.Minute)
	if _, err := signer.Verify(token); err != nil {
		t.Fatalf("Verify() before expiry error = %v", err)
	}

	now = issuedAt.Add(2 * time.Hour)
	if _, err := signer.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Verify() after expiry error = %v, want ErrTokenExpired", err)
	}
}

func TestNewSignerKeyRequirements(t *testing.T) {
	if _, err := NewSigner(nil); !errors.Is(err, ErrMissingSigningKey) {
		t.Fatalf("NewSigner(nil) error = %v, want ErrMissingSigningKey", err)
	}
	if _, err := NewSigner([]byte("short")); !errors.Is(err, ErrWeakSigningKey) {
		t.Fatalf("NewSigner(short) error = %v, want ErrWeakSigningKey", err)
	}
}

type memRepo struct {
	mu     sync.Mutex
	byID   map[string]User
	byName map[string]User
}

func newMemRepo() *memRepo {
	return &memRepo{byID: make(map[string]User), byName: make(map[string]User)}
}

func (r *memRepo) Insert(_ context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[u.Username]; ok {
		return User{}, ErrUsernameTaken
	}
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return User{}, ErrEmailInUse
		}
	}
	r.byID[u.ID] = u
	r.byName[u.Username] = u
	return u, nil
}

func (r *memRepo) FindByUsername(_ context.Context, username string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byName[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(new(bytes.Buffer), nil))
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	signer, err := NewSigner(testSecret)
	if err != nil {
		t.Fatalf("NewSigner() error = %v", err)
	}
	return NewService(newMemRepo(), signer, WithLogger(discardLogger()))
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "Alice@Example.com", "Sup3rSecret")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.ID == "" {
		t.Fatal("Register() left id empty")
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("Register() email = %q, want lowercased", user.Email)
	}
	if user.Role != DefaultRole {
		t.Fatalf("Register() role = %q, want %q", user.Role, DefaultRole)
	}

	got, token, err := svc.Login(ctx, "alice", "Sup3rSecret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("Login() user id = %q, want %q", got.ID, user.ID)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UserID != user.ID || claims.Username != "alice" {
		t.Fatalf("Verify() claims = %+v", claims)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "alice@example.com", "Sup3rSecret"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Unknown user and wrong password are indistinguishable to the caller.
	if _, _, err := svc.Login(ctx, "nobody", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login(unknown user) error = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login(ctx, "alice", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login(wrong password) error = %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a", "a@example.com", "Sup3rSecret"); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("short username error = %v, want ErrInvalidUsername", err)
	}
	if _, err := svc.Register(ctx, "has spaces", "a@example.com", "Sup3rSecret"); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("username with spaces error = %v, want ErrInvalidUsername", err)
	}
	if _, err := svc.Register(ctx, "alice", "not-an-email", "Sup3rSecret"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("bad email error = %v, want ErrInvalidEmail", err)
	}
	if _, err := svc.Register(ctx, "alice", "a@example.com", "short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("short password error = %v, want ErrPasswordTooShort", err)
	}
}

func TestRegisterDuplicates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "alice@example.com", "Sup3rSecret"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := svc.Register(ctx, "alice", "other@example.com", "Sup3rSecret"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("duplicate username error = %v, want ErrUsernameTaken", err)
	}
	if _, err := svc.Register(ctx, "bob", "alice@example.com", "Sup3rSecret"); !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("duplicate email error = %v, want ErrEmailInUse", err)
	}
}
