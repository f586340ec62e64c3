package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fatimetou23083/CacheFlow/auth"
	"github.com/fatimetou23083/CacheFlow/currency"
	testpg "github.com/fatimetou23083/CacheFlow/internal/testutil/postgrescontainer"
	"github.com/fatimetou23083/CacheFlow/notification"
	"github.com/fatimetou23083/CacheFlow/product"
)

const testTimeout = 5 * time.Second

var containerErr error

func TestMain(m *testing.M) {
	containerErr = testpg.Setup()
	code := m.Run()
	if containerErr == nil {
		_ = testpg.Teardown()
	}
	os.Exit(code)
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if containerErr != nil {
		t.Skipf("postgres container unavailable: %v", containerErr)
	}
	db, err := Open(WithDSN(testpg.DSN()))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	if err := ApplyMigrations(ctx, db, Schema()...); err != nil {
		t.Fatalf("ApplyMigrations error: %v", err)
	}
	return db
}

func TestUserRepositoryInsertAndLookup(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	suffix := uuid.NewString()[:8]
	user := auth.User{
		ID:           uuid.NewString(),
		Username:     "alice-" + suffix,
		Email:        fmt.Sprintf("alice-%s@example.com", suffix),
		PasswordHash: []byte("$2a$10$fakedigestfakedigestfake"),
		Role:         auth.DefaultRole,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	if _, err := repo.Insert(ctx, user); err != nil {
		t.Fatalf("Insert error: %v", err)
	}

	fetched, err := repo.FindByUsername(ctx, user.Username)
	if err != nil {
		t.Fatalf("FindByUsername error: %v", err)
	}
	if fetched.Email != user.Email || string(fetched.PasswordHash) != string(user.PasswordHash) {
		t.Fatalf("fetched user mismatch: %+v", fetched)
	}

	byID, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if byID.Username != user.Username {
		t.Fatalf("FindByID returned %q, want %q", byID.Username, user.Username)
	}

	dup := user
	dup.ID = uuid.NewString()
	dup.Email = fmt.Sprintf("other-%s@example.com", suffix)
	if _, err := repo.Insert(ctx, dup); !errors.Is(err, auth.ErrUsernameTaken) {
		t.Fatalf("duplicate username error = %v, want ErrUsernameTaken", err)
	}

	dup = user
	dup.ID = uuid.NewString()
	dup.Username = "bob-" + suffix
	if _, err := repo.Insert(ctx, dup); !errors.Is(err, auth.ErrEmailInUse) {
		t.Fatalf("duplicate email error = %v, want ErrEmailInUse", err)
	}

	if _, err := repo.FindByUsername(ctx, "missing-"+suffix); !errors.Is(err, auth.ErrUserNotFound) {
		t.Fatalf("missing user error = %v, want ErrUserNotFound", err)
	}
}

func TestCurrencyRepositoryUpsertKeepsID(t *testing.T) {
	db := openTestDB(t)
	repo := NewCurrencyRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	code := "T" + uuid.NewString()[:7]
	first, err := repo.Save(ctx, currency.Currency{Code: code, Rate: 1.25, LastUpdate: time.Now().UTC()})
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if first.ID == "" {
		t.Fatal("Save left id empty")
	}

	second, err := repo.Save(ctx, currency.Currency{Code: code, Rate: 1.30, LastUpdate: time.Now().UTC()})
	if err != nil {
		t.Fatalf("second Save error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert changed id: %s -> %s", first.ID, second.ID)
	}

	fetched, err := repo.FindByCode(ctx, code)
	if err != nil {
		t.Fatalf("FindByCode error: %v", err)
	}
	if fetched.Rate != 1.30 {
		t.Fatalf("rate after upsert = %v, want 1.30", fetched.Rate)
	}

	if _, err := repo.FindByCode(ctx, "ZZZ0"); !errors.Is(err, currency.ErrNotFound) {
		t.Fatalf("missing code error = %v, want ErrNotFound", err)
	}
}

func TestProductRepositoryCRUD(t *testing.T) {
	db := openTestDB(t)
	repo := NewProductRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	p := product.Product{
		ID:        uuid.NewString(),
		Name:      "Laptop " + uuid.NewString()[:8],
		Price:     999.99,
		Category:  "Electronics",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	if _, err := repo.Insert(ctx, p); err != nil {
		t.Fatalf("Insert error: %v", err)
	}

	fetched, err := repo.FindByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if fetched.Name != p.Name || fetched.Price != p.Price {
		t.Fatalf("fetched product mismatch: %+v", fetched)
	}

	fetched.Price = 899.99
	if _, err := repo.Update(ctx, fetched); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	all, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll error: %v", err)
	}
	var found bool
	for _, got := range all {
		if got.ID == p.ID {
			found = got.Price == 899.99
		}
	}
	if !found {
		t.Fatal("updated product not visible in listing")
	}

	if err := repo.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := repo.FindByID(ctx, p.ID); !errors.Is(err, product.ErrNotFound) {
		t.Fatalf("find after delete error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, p.ID); !errors.Is(err, product.ErrNotFound) {
		t.Fatalf("second delete error = %v, want ErrNotFound", err)
	}
	if _, err := repo.FindByID(ctx, "not-a-uuid"); !errors.Is(err, product.ErrNotFound) {
		t.Fatalf("malformed id error = %v, want ErrNotFound", err)
	}
}

func TestNotificationRepositoryOrdering(t *testing.T) {
	db := openTestDB(t)
	repo := NewNotificationRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	user := "user-" + uuid.NewString()[:8]
	base := time.Now().UTC().Truncate(time.Microsecond)
	for i, spec := range []struct {
		message string
		userID  string
	}{
		{"first for user", user},
		{"broadcast", ""},
		{"second for user", user},
	} {
		n := notification.Notification{
			ID:        uuid.NewString(),
			Message:   spec.message,
			Kind:      notification.KindInfo,
			UserID:    spec.userID,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		if _, err := repo.Insert(ctx, n); err != nil {
			t.Fatalf("Insert(%q) error: %v", spec.message, err)
		}
	}

	forUser, err := repo.FindByUser(ctx, user)
	if err != nil {
		t.Fatalf("FindByUser error: %v", err)
	}
	if len(forUser) != 2 || forUser[0].Message != "second for user" {
		t.Fatalf("FindByUser = %+v, want 2 rows newest first", forUser)
	}

	broadcasts, err := repo.FindBroadcasts(ctx)
	if err != nil {
		t.Fatalf("FindBroadcasts error: %v", err)
	}
	for _, n := range broadcasts {
		if n.UserID != "" {
			t.Fatalf("broadcast row carries user id %q", n.UserID)
		}
	}
}
