package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/digidoc-org/digidoc-backend/internal/apperr"
	"github.com/digidoc-org/digidoc-backend/internal/logger"
	"github.com/digidoc-org/digidoc-backend/internal/requestdata"
	"github.com/digidoc-org/digidoc-backend/internal/types"
	"github.com/digidoc-org/digidoc-backend/internal/utils"
)

// fakeUserRepo backs the auth tests without a database.
type fakeUserRepo struct {
	byEmail map[string]*types.User
	byID    map[uuid.UUID]*types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail: map[string]*types.User{},
		byID:    map[uuid.UUID]*types.User{},
	}
}

func (f *fakeUserRepo) add(user *types.User) {
	f.byEmail[user.Email] = user
	f.byID[user.ID] = user
}

func (f *fakeUserRepo) Create(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error) {
	f.add(user)
	return user, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	_, ok := f.byEmail[email]
	return ok, nil
}

func (f *fakeUserRepo) UpdateAbout(ctx context.Context, tx *gorm.DB, id uuid.UUID, original, summary string) error {
	if u, ok := f.byID[id]; ok {
		u.AboutOriginal = original
		u.AboutSummary = summary
	}
	return nil
}

func (f *fakeUserRepo) UpdateAvatarPath(ctx context.Context, tx *gorm.DB, id uuid.UUID, path string) error {
	if u, ok := f.byID[id]; ok {
		u.AvatarPath = path
	}
	return nil
}

func newTestAuthService(t *testing.T, repo *fakeUserRepo) AuthService {
	t.Helper()
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}
	return NewAuthService(nil, log, repo, nil, "test-secret", 30*time.Minute)
}

func seedUser(t *testing.T, repo *fakeUserRepo, email, password string) *types.User {
	t.Helper()
	hash, err := utils.HashPassword(nil, password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	user := &types.User{
		ID:       uuid.New(),
		Name:     "Test User",
		Email:    email,
		Password: hash,
	}
	repo.add(user)
	return user
}

func TestRegisterThenLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)
	ctx := context.Background()

	user := &types.User{Name: "New User", Email: "New@Example.com"}
	regToken, err := svc.Register(ctx, user, "hunter2hunter2")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if regToken == "" {
		t.Fatal("Register() returned an empty token")
	}
	if user.Email != "new@example.com" {
		t.Errorf("email = %q, want normalized", user.Email)
	}
	if user.Password == "hunter2hunter2" {
		t.Error("password stored in plain text")
	}

	// The same credentials log in afterwards.
	loginToken, err := svc.Login(ctx, "new@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login() after Register() error = %v", err)
	}
	authedCtx, err := svc.SetContextFromToken(ctx, loginToken)
	if err != nil {
		t.Fatalf("SetContextFromToken() error = %v", err)
	}
	rd := requestdata.GetRequestData(authedCtx)
	if rd == nil || rd.UserID != user.ID {
		t.Errorf("token does not resolve to the registered user")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "taken@example.com", "whatever123")
	svc := newTestAuthService(t, repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, &types.User{Name: "Other", Email: "Taken@Example.com"}, "password123")
	if err == nil {
		t.Fatal("Register() accepted a duplicate email")
	}
	if err.Error() != "Email already registered" {
		t.Errorf("error = %q, want the duplicate-email message", err.Error())
	}
	if apperr.Status(err) != 400 {
		t.Errorf("Status(err) = %d, want 400", apperr.Status(err))
	}
}

func TestRegisterValidation(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)
	ctx := context.Background()

	tests := []struct {
		name     string
		user     types.User
		password string
	}{
		{"missing name", types.User{Email: "a@example.com"}, "password123"},
		{"missing email", types.User{Name: "A"}, "password123"},
		{"missing password", types.User{Name: "A", Email: "a@example.com"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := tt.user
			if _, err := svc.Register(ctx, &user, tt.password); apperr.Status(err) != 400 {
				t.Errorf("error = %v, want validation", err)
			}
		})
	}
}

func TestLoginThenTokenRoundTrip(t *testing.T) {
	repo := newFakeUserRepo()
	user := seedUser(t, repo, "user@example.com", "hunter2hunter2")
	svc := newTestAuthService(t, repo)
	ctx := context.Background()

	token, err := svc.Login(ctx, "User@Example.com ", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token == "" {
		t.Fatal("Login() returned an empty token")
	}

	authedCtx, err := svc.SetContextFromToken(ctx, token)
	if err != nil {
		t.Fatalf("SetContextFromToken() error = %v", err)
	}
	rd := requestdata.GetRequestData(authedCtx)
	if rd == nil {
		t.Fatal("no request data in authenticated context")
	}
	if rd.UserID != user.ID {
		t.Errorf("UserID = %v, want %v", rd.UserID, user.ID)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "user@example.com", "rightpassword")
	svc := newTestAuthService(t, repo)
	ctx := context.Background()

	_, unknownErr := svc.Login(ctx, "nobody@example.com", "whatever")
	if unknownErr == nil {
		t.Fatal("Login() with unknown email succeeded")
	}
	_, wrongErr := svc.Login(ctx, "user@example.com", "wrongpassword")
	if wrongErr == nil {
		t.Fatal("Login() with wrong password succeeded")
	}
	// Same message for both so a caller cannot probe which emails exist.
	if unknownErr.Error() != wrongErr.Error() {
		t.Errorf("failure messages differ: %q vs %q", unknownErr.Error(), wrongErr.Error())
	}
}

func TestSetContextFromTokenRejectsGarbage(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)
	ctx := context.Background()

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.SetContextFromToken(ctx, token); err == nil {
			t.Errorf("SetContextFromToken(%q) accepted an invalid token", token)
		}
	}
}

func TestSetContextFromTokenDeletedUser(t *testing.T) {
	repo := newFakeUserRepo()
	user := seedUser(t, repo, "user@example.com", "hunter2hunter2")
	svc := newTestAuthService(t, repo)
	ctx := context.Background()

	token, err := svc.Login(ctx, "user@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	delete(repo.byID, user.ID)
	delete(repo.byEmail, user.Email)
	if _, err := svc.SetContextFromToken(ctx, token); err == nil {
		t.Error("SetContextFromToken() accepted a token for a deleted user")
	}
}

func TestTokenExpiry(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "user@example.com", "hunter2hunter2")
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}
	svc := NewAuthService(nil, log, repo, nil, "test-secret", -time.Minute)
	ctx := context.Background()

	token, err := svc.Login(ctx, "user@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := svc.SetContextFromToken(ctx, token); err == nil {
		t.Error("SetContextFromToken() accepted an expired token")
	}
}
