package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsvirk/misbarapi/internal/models"
	"github.com/nsvirk/misbarapi/internal/service"
	"github.com/nsvirk/misbarapi/internal/testutil"
	"github.com/nsvirk/misbarapi/internal/token"
)

const testSecret = "test-secret-0123456789"

func newAuthService(t *testing.T) (*service.AuthService, *testutil.MemStore, *token.Manager) {
	t.Helper()
	store := testutil.NewMemStore()
	tokens := token.NewManager(testSecret, 0)
	return service.NewAuthService(store, store, tokens), store, tokens
}

func register(t *testing.T, svc *service.AuthService, email, password string) *service.Session {
	t.Helper()
	session, err := svc.Register(context.Background(), service.RegisterInput{
		Name:     "Alice",
		LastName: "Moyo",
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return session
}

func TestRegister(t *testing.T) {
	svc, store, tokens := newAuthService(t)

	session := register(t, svc, "alice@example.com", "pw123")

	assert.Equal(t, models.RoleUser, session.User.Role)
	require.NotNil(t, session.User.Password)
	assert.NotEqual(t, "pw123", *session.User.Password)

	claims, err := tokens.Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)

	assert.Empty(t, store.Logins(), "registration must not write a login log")
}

func TestRegister_DuplicateEmailLeavesExistingRow(t *testing.T) {
	svc, store, _ := newAuthService(t)
	first := register(t, svc, "alice@example.com", "pw123")

	_, err := svc.Register(context.Background(), service.RegisterInput{
		Name: "Mallory", LastName: "X", Email: "alice@example.com", Password: "other",
	})
	assert.ErrorIs(t, err, service.ErrUserExists)

	stored, err := store.GetByID(context.Background(), first.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", stored.Name)
	assert.Equal(t, *first.User.Password, *stored.Password)
}

func TestRegister_MissingFields(t *testing.T) {
	svc, _, _ := newAuthService(t)

	_, err := svc.Register(context.Background(), service.RegisterInput{Email: "a@b.c"})
	require.Error(t, err)
	assert.True(t, service.IsValidation(err))
	assert.Contains(t, err.Error(), "password")
}

func TestRegister_PasswordTooLong(t *testing.T) {
	svc, store, _ := newAuthService(t)

	_, err := svc.Register(context.Background(), service.RegisterInput{
		Name: "Alice", LastName: "Moyo", Email: "alice@example.com", Password: strings.Repeat("p", 80),
	})
	require.Error(t, err)
	assert.True(t, service.IsValidation(err))
	assert.Equal(t, "password must be at most 72 bytes", err.Error())

	_, err = store.GetByEmail(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)

	register(t, svc, "alice@example.com", strings.Repeat("p", 72))
}

func TestLogin(t *testing.T) {
	svc, store, _ := newAuthService(t)
	registered := register(t, svc, "alice@example.com", "pw123")

	session, err := svc.Login(context.Background(), "alice@example.com", "pw123")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, session.User.ID)

	logins := store.Logins()
	require.Len(t, logins, 1)
	assert.Equal(t, models.CredentialPassword, logins[0].Provider)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	svc, store, _ := newAuthService(t)
	register(t, svc, "alice@example.com", "pw123")

	googleID := "g-1"
	require.NoError(t, store.Create(context.Background(), &models.UserModel{
		Name: "Fed", LastName: "Only", Email: "fed@example.com", GoogleID: &googleID,
	}))

	_, wrongPassword := svc.Login(context.Background(), "alice@example.com", "nope")
	_, unknownEmail := svc.Login(context.Background(), "ghost@example.com", "pw123")
	_, noPassword := svc.Login(context.Background(), "fed@example.com", "")

	for _, err := range []error{wrongPassword, unknownEmail, noPassword} {
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
		assert.Equal(t, wrongPassword.Error(), err.Error())
	}
	assert.Empty(t, store.Logins())
}

func TestCurrentUser_Deleted(t *testing.T) {
	svc, store, _ := newAuthService(t)
	session := register(t, svc, "alice@example.com", "pw123")

	require.NoError(t, store.Delete(context.Background(), session.User.ID))

	_, err := svc.CurrentUser(context.Background(), session.User.ID)
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestUpdateProfile(t *testing.T) {
	svc, _, _ := newAuthService(t)
	session := register(t, svc, "alice@example.com", "pw123")

	institution := "University of Nairobi"
	user, err := svc.UpdateProfile(context.Background(), session.User.ID, models.ProfileUpdate{
		Name: "Alicia", LastName: "Moyo", Institution: &institution,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", user.Name)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)

	current, err := svc.CurrentUser(context.Background(), session.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "University of Nairobi", *current.Institution)
}

func TestUpdateProfile_UnknownUser(t *testing.T) {
	svc, _, _ := newAuthService(t)

	_, err := svc.UpdateProfile(context.Background(), 404, models.ProfileUpdate{Name: "A", LastName: "B"})
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestSeedAdmin(t *testing.T) {
	svc, store, _ := newAuthService(t)

	created, err := svc.SeedAdmin(context.Background(), "admin@misbar.africa", "s3cret-admin")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.SeedAdmin(context.Background(), "admin@misbar.africa", "s3cret-admin")
	require.NoError(t, err)
	assert.False(t, created)

	admin, err := store.GetByEmail(context.Background(), "admin@misbar.africa")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	_, err = svc.Login(context.Background(), "admin@misbar.africa", "s3cret-admin")
	assert.NoError(t, err)
}

func TestSeedAdmin_PasswordTooLong(t *testing.T) {
	svc, store, _ := newAuthService(t)

	created, err := svc.SeedAdmin(context.Background(), "admin@misbar.africa", strings.Repeat("a", 73))
	require.Error(t, err)
	assert.True(t, service.IsValidation(err))
	assert.False(t, created)

	users, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}
