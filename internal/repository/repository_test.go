package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nsvirk/misbarapi/internal/models"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

var userColumns = []string{"id", "name", "last_name", "email", "password", "google_id", "microsoft_id", "institution", "phone_number", "role", "created_at", "updated_at"}

func TestUserRepository_GetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	hash := "$2a$10$hash"
	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(7, "Amina", "Diallo", "amina@example.com", hash, nil, nil, nil, nil, "user", now, now))

	user, err := repo.GetByEmail(context.Background(), "amina@example.com")
	require.NoError(t, err)
	assert.Equal(t, uint(7), user.ID)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.True(t, user.HasCredential(models.CredentialPassword))
	assert.False(t, user.HasCredential(models.CredentialGoogle))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserRepository_GetByProviderID_UsesProviderColumn(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE microsoft_id = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(3, "Kofi", "Mensah", "kofi@example.com", nil, nil, "ms-oid", nil, nil, "user", now, now))

	user, err := repo.GetByProviderID(context.Background(), models.CredentialMicrosoft, "ms-oid")
	require.NoError(t, err)
	assert.Equal(t, "ms-oid", *user.MicrosoftID)
	assert.False(t, user.HasCredential(models.CredentialPassword))
}

func TestUserRepository_GetByProviderID_PasswordKind(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewUserRepository(db)

	_, err := repo.GetByProviderID(context.Background(), models.CredentialPassword, "x")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.Create(context.Background(), &models.UserModel{Name: "A", LastName: "B", Email: "a@b.c", Role: models.RoleUser})
	assert.ErrorIs(t, err, models.ErrDuplicateKey)
}

func TestUserRepository_LinkProvider(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET .*"google_id"=.* WHERE id = \$\d+ AND google_id IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "identity_links"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	link := &models.IdentityLinkModel{UserID: 9, Provider: models.CredentialGoogle, ProviderSubject: "g-sub"}
	require.NoError(t, repo.LinkProvider(context.Background(), link))
	assert.Equal(t, uint(1), link.ID)
	assert.False(t, link.LinkedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_LinkProvider_AlreadyLinked(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	link := &models.IdentityLinkModel{UserID: 9, Provider: models.CredentialGoogle, ProviderSubject: "g-sub"}
	err := repo.LinkProvider(context.Background(), link)
	assert.ErrorIs(t, err, models.ErrAlreadyLinked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateByAdmin_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE "users" SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.UpdateByAdmin(context.Background(), 42, models.AdminUpdate{Name: "A", LastName: "B", Email: "a@b.c", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserRepository_List_NewestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "users" ORDER BY created_at DESC,id DESC`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(2, "B", "B", "b@example.com", nil, nil, nil, nil, nil, "user", now, now).
			AddRow(1, "A", "A", "a@example.com", nil, nil, nil, nil, nil, "admin", now.Add(-time.Hour), now))

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, uint(2), users[0].ID)
}

func TestUserRepository_Delete_Cascade(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`DELETE FROM "login_logs" WHERE user_id = \$1`).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`DELETE FROM "identity_links" WHERE user_id = \$1`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "chat_messages" WHERE session_id IN \(SELECT id FROM "chat_sessions" WHERE user_id = \$1\)`).WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec(`DELETE FROM "chat_sessions" WHERE user_id = \$1`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM "forum_replies" WHERE user_id = \$1 OR post_id IN \(SELECT id FROM "forum_posts" WHERE user_id = \$2\)`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM "forum_posts" WHERE user_id = \$1`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "users" WHERE id = \$1`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Delete_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), 5)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginLogRepository_Recent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLoginLogRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT ll.login_time, ll.provider, u.name, u.last_name, u.email FROM login_logs AS ll JOIN users AS u ON u.id = ll.user_id ORDER BY ll.login_time DESC LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"login_time", "provider", "name", "last_name", "email"}).
			AddRow(now, "google", "Amina", "Diallo", "amina@example.com"))

	logs, err := repo.Recent(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.CredentialGoogle, logs[0].Provider)
	assert.Equal(t, "amina@example.com", logs[0].Email)
}

func TestLoginLogRepository_PruneBefore(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLoginLogRepository(db)

	mock.ExpectExec(`DELETE FROM "login_logs" WHERE login_time < \$1`).WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.PruneBefore(context.Background(), time.Now().AddDate(-1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestChatRepository_RenameSession_NotOwned(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepository(db)

	mock.ExpectExec(`UPDATE "chat_sessions" SET .* WHERE id = \$\d+ AND user_id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.RenameSession(context.Background(), 1, 99, "Renamed")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestChatRepository_DeleteSession_NotOwned(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "chat_messages"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM "chat_sessions" WHERE id = \$1 AND user_id = \$2`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.DeleteSession(context.Background(), 1, 99)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_UsesEmbeddedFS(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	require.NoError(t, RunMigrations(context.Background(), nil))
	assert.Equal(t, ".", gotDir)
}

func TestWithSearchPath(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"host=db user=u", "host=db user=u search_path=api,public"},
		{"postgres://u:p@db:5432/misbar", "postgres://u:p@db:5432/misbar?search_path=api,public"},
		{"postgres://u:p@db:5432/misbar?sslmode=disable", "postgres://u:p@db:5432/misbar?sslmode=disable&search_path=api,public"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, withSearchPath(tt.dsn, "api"))
	}
}
