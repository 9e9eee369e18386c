package identity

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/mess-be/internal/apperr"
	"github.com/hongminglow/mess-be/internal/auth"
	"github.com/hongminglow/mess-be/internal/models"
	"github.com/hongminglow/mess-be/internal/models/dto"
	"github.com/hongminglow/mess-be/internal/storage/memory"
)

type brokenStore struct {
	*memory.Store
}

func (brokenStore) ListAccounts(context.Context, models.Role) ([]models.Account, error) {
	return nil, errors.New("pool closed")
}

func newTestService(t *testing.T) (*Service, *memory.Store, *auth.TokenManager) {
	t.Helper()
	store := memory.New()
	tokens := auth.NewTokenManager("test-secret", "mess-be", time.Hour)
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewService(store, tokens, log, WithHashCost(bcrypt.MinCost)), store, tokens
}

func validRegistration() dto.RegisterRequest {
	return dto.RegisterRequest{
		Username:    " Ali Khan ",
		Email:       "Ali@Example.com",
		PhoneNumber: "+923001234567",
		Password:    "secret1",
	}
}

func TestRegisterStudent(t *testing.T) {
	svc, _, _ := newTestService(t)

	account, err := svc.Register(context.Background(), validRegistration(), models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "Ali Khan", account.Username)
	assert.Equal(t, "ali@example.com", account.Email)
	assert.Equal(t, "U00001", account.UserCode)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("secret1")))

	next := validRegistration()
	next.Email = "other@example.com"
	next.PhoneNumber = "+923001234568"
	second, err := svc.Register(context.Background(), next, models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "U00002", second.UserCode)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	tests := []struct {
		name    string
		mutate  func(*dto.RegisterRequest)
		wantMsg string
	}{
		{"missing username", func(r *dto.RegisterRequest) { r.Username = "  " }, "username is required"},
		{"bad email", func(r *dto.RegisterRequest) { r.Email = "nope" }, "please use a valid email address"},
		{"bad phone", func(r *dto.RegisterRequest) { r.PhoneNumber = "03001234567" }, "please use a valid Pakistani phone number (e.g., +923001234567)"},
		{"short password", func(r *dto.RegisterRequest) { r.Password = "abc" }, "password must be at least 6 characters"},
		{"multibyte password over bcrypt limit", func(r *dto.RegisterRequest) { r.Password = strings.Repeat("é", 40) }, "password must be at most 72 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRegistration()
			tt.mutate(&req)
			_, err := svc.Register(context.Background(), req, models.RoleStudent)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Equal(t, tt.wantMsg, apperr.Message(err))
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Register(context.Background(), validRegistration(), models.RoleStudent)
	require.NoError(t, err)

	dup := validRegistration()
	dup.Email = "fresh@example.com"
	_, err = svc.Register(context.Background(), dup, models.RoleStudent)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, "user with this email or phone number already exists", apperr.Message(err))
}

func TestLogin(t *testing.T) {
	svc, _, tokens := newTestService(t)
	ctx := context.Background()
	created, err := svc.Register(ctx, validRegistration(), models.RoleManager)
	require.NoError(t, err)
	assert.Empty(t, created.UserCode)

	out, err := svc.Login(ctx, dto.LoginRequest{Email: "ALI@example.com ", Password: "secret1"}, models.RoleManager)
	require.NoError(t, err)
	assert.Equal(t, created.ID, out.Account.ID)

	claims, err := tokens.Parse(out.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleManager, claims.Role)
	id, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, created.ID, id)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "ali@example.com", Password: "wrong-pass"}, models.RoleManager)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	assert.Equal(t, "invalid password", apperr.Message(err))

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "ali@example.com", Password: "secret1"}, models.RoleStudent)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "user not found", apperr.Message(err))

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "ghost@example.com", Password: "secret1"}, models.RoleManager)
	assert.Equal(t, "manager not found", apperr.Message(err))
}

func TestStudentAdministration(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ListStudents(ctx)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	student, err := svc.Register(ctx, validRegistration(), models.RoleStudent)
	require.NoError(t, err)

	found, err := svc.FindStudentByEmail(ctx, "ali@example.com")
	require.NoError(t, err)
	assert.Equal(t, student.ID, found.ID)

	students, err := svc.ListStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, students, 1)

	assert.Equal(t, apperr.KindValidation, apperr.KindOf(svc.DeleteStudent(ctx, "42")))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(svc.DeleteStudent(ctx, "U00099")))
	require.NoError(t, svc.DeleteStudent(ctx, student.UserCode))

	_, err = store.FindAccountByID(ctx, student.ID)
	assert.Error(t, err)
	_, err = svc.FindStudentByEmail(ctx, "ali@example.com")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListStudentsStoreFailure(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	svc := NewService(brokenStore{memory.New()}, auth.NewTokenManager("s", "i", time.Hour), log)

	_, err := svc.ListStudents(context.Background())
	assert.Equal(t, apperr.KindUnexpected, apperr.KindOf(err))
	assert.Equal(t, "failed to fetch students", apperr.Message(err))
}
