// Package identity registers, authenticates and administers student and
// manager accounts.
package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/mess-be/internal/apperr"
	"github.com/hongminglow/mess-be/internal/auth"
	"github.com/hongminglow/mess-be/internal/metrics"
	"github.com/hongminglow/mess-be/internal/models"
	"github.com/hongminglow/mess-be/internal/models/dto"
	"github.com/hongminglow/mess-be/internal/storage"
)

// Service handles account lifecycle.
type Service struct {
	store    storage.AccountStore
	tokens   *auth.TokenManager
	log      logrus.FieldLogger
	hashCost int
}

// Option customises a Service.
type Option func(*Service)

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// NewService constructs the service.
func NewService(store storage.AccountStore, tokens *auth.TokenManager, log logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		tokens:   tokens,
		log:      log.WithField("component", "identity"),
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const (
	maxPasswordBytes = 72
	passwordTooLong  = "password must be at most 72 bytes"
)

// Register validates the input, hashes the password and stores a new account
// with the given role. Email and phone must be unique across all accounts.
func (s *Service) Register(ctx context.Context, req dto.RegisterRequest, role models.Role) (models.Account, error) {
	req = normalize(req)
	if err := dto.Validate(req); err != nil {
		return models.Account{}, apperr.Validation(err.Error())
	}
	if !role.Valid() {
		return models.Account{}, apperr.Validation("invalid role")
	}
	// bcrypt limits the input in bytes, not characters.
	if len(req.Password) > maxPasswordBytes {
		return models.Account{}, apperr.Validation(passwordTooLong)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return models.Account{}, apperr.Validation(passwordTooLong)
	}
	if err != nil {
		return models.Account{}, apperr.Unexpected("failed to hash password", err)
	}

	created, err := s.store.CreateAccount(ctx, models.Account{
		Username:     req.Username,
		Email:        req.Email,
		Phone:        req.PhoneNumber,
		Role:         role,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return models.Account{}, apperr.Conflict(conflictMessage(role))
		}
		return models.Account{}, apperr.Unexpected("failed to create account", err)
	}
	metrics.RecordRegistration(string(role))
	s.log.WithFields(logrus.Fields{"account_id": created.ID, "role": role}).Info("account registered")
	return created, nil
}

// Login checks the credentials of an account with the given role and issues
// an access token.
func (s *Service) Login(ctx context.Context, req dto.LoginRequest, role models.Role) (dto.LoginResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := dto.Validate(req); err != nil {
		return dto.LoginResponse{}, apperr.Validation(err.Error())
	}
	account, err := s.store.FindAccountByEmail(ctx, req.Email, role)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return dto.LoginResponse{}, apperr.NotFound(notFoundMessage(role))
		}
		return dto.LoginResponse{}, apperr.Unexpected("failed to fetch account", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return dto.LoginResponse{}, apperr.Unauthorized("invalid password")
	}
	token, err := s.tokens.Generate(account)
	if err != nil {
		return dto.LoginResponse{}, apperr.Unexpected("failed to generate token", err)
	}
	return dto.LoginResponse{Token: token, Account: account}, nil
}

// FindStudentByEmail looks a student up by email.
func (s *Service) FindStudentByEmail(ctx context.Context, email string) (models.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.Account{}, apperr.Validation("email is required")
	}
	account, err := s.store.FindAccountByEmail(ctx, email, models.RoleStudent)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Account{}, apperr.NotFound("user not found")
		}
		return models.Account{}, apperr.Unexpected("failed to fetch user", err)
	}
	return account, nil
}

// ListStudents returns every student; none at all is NotFound.
func (s *Service) ListStudents(ctx context.Context) ([]models.Account, error) {
	students, err := s.store.ListAccounts(ctx, models.RoleStudent)
	if err != nil {
		return nil, apperr.Unexpected("failed to fetch students", err)
	}
	if len(students) == 0 {
		return nil, apperr.NotFound("no students found")
	}
	return students, nil
}

// DeleteStudent removes a student together with their ledger and requests.
func (s *Service) DeleteStudent(ctx context.Context, userCode string) error {
	if _, err := models.ParseUserCode(userCode); err != nil {
		return apperr.Validation(err.Error())
	}
	student, err := s.store.FindStudentByCode(ctx, userCode)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("student not found")
		}
		return apperr.Unexpected("failed to fetch student", err)
	}
	if err := s.store.DeleteAccount(ctx, student.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("student not found")
		}
		return apperr.Unexpected("failed to delete student", err)
	}
	s.log.WithField("user_code", userCode).Info("student deleted")
	return nil
}

func normalize(req dto.RegisterRequest) dto.RegisterRequest {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	return req
}

func conflictMessage(role models.Role) string {
	if role == models.RoleManager {
		return "manager with this email or phone number already exists"
	}
	return "user with this email or phone number already exists"
}

func notFoundMessage(role models.Role) string {
	if role == models.RoleManager {
		return "manager not found"
	}
	return "user not found"
}
