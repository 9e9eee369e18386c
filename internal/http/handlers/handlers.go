// Package handlers exposes the mess workflow over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/hongminglow/mess-be/internal/http/respond"
	"github.com/hongminglow/mess-be/internal/mess"
	"github.com/hongminglow/mess-be/internal/middleware"
	"github.com/hongminglow/mess-be/internal/models"
	"github.com/hongminglow/mess-be/internal/models/dto"
)

// Accounts is the identity workflow the handlers call.
type Accounts interface {
	Register(ctx context.Context, req dto.RegisterRequest, role models.Role) (models.Account, error)
	Login(ctx context.Context, req dto.LoginRequest, role models.Role) (dto.LoginResponse, error)
	FindStudentByEmail(ctx context.Context, email string) (models.Account, error)
	ListStudents(ctx context.Context) ([]models.Account, error)
	DeleteStudent(ctx context.Context, userCode string) error
}

// Mess is the ledger and request workflow the handlers call.
type Mess interface {
	RegisterStudent(ctx context.Context, req dto.RegisterRequest) (mess.Enrollment, error)
	ReseedStudent(ctx context.Context, userCode string) (int64, error)
	SeedMonthForAll(ctx context.Context, month time.Time) (dto.SeedResult, error)
	CreateRequest(ctx context.Context, userID int64, req dto.CreateMessRequest) (models.MessRequest, error)
	ResolveRequest(ctx context.Context, requestID int64, status string, managerID int64) (models.MessRequest, error)
	TurnMessOff(ctx context.Context, userCode string, req dto.MessOffRequest) (models.MessEntry, error)
	TodayStatus(ctx context.Context) ([]models.MessStatus, error)
	PendingRequests(ctx context.Context) ([]models.MessRequestView, error)
	RequestsForUser(ctx context.Context, userID int64) ([]models.MessRequest, error)
	Ledger(ctx context.Context, userID int64, month string) ([]models.MessEntry, error)
}

// Guards are the middlewares protecting route groups.
type Guards struct {
	// Any admits every authenticated account.
	Any     mux.MiddlewareFunc
	Student mux.MiddlewareFunc
	Manager mux.MiddlewareFunc
	// Login throttles credential checks.
	Login mux.MiddlewareFunc
}

func passthrough(next http.Handler) http.Handler { return next }

func (g Guards) withDefaults() Guards {
	if g.Any == nil {
		g.Any = passthrough
	}
	if g.Student == nil {
		g.Student = passthrough
	}
	if g.Manager == nil {
		g.Manager = passthrough
	}
	if g.Login == nil {
		g.Login = passthrough
	}
	return g
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty,
// including chunked requests with no content.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}

func fail(w http.ResponseWriter, r *http.Request, err error) {
	respond.FromError(w, middleware.Logger(r.Context()), err)
}

// caller returns the account admitted by the route guard.
func caller(w http.ResponseWriter, r *http.Request) (models.Account, bool) {
	account, ok := middleware.AccountFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusForbidden, "access forbidden")
	}
	return account, ok
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id, err == nil && id > 0
}
