package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hongminglow/mess-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrNotPending indicates a mess request has already been resolved.
var ErrNotPending = errors.New("request is not pending")

// AccountStore persists students and managers in one identity table.
type AccountStore interface {
	// CreateAccount inserts the account. Students are given the next user code
	// from a database sequence.
	CreateAccount(ctx context.Context, account models.Account) (models.Account, error)
	FindAccountByID(ctx context.Context, id int64) (models.Account, error)
	FindAccountByEmail(ctx context.Context, email string, role models.Role) (models.Account, error)
	FindStudentByCode(ctx context.Context, code string) (models.Account, error)
	ListAccounts(ctx context.Context, role models.Role) ([]models.Account, error)
	DeleteAccount(ctx context.Context, id int64) error
}

// EntryPatch turns meals off for one student on one day. Meals not switched
// off keep their stored value, or default to on when the row is created.
type EntryPatch struct {
	UserID       int64
	Date         time.Time
	BreakfastOff bool
	DinnerOff    bool
}

// LedgerStore persists per-day mess entries.
type LedgerStore interface {
	// InsertEntries creates the entries that do not exist yet and returns how
	// many rows were inserted. Existing (user, date) rows are left alone.
	InsertEntries(ctx context.Context, entries []models.MessEntry) (int64, error)
	// PatchEntries upserts each patch on its own; a failure stops the sweep
	// and leaves earlier days applied.
	PatchEntries(ctx context.Context, patches []EntryPatch) error
	EntriesForUser(ctx context.Context, userID int64, from, to time.Time) ([]models.MessEntry, error)
	// ActiveOn lists students with at least one meal on for date.
	ActiveOn(ctx context.Context, date time.Time) ([]models.MessStatus, error)
}

// Resolution moves a pending request to a terminal status and applies the
// ledger patches in the same transaction.
type Resolution struct {
	RequestID  int64
	Status     models.RequestStatus
	ResolvedBy int64
	ResolvedAt time.Time
	Patches    []EntryPatch
}

// RequestStore persists mess-off requests.
type RequestStore interface {
	CreateRequest(ctx context.Context, req models.MessRequest) (models.MessRequest, error)
	FindRequest(ctx context.Context, id int64) (models.MessRequest, error)
	ListRequestsByStatus(ctx context.Context, status models.RequestStatus) ([]models.MessRequestView, error)
	ListRequestsForUser(ctx context.Context, userID int64) ([]models.MessRequest, error)
	// CountOverlapping counts pending or approved requests of the user whose
	// range intersects [start, end].
	CountOverlapping(ctx context.Context, userID int64, start, end time.Time) (int, error)
	ResolveRequest(ctx context.Context, res Resolution) (models.MessRequest, error)
}

// MenuStore reads the weekly menu.
type MenuStore interface {
	ListMenu(ctx context.Context) ([]models.MenuEntry, error)
}

// Store is everything the service layer needs from persistence.
type Store interface {
	AccountStore
	LedgerStore
	RequestStore
	MenuStore
	Ping(ctx context.Context) error
}
