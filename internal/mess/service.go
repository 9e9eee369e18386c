// Package mess implements the mess-entry lifecycle: seeding a student's
// per-day ledger, validating mess-off requests and reconciling approved
// requests back into the ledger.
package mess

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hongminglow/mess-be/internal/apperr"
	"github.com/hongminglow/mess-be/internal/metrics"
	"github.com/hongminglow/mess-be/internal/models"
	"github.com/hongminglow/mess-be/internal/models/dto"
	"github.com/hongminglow/mess-be/internal/storage"
)

// Registrar creates accounts.
type Registrar interface {
	Register(ctx context.Context, req dto.RegisterRequest, role models.Role) (models.Account, error)
}

// Store is the persistence the workflow needs.
type Store interface {
	storage.AccountStore
	storage.LedgerStore
	storage.RequestStore
}

// Options tunes a Service.
type Options struct {
	// Location decides where "today" starts. Defaults to time.Local.
	Location *time.Location
	Overlap  models.OverlapPolicy

	// MaxRequestDays defaults to DefaultMaxRequestDays.
	MaxRequestDays int

	// Now defaults to time.Now.
	Now func() time.Time
}

// Service runs the mess workflow on top of a Store.
type Service struct {
	store     Store
	registrar Registrar
	log       logrus.FieldLogger
	loc       *time.Location
	overlap   models.OverlapPolicy
	maxDays   int
	now       func() time.Time
}

// NewService wires a workflow service.
func NewService(store Store, registrar Registrar, log logrus.FieldLogger, opts Options) *Service {
	s := &Service{
		store:     store,
		registrar: registrar,
		log:       log.WithField("component", "mess"),
		loc:       opts.Location,
		overlap:   opts.Overlap,
		maxDays:   opts.MaxRequestDays,
		now:       opts.Now,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.overlap == "" {
		s.overlap = models.OverlapAllow
	}
	if s.maxDays <= 0 {
		s.maxDays = DefaultMaxRequestDays
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Today is the current calendar day in the service location.
func (s *Service) Today() time.Time {
	return CalendarDay(s.now(), s.loc)
}

// Enrollment is the outcome of registering a student.
type Enrollment struct {
	Account      models.Account
	LedgerSeeded bool
	Entries      int64
}

// RegisterStudent creates a student account and seeds the current month of
// the ledger. A seeding failure leaves the account in place: it is logged and
// reported through LedgerSeeded, and ReseedStudent repairs it later.
func (s *Service) RegisterStudent(ctx context.Context, req dto.RegisterRequest) (Enrollment, error) {
	account, err := s.registrar.Register(ctx, req, models.RoleStudent)
	if err != nil {
		return Enrollment{}, err
	}
	out := Enrollment{Account: account}

	n, err := s.store.InsertEntries(ctx, SeedMonth(account.ID, s.Today()))
	if err != nil {
		metrics.RecordSeedFailure()
		s.log.WithError(err).WithFields(logrus.Fields{
			"account_id": account.ID,
			"user_code":  account.UserCode,
		}).Warn("ledger seeding failed; account kept")
		return out, nil
	}
	metrics.RecordLedgerRows("seed", int(n))
	out.LedgerSeeded = true
	out.Entries = n
	return out, nil
}

// ReseedStudent fills in any missing days of the current month for a student.
// Existing rows are not touched.
func (s *Service) ReseedStudent(ctx context.Context, userCode string) (int64, error) {
	student, err := s.findStudent(ctx, userCode)
	if err != nil {
		return 0, err
	}
	n, err := s.store.InsertEntries(ctx, SeedMonth(student.ID, s.Today()))
	if err != nil {
		return 0, apperr.Unexpected("failed to seed mess entries", err)
	}
	metrics.RecordLedgerRows("reseed", int(n))
	return n, nil
}

// SeedMonthForAll creates the given month's rows for every student that lacks
// them. It stops at the first failing student.
func (s *Service) SeedMonthForAll(ctx context.Context, month time.Time) (dto.SeedResult, error) {
	students, err := s.store.ListAccounts(ctx, models.RoleStudent)
	if err != nil {
		return dto.SeedResult{}, apperr.Unexpected("failed to list students", err)
	}
	today := s.Today()
	var res dto.SeedResult
	for _, student := range students {
		n, err := s.store.InsertEntries(ctx, SeedMonthFrom(student.ID, month, today))
		if err != nil {
			s.log.WithError(err).WithField("user_code", student.UserCode).Error("month rollover failed")
			return res, apperr.Unexpected("failed to seed mess entries", err)
		}
		res.Students++
		res.Inserted += n
	}
	metrics.RecordLedgerRows("rollover", int(res.Inserted))
	return res, nil
}

// CreateRequest validates and stores a pending mess-off request. The ledger
// is not touched until a manager approves it.
func (s *Service) CreateRequest(ctx context.Context, userID int64, req dto.CreateMessRequest) (models.MessRequest, error) {
	if err := dto.Validate(req); err != nil {
		return models.MessRequest{}, apperr.Validation(err.Error())
	}
	start, err := ParseDate(req.StartDate)
	if err != nil {
		return models.MessRequest{}, apperr.Validation(err.Error())
	}
	end, err := ParseDate(req.EndDate)
	if err != nil {
		return models.MessRequest{}, apperr.Validation(err.Error())
	}
	mealType := models.MealType(req.MealType)
	if err := ValidateRequest(mealType, start, end, s.Today(), s.maxDays); err != nil {
		return models.MessRequest{}, err
	}

	if s.overlap == models.OverlapReject {
		n, err := s.store.CountOverlapping(ctx, userID, start, end)
		if err != nil {
			return models.MessRequest{}, apperr.Unexpected("failed to check existing requests", err)
		}
		if n > 0 {
			return models.MessRequest{}, apperr.Conflict("an open request already covers these dates")
		}
	}

	created, err := s.store.CreateRequest(ctx, models.MessRequest{
		UserID:    userID,
		MealType:  mealType,
		StartDate: start,
		EndDate:   end,
		Status:    models.StatusPending,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return models.MessRequest{}, apperr.Unexpected("failed to create mess request", err)
	}
	metrics.RecordRequestTransition(string(models.StatusPending))
	return created, nil
}

// ResolveRequest approves or rejects a pending request. Rejection changes
// only the status; approval also switches off the requested meals for every
// day of the range, in the same transaction.
func (s *Service) ResolveRequest(ctx context.Context, requestID int64, status string, managerID int64) (models.MessRequest, error) {
	req, err := s.store.FindRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.MessRequest{}, apperr.NotFound("request not found")
		}
		return models.MessRequest{}, apperr.Unexpected("failed to load request", err)
	}
	next, err := ParseStatus(status)
	if err != nil {
		return models.MessRequest{}, err
	}
	if req.Status.Terminal() {
		return models.MessRequest{}, apperr.Conflict("request has already been " + string(req.Status))
	}

	res := storage.Resolution{
		RequestID:  req.ID,
		Status:     next,
		ResolvedBy: managerID,
		ResolvedAt: s.now().UTC(),
	}
	if next == models.StatusApproved {
		res.Patches = ApprovalPatches(req)
	}

	updated, err := s.store.ResolveRequest(ctx, res)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return models.MessRequest{}, apperr.NotFound("request not found")
	case errors.Is(err, storage.ErrNotPending):
		return models.MessRequest{}, apperr.Conflict("request has already been resolved")
	case err != nil:
		return models.MessRequest{}, apperr.Unexpected("failed to update request", err)
	}
	metrics.RecordRequestTransition(string(next))
	metrics.RecordLedgerRows("approval", len(res.Patches))
	s.log.WithFields(logrus.Fields{
		"request_id": req.ID,
		"status":     next,
		"manager_id": managerID,
		"days":       len(res.Patches),
	}).Info("mess request resolved")
	return updated, nil
}

// TurnMessOff lets a manager switch meals off for one student on one day.
// An empty meal type means both meals; an empty date means today.
func (s *Service) TurnMessOff(ctx context.Context, userCode string, req dto.MessOffRequest) (models.MessEntry, error) {
	if err := dto.Validate(req); err != nil {
		return models.MessEntry{}, apperr.Validation(err.Error())
	}
	mealType := models.MealBoth
	if req.MealType != "" {
		mealType = models.MealType(req.MealType)
	}
	today := s.Today()
	day := today
	if req.Date != "" {
		d, err := ParseDate(req.Date)
		if err != nil {
			return models.MessEntry{}, apperr.Validation(err.Error())
		}
		day = d
	}
	if day.Before(today) {
		return models.MessEntry{}, apperr.Validation("date cannot be in the past")
	}

	student, err := s.findStudent(ctx, userCode)
	if err != nil {
		return models.MessEntry{}, err
	}
	patch := storage.EntryPatch{
		UserID:       student.ID,
		Date:         day,
		BreakfastOff: mealType.BreakfastOff(),
		DinnerOff:    mealType.DinnerOff(),
	}
	if err := s.store.PatchEntries(ctx, []storage.EntryPatch{patch}); err != nil {
		return models.MessEntry{}, apperr.Unexpected("failed to update mess entry", err)
	}
	metrics.RecordLedgerRows("manual", 1)

	entries, err := s.store.EntriesForUser(ctx, student.ID, day, day)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_code": student.UserCode,
			"date":      day.Format(models.DateLayout),
		}).Warn("reload after mess-off failed")
	}
	if len(entries) == 0 {
		// The write succeeded; report what it must have produced.
		return ApplyPatch(nil, patch), nil
	}
	return entries[0], nil
}

// TodayStatus lists every student with at least one meal on today. An empty
// roster is reported as NotFound rather than an empty success.
func (s *Service) TodayStatus(ctx context.Context) ([]models.MessStatus, error) {
	rows, err := s.store.ActiveOn(ctx, s.Today())
	if err != nil {
		return nil, apperr.Unexpected("failed to load today's mess status", err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("no mess records found for today")
	}
	return rows, nil
}

// PendingRequests lists requests waiting for a manager; none is NotFound.
func (s *Service) PendingRequests(ctx context.Context) ([]models.MessRequestView, error) {
	rows, err := s.store.ListRequestsByStatus(ctx, models.StatusPending)
	if err != nil {
		return nil, apperr.Unexpected("failed to load pending requests", err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("no pending requests found")
	}
	return rows, nil
}

// RequestsForUser lists a student's own requests, newest first.
func (s *Service) RequestsForUser(ctx context.Context, userID int64) ([]models.MessRequest, error) {
	rows, err := s.store.ListRequestsForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Unexpected("failed to load mess requests", err)
	}
	return rows, nil
}

// Ledger returns a student's entries for a month given as YYYY-MM, or the
// current month when month is empty.
func (s *Service) Ledger(ctx context.Context, userID int64, month string) ([]models.MessEntry, error) {
	day := s.Today()
	if month != "" {
		m, err := ParseMonth(month)
		if err != nil {
			return nil, apperr.Validation(err.Error())
		}
		day = m
	}
	first, last := MonthBounds(day)
	rows, err := s.store.EntriesForUser(ctx, userID, first, last)
	if err != nil {
		return nil, apperr.Unexpected("failed to load mess entries", err)
	}
	return rows, nil
}

func (s *Service) findStudent(ctx context.Context, userCode string) (models.Account, error) {
	if _, err := models.ParseUserCode(userCode); err != nil {
		return models.Account{}, apperr.Validation(err.Error())
	}
	student, err := s.store.FindStudentByCode(ctx, userCode)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Account{}, apperr.NotFound("student not found")
		}
		return models.Account{}, apperr.Unexpected("failed to load student", err)
	}
	return student, nil
}
