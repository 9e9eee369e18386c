// Package memory is a map-backed storage.Store for local runs and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hongminglow/mess-be/internal/models"
	"github.com/hongminglow/mess-be/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type entryKey struct {
	userID int64
	date   time.Time
}

// Store keeps every record in process memory behind one lock.
type Store struct {
	mu sync.RWMutex

	nextAccountID int64
	nextUserCode  int64
	nextEntryID   int64
	nextRequestID int64

	accounts map[int64]models.Account
	entries  map[entryKey]models.MessEntry
	requests map[int64]models.MessRequest
	menu     []models.MenuEntry
}

// New returns an empty store.
func New() *Store {
	return &Store{
		accounts: make(map[int64]models.Account),
		entries:  make(map[entryKey]models.MessEntry),
		requests: make(map[int64]models.MessRequest),
	}
}

// SetMenu replaces the weekly menu.
func (s *Store) SetMenu(menu []models.MenuEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.menu = append([]models.MenuEntry(nil), menu...)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) CreateAccount(_ context.Context, account models.Account) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(account.Email)
	for _, existing := range s.accounts {
		if strings.ToLower(existing.Email) == email || existing.Phone == account.Phone {
			return models.Account{}, storage.ErrAlreadyExists
		}
	}
	s.nextAccountID++
	account.ID = s.nextAccountID
	account.UserCode = ""
	if account.Role == models.RoleStudent {
		s.nextUserCode++
		account.UserCode = models.FormatUserCode(s.nextUserCode)
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	s.accounts[account.ID] = account
	return account, nil
}

func (s *Store) FindAccountByID(_ context.Context, id int64) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return models.Account{}, storage.ErrNotFound
	}
	return account, nil
}

func (s *Store) FindAccountByEmail(_ context.Context, email string, role models.Role) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.accounts {
		if strings.EqualFold(account.Email, email) && account.Role == role {
			return account, nil
		}
	}
	return models.Account{}, storage.ErrNotFound
}

func (s *Store) FindStudentByCode(_ context.Context, code string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.accounts {
		if account.Role == models.RoleStudent && account.UserCode == code {
			return account, nil
		}
	}
	return models.Account{}, storage.ErrNotFound
}

func (s *Store) ListAccounts(_ context.Context, role models.Role) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Account
	for _, account := range s.accounts {
		if account.Role == role {
			out = append(out, account)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteAccount removes the account with its ledger rows and requests.
func (s *Store) DeleteAccount(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.accounts, id)
	for key := range s.entries {
		if key.userID == id {
			delete(s.entries, key)
		}
	}
	for rid, req := range s.requests {
		if req.UserID == id {
			delete(s.requests, rid)
		}
	}
	return nil
}

func (s *Store) InsertEntries(_ context.Context, entries []models.MessEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var inserted int64
	for _, e := range entries {
		key := entryKey{userID: e.UserID, date: e.Date}
		if _, exists := s.entries[key]; exists {
			continue
		}
		s.nextEntryID++
		e.ID = s.nextEntryID
		s.entries[key] = e
		inserted++
	}
	return inserted, nil
}

func (s *Store) PatchEntries(_ context.Context, patches []storage.EntryPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyPatches(patches)
	return nil
}

func (s *Store) applyPatches(patches []storage.EntryPatch) {
	for _, p := range patches {
		key := entryKey{userID: p.UserID, date: p.Date}
		e, exists := s.entries[key]
		if !exists {
			s.nextEntryID++
			e = models.MessEntry{ID: s.nextEntryID, UserID: p.UserID, Date: p.Date, Breakfast: true, Dinner: true}
		}
		if p.BreakfastOff {
			e.Breakfast = false
		}
		if p.DinnerOff {
			e.Dinner = false
		}
		s.entries[key] = e
	}
}

func (s *Store) EntriesForUser(_ context.Context, userID int64, from, to time.Time) ([]models.MessEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.MessEntry
	for key, e := range s.entries {
		if key.userID == userID && !key.date.Before(from) && !key.date.After(to) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) ActiveOn(_ context.Context, date time.Time) ([]models.MessStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.MessStatus
	for key, e := range s.entries {
		if !key.date.Equal(date) || (!e.Breakfast && !e.Dinner) {
			continue
		}
		account, ok := s.accounts[key.userID]
		if !ok {
			continue
		}
		out = append(out, models.MessStatus{
			UserCode:    account.UserCode,
			StudentName: account.Username,
			Email:       account.Email,
			Breakfast:   e.Breakfast,
			Dinner:      e.Dinner,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserCode < out[j].UserCode })
	return out, nil
}

func (s *Store) CreateRequest(_ context.Context, req models.MessRequest) (models.MessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[req.UserID]; !ok {
		return models.MessRequest{}, storage.ErrNotFound
	}
	s.nextRequestID++
	req.ID = s.nextRequestID
	s.requests[req.ID] = req
	return req, nil
}

func (s *Store) FindRequest(_ context.Context, id int64) (models.MessRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok {
		return models.MessRequest{}, storage.ErrNotFound
	}
	return req, nil
}

func (s *Store) ListRequestsByStatus(_ context.Context, status models.RequestStatus) ([]models.MessRequestView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.MessRequestView
	for _, req := range s.requests {
		if req.Status != status {
			continue
		}
		account := s.accounts[req.UserID]
		out = append(out, models.MessRequestView{
			MessRequest: req,
			UserCode:    account.UserCode,
			Username:    account.Username,
			Email:       account.Email,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListRequestsForUser(_ context.Context, userID int64) ([]models.MessRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.MessRequest
	for _, req := range s.requests {
		if req.UserID == userID {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) CountOverlapping(_ context.Context, userID int64, start, end time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, req := range s.requests {
		if req.UserID != userID || req.Status == models.StatusRejected {
			continue
		}
		if !req.StartDate.After(end) && !req.EndDate.Before(start) {
			n++
		}
	}
	return n, nil
}

func (s *Store) ResolveRequest(_ context.Context, res storage.Resolution) (models.MessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[res.RequestID]
	if !ok {
		return models.MessRequest{}, storage.ErrNotFound
	}
	if req.Status != models.StatusPending {
		return models.MessRequest{}, storage.ErrNotPending
	}
	resolvedAt := res.ResolvedAt
	resolvedBy := res.ResolvedBy
	req.Status = res.Status
	req.ResolvedAt = &resolvedAt
	req.ResolvedBy = &resolvedBy
	s.requests[req.ID] = req
	s.applyPatches(res.Patches)
	return req, nil
}

func (s *Store) ListMenu(context.Context) ([]models.MenuEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.MenuEntry(nil), s.menu...), nil
}

// DefaultMenu mirrors the menu seeded by the Postgres migrations.
var DefaultMenu = []models.MenuEntry{
	{Day: "Monday", Breakfast: "Paratha, omelette, tea", Dinner: "Chicken karahi, roti"},
	{Day: "Tuesday", Breakfast: "Halwa puri, chana", Dinner: "Daal mash, rice"},
	{Day: "Wednesday", Breakfast: "Bread, fried egg, tea", Dinner: "Aloo keema, roti"},
	{Day: "Thursday", Breakfast: "Aloo paratha, yogurt", Dinner: "Chicken biryani, raita"},
	{Day: "Friday", Breakfast: "Nihari, naan", Dinner: "Mix vegetable, roti"},
	{Day: "Saturday", Breakfast: "Bread, jam, boiled egg", Dinner: "Chicken qorma, roti"},
	{Day: "Sunday", Breakfast: "Channay, kulcha, lassi", Dinner: "Daal chawal, salad"},
}
