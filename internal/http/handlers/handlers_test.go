package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/mess-be/internal/models"
	"github.com/hongminglow/mess-be/internal/storage/memory"
)

var today = time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC)

type entryView struct {
	Date      time.Time `json:"date"`
	Breakfast bool      `json:"breakfast"`
	Dinner    bool      `json:"dinner"`
}

func TestStudentRegistrationSeedsLedger(t *testing.T) {
	api := newTestAPI(t, memory.New(), today, "")

	code, env := api.do(t, http.MethodPost, "/api/users/register", "", registration("ali@example.com", "+923001234567"))
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, env.Success)
	var reg struct {
		User struct {
			UserID string `json:"userId"`
		} `json:"user"`
		LedgerSeeded bool `json:"ledgerSeeded"`
		EntryCount   int  `json:"entryCount"`
	}
	decodeData(t, env, &reg)
	assert.Equal(t, "U00001", reg.User.UserID)
	assert.True(t, reg.LedgerSeeded)
	assert.Equal(t, 30, reg.EntryCount)

	code, env = api.do(t, http.MethodPost, "/api/users/register", "", registration("ali@example.com", "+923001234599"))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
	assert.Equal(t, "user with this email or phone number already exists", env.Message)

	code, env = api.do(t, http.MethodPost, "/api/users/register", "", registration("bad", "+923001234598"))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "please use a valid email address", env.Message)
}

func TestInvalidJSON(t *testing.T) {
	api := newTestAPI(t, memory.New(), today, "")
	code, env := api.do(t, http.MethodPost, "/api/users/login", "", "not an object")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid JSON payload", env.Message)
}

func TestLoginErrors(t *testing.T) {
	api := newTestAPI(t, memory.New(), today, "")
	api.login(t, models.RoleStudent, "ali@example.com", "+923001234567")

	code, env := api.do(t, http.MethodPost, "/api/users/login", "", map[string]string{"email": "ali@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid password", env.Message)

	code, env = api.do(t, http.MethodPost, "/api/manager/login", "", map[string]string{"email": "ali@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "manager not found", env.Message)
}

func TestManagerGate(t *testing.T) {
	api := newTestAPI(t, memory.New(), today, "")
	studentToken := api.login(t, models.RoleStudent, "ali@example.com", "+923001234567")

	code, env := api.do(t, http.MethodGet, "/api/manager/students", "", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "authorization token is required", env.Message)

	code, env = api.do(t, http.MethodGet, "/api/manager/students", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid or expired token", env.Message)

	code, env = api.do(t, http.MethodGet, "/api/manager/students", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "access forbidden", env.Message)

	managerToken := api.login(t, models.RoleManager, "boss@example.com", "+923009999999")
	code, env = api.do(t, http.MethodGet, "/api/manager/students", managerToken, nil)
	assert.Equal(t, http.StatusOK, code)
	var students []models.Account
	decodeData(t, env, &students)
	require.Len(t, students, 1)
	assert.Equal(t, "U00001", students[0].UserCode)

	code, _ = api.do(t, http.MethodGet, "/api/users/mess", managerToken, nil)
	assert.Equal(t, http.StatusForbidden, code, "manager tokens do not pass the student gate")
}

func TestManagerSignupKey(t *testing.T) {
	api := newTestAPI(t, memory.New(), today, "letmein")

	code, _ := api.do(t, http.MethodPost, "/api/manager/register", "", registration("boss@example.com", "+923009999999"))
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRequestApprovalFlow(t *testing.T) {
	api := newTestAPI(t, memory.New(), today, "")
	student := api.login(t, models.RoleStudent, "ali@example.com", "+923001234567")
	manager := api.login(t, models.RoleManager, "boss@example.com", "+923009999999")

	code, env := api.do(t, http.MethodPost, "/api/users/mess-requests", student, map[string]string{
		"mealType": "dinner", "startDate": "2024-04-09", "endDate": "2024-04-12",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "dates cannot be in the past", env.Message)

	code, env = api.do(t, http.MethodPost, "/api/users/mess-requests", student, map[string]string{
		"mealType": "dinner", "startDate": "2024-04-15", "endDate": "2024-04-17",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var created models.MessRequest
	decodeData(t, env, &created)
	assert.Equal(t, models.StatusPending, created.Status)

	code, env = api.do(t, http.MethodGet, "/api/manager/mess-requests/pending", manager, nil)
	require.Equal(t, http.StatusOK, code)
	var pending []models.MessRequestView
	decodeData(t, env, &pending)
	require.Len(t, pending, 1)
	assert.Equal(t, "U00001", pending[0].UserCode)

	code, env = api.do(t, http.MethodPatch, "/api/manager/mess-request/999", manager, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "request not found", env.Message)

	path := "/api/manager/mess-request/" + itoa(created.ID)
	code, env = api.do(t, http.MethodPatch, path, manager, map[string]string{"status": "maybe"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid status", env.Message)

	code, env = api.do(t, http.MethodPatch, path, manager, map[string]string{"status": "approved"})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, "Request approved successfully", env.Message)

	code, _ = api.do(t, http.MethodPatch, path, manager, map[string]string{"status": "rejected"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = api.do(t, http.MethodGet, "/api/users/mess", student, nil)
	require.Equal(t, http.StatusOK, code)
	var entries []entryView
	decodeData(t, env, &entries)
	require.Len(t, entries, 30)
	for _, e := range entries {
		d := e.Date.Day()
		inRange := d >= 15 && d <= 17
		assert.Equal(t, !inRange && d >= 10, e.Dinner, "dinner on day %d", d)
		assert.Equal(t, d >= 10, e.Breakfast, "breakfast on day %d", d)
	}

	code, env = api.do(t, http.MethodGet, "/api/manager/mess-requests/pending", manager, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "no pending requests found", env.Message)

	code, env = api.do(t, http.MethodGet, "/api/users/mess-requests", student, nil)
	require.Equal(t, http.StatusOK, code)
	var mine []models.MessRequest
	decodeData(t, env, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, models.StatusApproved, mine[0].Status)
}

func TestMessTodayAndManualOff(t *testing.T) {
	api := newTestAPI(t, memory.New(), today, "")
	manager := api.login(t, models.RoleManager, "boss@example.com", "+923009999999")

	code, env := api.do(t, http.MethodGet, "/api/manager/messtoday", manager, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "no mess records found for today", env.Message)

	code, env = api.do(t, http.MethodPost, "/api/manager/register-student", manager, registration("ali@example.com", "+923001234567"))
	require.Equal(t, http.StatusCreated, code, env.Message)

	code, env = api.do(t, http.MethodGet, "/api/manager/messtoday", manager, nil)
	require.Equal(t, http.StatusOK, code)
	var rows []models.MessStatus
	decodeData(t, env, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, "ali@example.com", rows[0].Email)

	code, env = api.do(t, http.MethodPatch, "/api/manager/mess-off/U00001", manager, nil)
	require.Equal(t, http.StatusOK, code, env.Message)

	code, _ = api.do(t, http.MethodGet, "/api/manager/messtoday", manager, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = api.do(t, http.MethodPatch, "/api/manager/mess-off/U00042", manager, map[string]string{"mealType": "dinner"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "student not found", env.Message)
}

func TestManualOffAcceptsEmptyChunkedBody(t *testing.T) {
	api := newTestAPI(t, memory.New(), today, "")
	manager := api.login(t, models.RoleManager, "boss@example.com", "+923009999999")
	code, env := api.do(t, http.MethodPost, "/api/manager/register-student", manager, registration("ali@example.com", "+923001234567"))
	require.Equal(t, http.StatusCreated, code, env.Message)

	send := func(body string) int {
		req := httptest.NewRequest(http.MethodPatch, "/api/manager/mess-off/U00001", nil)
		req.Body = io.NopCloser(strings.NewReader(body))
		req.ContentLength = -1
		req.Header.Set("Authorization", "Bearer "+manager)
		rec := httptest.NewRecorder()
		api.router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send(""))
	assert.Equal(t, http.StatusOK, send(`{"mealType":"dinner"}`))
	assert.Equal(t, http.StatusBadRequest, send(`{"mealType":`))
}

func TestRegisterRejectsOverlongMultibytePassword(t *testing.T) {
	api := newTestAPI(t, memory.New(), today, "")

	body := registration("ali@example.com", "+923001234567")
	body["password"] = strings.Repeat("é", 40)
	code, env := api.do(t, http.MethodPost, "/api/users/register", "", body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "password must be at most 72 bytes", env.Message)
}

func TestStudentAdministration(t *testing.T) {
	api := newTestAPI(t, memory.New(), today, "")
	manager := api.login(t, models.RoleManager, "boss@example.com", "+923009999999")

	code, env := api.do(t, http.MethodGet, "/api/manager/students", manager, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "no students found", env.Message)

	code, _ = api.do(t, http.MethodPost, "/api/manager/register-student", manager, registration("ali@example.com", "+923001234567"))
	require.Equal(t, http.StatusCreated, code)

	code, env = api.do(t, http.MethodGet, "/api/users/user?email=ali@example.com", manager, nil)
	require.Equal(t, http.StatusOK, code)
	var user models.Account
	decodeData(t, env, &user)
	assert.Equal(t, "U00001", user.UserCode)

	code, env = api.do(t, http.MethodPost, "/api/manager/students/U00001/reseed", manager, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var reseed map[string]int64
	decodeData(t, env, &reseed)
	assert.Zero(t, reseed["inserted"])

	code, env = api.do(t, http.MethodPost, "/api/manager/mess/seed-month", manager, map[string]string{"month": "2024-05"})
	require.Equal(t, http.StatusOK, code, env.Message)
	var seeded map[string]int64
	decodeData(t, env, &seeded)
	assert.EqualValues(t, 1, seeded["students"])
	assert.EqualValues(t, 31, seeded["inserted"])

	code, _ = api.do(t, http.MethodPost, "/api/manager/mess/seed-month", manager, map[string]string{"month": "May"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = api.do(t, http.MethodDelete, "/api/manager/delete-student/U00001", manager, nil)
	assert.Equal(t, http.StatusOK, code)
	code, env = api.do(t, http.MethodDelete, "/api/manager/delete-student/U00001", manager, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "student not found", env.Message)

	code, _ = api.do(t, http.MethodGet, "/api/users/user?email=ali@example.com", "", nil)
	assert.Equal(t, http.StatusForbidden, code)
}

type flakyStore struct {
	*memory.Store
	down bool
}

func (s *flakyStore) Ping(context.Context) error {
	if s.down {
		return errors.New("connection refused")
	}
	return nil
}

func TestHealthAndMenu(t *testing.T) {
	store := &flakyStore{Store: memory.New()}
	api := newTestAPI(t, store, today, "")

	code, env := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	store.down = true
	code, _ = api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, env = api.do(t, http.MethodGet, "/api/menu", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "menu not found", env.Message)

	store.SetMenu([]models.MenuEntry{{Day: "Monday", Breakfast: "Paratha", Dinner: "Karahi"}})
	code, env = api.do(t, http.MethodGet, "/api/menu", "", nil)
	require.Equal(t, http.StatusOK, code)
	var menu []models.MenuEntry
	decodeData(t, env, &menu)
	assert.Equal(t, "Paratha", menu[0].Breakfast)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
