package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/mess-be/internal/auth"
	"github.com/hongminglow/mess-be/internal/identity"
	"github.com/hongminglow/mess-be/internal/mess"
	"github.com/hongminglow/mess-be/internal/middleware"
	"github.com/hongminglow/mess-be/internal/models"
	"github.com/hongminglow/mess-be/internal/storage"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	router http.Handler
	tokens *auth.TokenManager
}

// newTestAPI wires the real services over store with a clock fixed at today.
func newTestAPI(t *testing.T, store storage.Store, today time.Time, signupKey string) *testAPI {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	tokens := auth.NewTokenManager("test-secret", "mess-test", time.Hour)
	accounts := identity.NewService(store, tokens, log, identity.WithHashCost(bcrypt.MinCost))
	workflow := mess.NewService(store, accounts, log, mess.Options{
		Location: time.UTC,
		Now:      func() time.Time { return today.Add(8 * time.Hour) },
	})
	gate := auth.NewGate(tokens, store)
	guards := Guards{
		Any:     middleware.RequireRole(gate, ""),
		Student: middleware.RequireRole(gate, models.RoleStudent),
		Manager: middleware.RequireRole(gate, models.RoleManager),
	}

	r := mux.NewRouter()
	r.Use(middleware.Logging(log))
	NewHealthHandler(time.Now(), store).Register(r)
	NewMenuHandler(store).Register(r)
	NewUserHandler(accounts, workflow).Register(r, guards)
	NewManagerHandler(accounts, workflow, signupKey).Register(r, guards)
	return &testAPI{router: r, tokens: tokens}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func decodeData(t *testing.T, env envelope, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func registration(email, phone string) map[string]string {
	return map[string]string{
		"username":    "tester",
		"email":       email,
		"phoneNumber": phone,
		"password":    "secret1",
	}
}

// login registers (when needed) and logs in, returning the token.
func (a *testAPI) login(t *testing.T, role models.Role, email, phone string) string {
	t.Helper()
	base := "/api/users"
	if role == models.RoleManager {
		base = "/api/manager"
	}
	code, env := a.do(t, http.MethodPost, base+"/register", "", registration(email, phone))
	require.Equal(t, http.StatusCreated, code, env.Message)

	code, env = a.do(t, http.MethodPost, base+"/login", "", map[string]string{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusOK, code, env.Message)
	var out struct {
		Token string `json:"token"`
	}
	decodeData(t, env, &out)
	return out.Token
}
