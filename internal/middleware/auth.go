package middleware

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hongminglow/mess-be/internal/auth"
	"github.com/hongminglow/mess-be/internal/http/respond"
	"github.com/hongminglow/mess-be/internal/models"
)

// Authenticator resolves an Authorization header to an account.
type Authenticator interface {
	Authenticate(ctx context.Context, header string, role models.Role) (models.Account, error)
}

var _ Authenticator = (*auth.Gate)(nil)

// RequireRole admits only requests whose bearer token names an account with
// role. An empty role admits any authenticated account.
func RequireRole(gate Authenticator, role models.Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, err := gate.Authenticate(r.Context(), r.Header.Get("Authorization"), role)
			if err != nil {
				respond.FromError(w, Logger(r.Context()), err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), account)))
		})
	}
}

// AccountFrom returns the account admitted by RequireRole.
func AccountFrom(ctx context.Context) (models.Account, bool) {
	account, ok := ctx.Value(accountKey).(models.Account)
	return account, ok
}

// WithAccount stores account in ctx as RequireRole does.
func WithAccount(ctx context.Context, account models.Account) context.Context {
	return context.WithValue(ctx, accountKey, account)
}
