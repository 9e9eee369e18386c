package auth

import (
	"context"
	"errors"

	"github.com/hongminglow/mess-be/internal/apperr"
	"github.com/hongminglow/mess-be/internal/models"
	"github.com/hongminglow/mess-be/internal/storage"
)

// AccountFinder resolves a token subject to an account.
type AccountFinder interface {
	FindAccountByID(ctx context.Context, id int64) (models.Account, error)
}

// Gate verifies bearer credentials and resolves them to accounts.
type Gate struct {
	tokens   *TokenManager
	accounts AccountFinder
}

// NewGate builds a gate over the token manager and account lookup.
func NewGate(tokens *TokenManager, accounts AccountFinder) *Gate {
	return &Gate{tokens: tokens, accounts: accounts}
}

// Authenticate checks the Authorization header value and returns the account
// it names. When role is non-empty the account must hold that role.
//
// Missing credentials and role mismatches are Forbidden; bad signatures and
// expired tokens are Unauthorized.
func (g *Gate) Authenticate(ctx context.Context, header string, role models.Role) (models.Account, error) {
	token := BearerToken(header)
	if token == "" {
		return models.Account{}, apperr.Forbidden("authorization token is required")
	}
	claims, err := g.tokens.Parse(token)
	if err != nil {
		return models.Account{}, apperr.Unauthorized("invalid or expired token")
	}
	id, err := claims.AccountID()
	if err != nil {
		return models.Account{}, apperr.Unauthorized("invalid or expired token")
	}
	account, err := g.accounts.FindAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Account{}, apperr.Forbidden("access forbidden")
		}
		return models.Account{}, apperr.Unexpected("failed to resolve credential", err)
	}
	if role != "" && account.Role != role {
		return models.Account{}, apperr.Forbidden("access forbidden")
	}
	return account, nil
}
