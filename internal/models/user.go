package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UserCodePrefix starts every human-readable student identifier.
const UserCodePrefix = "U"

// Account captures a single identity. Students and managers share one table
// and are told apart by Role; only students carry a UserCode.
type Account struct {
	ID           int64     `json:"id"`
	UserCode     string    `json:"userId,omitempty"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Phone        string    `json:"phoneNumber"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsManager reports whether the account may pass the manager gate.
func (a Account) IsManager() bool {
	return a.Role == RoleManager
}

// FormatUserCode renders a sequence number as U00001, U00002, ...
// Numbers wider than five digits keep all their digits.
func FormatUserCode(n int64) string {
	return fmt.Sprintf("%s%05d", UserCodePrefix, n)
}

// ParseUserCode returns the sequence number encoded in a user code.
func ParseUserCode(code string) (int64, error) {
	if !strings.HasPrefix(code, UserCodePrefix) || len(code) < len(UserCodePrefix)+5 {
		return 0, fmt.Errorf("malformed user code %q", code)
	}
	n, err := strconv.ParseInt(code[len(UserCodePrefix):], 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("malformed user code %q", code)
	}
	return n, nil
}
