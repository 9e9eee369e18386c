package mess

import (
	"fmt"
	"strings"
	"time"

	"github.com/hongminglow/mess-be/internal/apperr"
	"github.com/hongminglow/mess-be/internal/models"
)

// DefaultMaxRequestDays bounds the inclusive length of a single request.
const DefaultMaxRequestDays = 366

// ValidateRequest checks a mess-off request against today. Dates are compared
// at day granularity. A request may span at most maxDays days; maxDays <= 0
// means DefaultMaxRequestDays.
func ValidateRequest(mealType models.MealType, start, end, today time.Time, maxDays int) error {
	if !mealType.Valid() {
		return apperr.Validation("mealType must be one of breakfast, dinner, both")
	}
	if start.Before(today) || end.Before(today) {
		return apperr.Validation("dates cannot be in the past")
	}
	if start.After(end) {
		return apperr.Validation("start date cannot be after end date")
	}
	if maxDays <= 0 {
		maxDays = DefaultMaxRequestDays
	}
	if SpanDays(start, end) > maxDays {
		return apperr.Validation(fmt.Sprintf("a request can cover at most %d days", maxDays))
	}
	return nil
}

// ParseStatus reads the status a manager asks for. Only terminal values are
// accepted.
func ParseStatus(s string) (models.RequestStatus, error) {
	status := models.RequestStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Terminal() {
		return "", apperr.Validation("invalid status")
	}
	return status, nil
}
