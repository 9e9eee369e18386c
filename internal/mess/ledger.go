package mess

import (
	"time"

	"github.com/hongminglow/mess-be/internal/models"
	"github.com/hongminglow/mess-be/internal/storage"
)

// SeedMonth builds one entry for every day of the month containing today.
// Days before today are off; today and later are on, so a student is counted
// from the day they join.
func SeedMonth(userID int64, today time.Time) []models.MessEntry {
	return SeedMonthFrom(userID, today, today)
}

// SeedMonthFrom builds the entries for the month containing month, switching
// on only days on or after today. A month wholly in the future is all on and
// one wholly in the past is all off.
func SeedMonthFrom(userID int64, month, today time.Time) []models.MessEntry {
	first, last := MonthBounds(month)
	entries := make([]models.MessEntry, 0, last.Day())
	eachDay(first, last, func(day time.Time) {
		on := !day.Before(today)
		entries = append(entries, models.MessEntry{
			UserID:    userID,
			Date:      day,
			Breakfast: on,
			Dinner:    on,
		})
	})
	return entries
}

// ApprovalPatches sweeps the request's inclusive date range and switches off
// the meals it names on each day.
func ApprovalPatches(req models.MessRequest) []storage.EntryPatch {
	var patches []storage.EntryPatch
	eachDay(req.StartDate, req.EndDate, func(day time.Time) {
		patches = append(patches, storage.EntryPatch{
			UserID:       req.UserID,
			Date:         day,
			BreakfastOff: req.MealType.BreakfastOff(),
			DinnerOff:    req.MealType.DinnerOff(),
		})
	})
	return patches
}

// ApplyPatch returns the entry as it looks after patch is applied. A nil
// entry stands for a missing row, which starts with both meals on.
func ApplyPatch(entry *models.MessEntry, patch storage.EntryPatch) models.MessEntry {
	out := models.MessEntry{UserID: patch.UserID, Date: patch.Date, Breakfast: true, Dinner: true}
	if entry != nil {
		out = *entry
	}
	if patch.BreakfastOff {
		out.Breakfast = false
	}
	if patch.DinnerOff {
		out.Dinner = false
	}
	return out
}
