package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// MealType selects which meals a mess-off request suspends.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealDinner    MealType = "dinner"
	MealBoth      MealType = "both"
)

// Valid reports whether m is a known meal selector.
func (m MealType) Valid() bool {
	switch m {
	case MealBreakfast, MealDinner, MealBoth:
		return true
	}
	return false
}

// BreakfastOff reports whether the selector suspends breakfast.
func (m MealType) BreakfastOff() bool {
	return m == MealBreakfast || m == MealBoth
}

// DinnerOff reports whether the selector suspends dinner.
func (m MealType) DinnerOff() bool {
	return m == MealDinner || m == MealBoth
}

// RequestStatus is the lifecycle state of a mess-off request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// Terminal reports whether the status can no longer change.
func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// OverlapPolicy decides whether a student may hold several live requests
// covering the same day.
type OverlapPolicy string

const (
	// OverlapAllow lets overlapping requests coexist; the last one approved wins.
	OverlapAllow OverlapPolicy = "allow"
	// OverlapReject refuses a request that intersects a pending or approved one.
	OverlapReject OverlapPolicy = "reject"
)

// ParseOverlapPolicy reads a policy name; empty means allow.
func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	switch p := OverlapPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return OverlapAllow, nil
	case OverlapAllow, OverlapReject:
		return p, nil
	}
	return "", fmt.Errorf("unknown overlap policy %q", s)
}

// MessEntry is one student's attendance record for one calendar date.
// Date is always midnight UTC of the calendar day it names.
type MessEntry struct {
	ID        int64     `json:"id,omitempty"`
	UserID    int64     `json:"userId"`
	Date      time.Time `json:"date"`
	Breakfast bool      `json:"breakfast"`
	Dinner    bool      `json:"dinner"`
}

// MessRequest is a student's request to suspend meals over a date range.
type MessRequest struct {
	ID         int64         `json:"id"`
	UserID     int64         `json:"-"`
	MealType   MealType      `json:"mealType"`
	StartDate  time.Time     `json:"startDate"`
	EndDate    time.Time     `json:"endDate"`
	Status     RequestStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	ResolvedAt *time.Time    `json:"resolvedAt,omitempty"`
	ResolvedBy *int64        `json:"resolvedBy,omitempty"`
}

// MessRequestView joins a request with the requesting student's details.
type MessRequestView struct {
	MessRequest
	UserCode string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// MessStatus is one row of the daily roster.
type MessStatus struct {
	UserCode    string `json:"userId"`
	StudentName string `json:"studentName"`
	Email       string `json:"email"`
	Breakfast   bool   `json:"breakfast"`
	Dinner      bool   `json:"dinner"`
}
