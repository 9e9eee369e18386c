package dto

type CreateMessRequest struct {
	MealType  string `json:"mealType" validate:"required,oneof=breakfast dinner both"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

type UpdateRequestStatus struct {
	Status string `json:"status" validate:"required"`
}

type MessOffRequest struct {
	MealType string `json:"mealType" validate:"omitempty,oneof=breakfast dinner both"`
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type SeedMonthRequest struct {
	Month string `json:"month" validate:"required,datetime=2006-01"`
}

type SeedResult struct {
	Students int   `json:"students"`
	Inserted int64 `json:"inserted"`
}
