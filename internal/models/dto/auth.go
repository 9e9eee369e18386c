package dto

import "github.com/hongminglow/mess-be/internal/models"

type RegisterRequest struct {
	Username    string `json:"username" validate:"required,max=64"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phoneNumber" validate:"required,pkphone"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token   string         `json:"token"`
	Account models.Account `json:"user"`
}

type RegisterResponse struct {
	Account      models.Account `json:"user"`
	LedgerSeeded bool           `json:"ledgerSeeded"`
	EntryCount   int            `json:"entryCount"`
}
