package dto

import "github.com/go-playground/validator/v10"

type LoginRequest struct {
	Login    string `json:"login" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=72"`
}

var Validate = validator.New()
