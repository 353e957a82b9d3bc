package auth

import "errors"

var (
	ErrInvalidToken      = errors.New("invalid or expired token")
	ErrMissingClaims     = errors.New("authentication claims not found")
	ErrCompanyNotFound   = errors.New("company_id not found in token")
	ErrEmployeeNotFound  = errors.New("employee_id not found in token")
	ErrInsufficientScope = errors.New("insufficient permissions")
)
