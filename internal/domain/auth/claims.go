package auth

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
)

// Claims is the caller identity carried by an access token.
type Claims struct {
	UserID     string
	EmployeeID string
	CompanyID  string
	Role       user.Role
}

// FromContext reads the verified token claims that jwtauth.Verifier stored in ctx.
// CompanyID is always required; EmployeeID is required only by callers that act as an employee.
func FromContext(ctx context.Context) (Claims, error) {
	_, raw, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMissingClaims, err)
	}
	if raw == nil {
		return Claims{}, ErrMissingClaims
	}

	c := Claims{
		UserID:     stringClaim(raw, "user_id"),
		EmployeeID: stringClaim(raw, "employee_id"),
		CompanyID:  stringClaim(raw, "company_id"),
		Role:       user.Role(stringClaim(raw, "role")),
	}
	if c.CompanyID == "" {
		return Claims{}, ErrCompanyNotFound
	}
	return c, nil
}

// RequireEmployee returns ErrEmployeeNotFound when the token has no employee record attached.
func (c Claims) RequireEmployee() error {
	if c.EmployeeID == "" {
		return ErrEmployeeNotFound
	}
	return nil
}

func stringClaim(claims map[string]interface{}, key string) string {
	v, ok := claims[key].(string)
	if !ok {
		return ""
	}
	return v
}
