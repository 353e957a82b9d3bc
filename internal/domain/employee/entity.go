package employee

import (
	"github.com/shopspring/decimal"
)

// Employee is the read-only projection of the employee record used for overtime.
type Employee struct {
	ID               string
	UserID           *string
	CompanyID        string
	WorkScheduleID   *string
	EmployeeCode     string
	FullName         string
	EmploymentStatus EmploymentStatus
	BaseSalary       *decimal.Decimal
}

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)

func (e Employee) IsActive() bool {
	return e.EmploymentStatus == EmploymentStatusActive
}

// HasPayableSalary reports whether an overtime amount can be computed for the employee.
func (e Employee) HasPayableSalary() bool {
	return e.BaseSalary != nil && e.BaseSalary.IsPositive()
}
