package employee

import "context"

type EmployeeRepository interface {
	GetByID(ctx context.Context, id string, companyID string) (Employee, error)
	// GetApproverUserIDs returns the user ids of the company's managers and owners.
	GetApproverUserIDs(ctx context.Context, companyID string) ([]string, error)
}
