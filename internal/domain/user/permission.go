package user

type Permission string

const (
	PermissionOvertimeViewOwn  Permission = "overtime.view_own"
	PermissionOvertimeCreate   Permission = "overtime.create"
	PermissionOvertimeExecute  Permission = "overtime.execute"
	PermissionOvertimeViewAll  Permission = "overtime.view_all"
	PermissionOvertimeApprove  Permission = "overtime.approve"
	PermissionOvertimeSettings Permission = "overtime.settings_view"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermissionOvertimeViewOwn,
		PermissionOvertimeCreate,
		PermissionOvertimeExecute,
		PermissionOvertimeViewAll,
		PermissionOvertimeApprove,
		PermissionOvertimeSettings,
	},
	RoleManager: {
		PermissionOvertimeViewOwn,
		PermissionOvertimeCreate,
		PermissionOvertimeExecute,
		PermissionOvertimeViewAll,
		PermissionOvertimeApprove,
		PermissionOvertimeSettings,
	},
	RoleEmployee: {
		PermissionOvertimeViewOwn,
		PermissionOvertimeCreate,
		PermissionOvertimeExecute,
		PermissionOvertimeSettings,
	},
	RolePending: {},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}
