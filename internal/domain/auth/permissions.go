package auth

const (
	PermPayrollRead  = "payroll.read"
	PermPayrollWrite = "payroll.write"
	PermReportsRead  = "reports.read"
	PermAuditRead    = "audit.read"
)

const (
	RoleAdmin  = "admin"
	RoleClerk  = "clerk"
	RoleViewer = "viewer"
)

var DefaultPermissions = []string{
	PermPayrollRead,
	PermPayrollWrite,
	PermReportsRead,
	PermAuditRead,
}

var RolePermissions = map[string][]string{
	RoleAdmin: {
		PermPayrollRead,
		PermPayrollWrite,
		PermReportsRead,
		PermAuditRead,
	},
	RoleClerk: {
		PermPayrollRead,
		PermPayrollWrite,
		PermReportsRead,
	},
	RoleViewer: {
		PermPayrollRead,
		PermReportsRead,
	},
}

// HasPermission reports whether role grants permission. Unknown roles grant nothing.
func HasPermission(role, permission string) bool {
	for _, perm := range RolePermissions[role] {
		if perm == permission {
			return true
		}
	}
	return false
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}
