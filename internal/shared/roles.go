package shared

// Department identifies one of the six print-shop departments. Status
// ownership and task assignment are always keyed by an explicit Department
// value, never by string-built field names.
type Department string

const (
	DepartmentSales      Department = "sales"
	DepartmentDesign     Department = "design"
	DepartmentPrinting   Department = "printing"
	DepartmentAccounting Department = "accounting"
	DepartmentDispatch   Department = "dispatch"
	DepartmentManagement Department = "management"
)

// Departments lists every department in display order.
func Departments() []Department {
	return []Department{
		DepartmentSales,
		DepartmentDesign,
		DepartmentPrinting,
		DepartmentAccounting,
		DepartmentDispatch,
		DepartmentManagement,
	}
}

// Valid reports whether d is a known department.
func (d Department) Valid() bool {
	switch d {
	case DepartmentSales, DepartmentDesign, DepartmentPrinting,
		DepartmentAccounting, DepartmentDispatch, DepartmentManagement:
		return true
	}
	return false
}

// Role describes what a user may see and do across departments.
type Role string

const (
	// RoleCEO sees and may advance every order.
	RoleCEO Role = "ceo"
	// RoleHead is a department head; sees all orders, acts within their department.
	RoleHead Role = "head"
	// RoleStaff acts and sees within department scope only.
	RoleStaff Role = "staff"
)

// Priority grades orders, notifications and purchase requests.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ActionRequired reports whether a priority demands action from the recipient.
func (p Priority) ActionRequired() bool {
	return p == PriorityHigh || p == PriorityUrgent
}
