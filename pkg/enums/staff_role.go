package enums

import "fmt"

// StaffRole scopes what a signed-in staff member may do.
type StaffRole string

const (
	StaffRoleOwner      StaffRole = "owner"
	StaffRoleTechnician StaffRole = "technician"
	StaffRoleCashier    StaffRole = "cashier"
)

var validStaffRoles = []StaffRole{
	StaffRoleOwner,
	StaffRoleTechnician,
	StaffRoleCashier,
}

func (r StaffRole) String() string {
	return string(r)
}

func (r StaffRole) IsValid() bool {
	for _, candidate := range validStaffRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseStaffRole(value string) (StaffRole, error) {
	for _, candidate := range validStaffRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid staff role %q", value)
}
