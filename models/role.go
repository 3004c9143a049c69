package models

import "strings"

// Role is the closed set of staff roles.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RolePromoter   Role = "PROMOTER"
	RoleEntryStaff Role = "ENTRY_STAFF"
)

// Capability names an action guarded by role.
type Capability string

const (
	CapCheckIn      Capability = "check_in"
	CapManageGuests Capability = "manage_guests"
	CapManageLinks  Capability = "manage_links"
	CapManageEvents Capability = "manage_events"
	CapManageUsers  Capability = "manage_users"
)

var capabilitiesByRole = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapCheckIn:      true,
		CapManageGuests: true,
		CapManageLinks:  true,
		CapManageEvents: true,
		CapManageUsers:  true,
	},
	RolePromoter: {
		CapManageGuests: true,
		CapManageLinks:  true,
		CapManageEvents: true,
	},
	RoleEntryStaff: {
		CapCheckIn: true,
	},
}

// Can reports whether the role grants the capability. Unknown roles grant nothing.
func (r Role) Can(c Capability) bool {
	return capabilitiesByRole[r][c]
}

func (r Role) Valid() bool {
	_, ok := capabilitiesByRole[r]
	return ok
}

// ParseRole accepts any casing ("admin", "Entry_Staff").
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

var allCapabilities = []Capability{CapCheckIn, CapManageGuests, CapManageLinks, CapManageEvents, CapManageUsers}

func Roles() []Role {
	return []Role{RoleAdmin, RolePromoter, RoleEntryStaff}
}

// Capabilities lists what the role grants, in a stable order.
func (r Role) Capabilities() []Capability {
	out := make([]Capability, 0, len(allCapabilities))
	for _, c := range allCapabilities {
		if r.Can(c) {
			out = append(out, c)
		}
	}
	return out
}
