package role

import "strings"

// Role is a position in the approval hierarchy.
type Role string

const (
	Employee Role = "Employee"
	Manager  Role = "Manager"
	Finance  Role = "Finance"
	Director Role = "Director"
	CFO      Role = "CFO"
	Admin    Role = "Admin"
)

var levels = map[Role]int{
	Employee: 1,
	Manager:  2,
	Finance:  3,
	Director: 4,
	CFO:      5,
	Admin:    6,
}

// All lists the roles from lowest to highest level.
func All() []Role {
	return []Role{Employee, Manager, Finance, Director, CFO, Admin}
}

// Level returns the hierarchy level, or 0 for an unknown role.
func (r Role) Level() int {
	return levels[r]
}

func (r Role) Valid() bool {
	_, ok := levels[r]
	return ok
}

// CanApprove reports whether the role may hold or claim an approval slot.
func (r Role) CanApprove() bool {
	return r.Level() >= Manager.Level()
}

// Outranks reports whether r sits strictly above other. Unknown roles never outrank.
func (r Role) Outranks(other Role) bool {
	return r.Valid() && other.Valid() && r.Level() > other.Level()
}

func (r Role) String() string {
	return string(r)
}

// Parse accepts a role name case-insensitively.
func Parse(s string) (Role, bool) {
	s = strings.TrimSpace(s)
	for _, r := range All() {
		if strings.EqualFold(string(r), s) {
			return r, true
		}
	}
	return "", false
}

// Approvers returns the roles allowed to act on approvals.
func Approvers() []Role {
	return []Role{Manager, Finance, Director, CFO, Admin}
}
