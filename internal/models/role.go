package models

// Role is a capability tier. The numeric values are what the users
// collection persists, so they must never be renumbered.
type Role int

const (
	RoleUser  Role = 1121
	RoleAdmin Role = 3821
)

func (r Role) Known() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	}
	return "unknown"
}

// RoleSet is the set of roles granted to a user.
type RoleSet []Role

// DefaultRoles is assigned on registration.
func DefaultRoles() RoleSet { return RoleSet{RoleUser} }

// Has reports whether r was granted. Codes outside the enumeration never match.
func (s RoleSet) Has(r Role) bool {
	if !r.Known() {
		return false
	}
	for _, granted := range s {
		if granted == r {
			return true
		}
	}
	return false
}

// Normalize drops unknown codes and duplicates, keeping order.
func (s RoleSet) Normalize() RoleSet {
	out := make(RoleSet, 0, len(s))
	seen := make(map[Role]struct{}, len(s))
	for _, r := range s {
		if !r.Known() {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
