package lifecycle

// Scope describes which records an actor class may read. The project
// service translates it into a store query; CanView applies the same rules
// to a single already-fetched record.
//
// Exactly one of the boolean branches is active per role:
//   - anonymous: public records only
//   - faculty:   own records in every state (plus public via the explorer)
//   - hod:       every record of their own department, any state
//   - admin:     public or hall-of-fame records across departments; drafts,
//     pending, and rejected records of other people are a deliberate
//     privacy boundary
type Scope struct {
	PublicOnly         bool
	OwnerID            string
	Department         string
	PublicOrHallOfFame bool
}

// ScopeFor computes the read scope for an actor.
func ScopeFor(actor Actor) Scope {
	switch actor.Role {
	case RoleFaculty:
		return Scope{OwnerID: actor.UserID}
	case RoleHod:
		return Scope{Department: actor.Department}
	case RoleAdmin:
		return Scope{PublicOrHallOfFame: true}
	default:
		return Scope{PublicOnly: true}
	}
}

// CanView reports whether the actor may read the record at all.
func CanView(actor Actor, rec Record) bool {
	if rec.Visibility == VisibilityPublic {
		return true
	}
	switch actor.Role {
	case RoleFaculty:
		return actor.UserID == rec.FacultyID
	case RoleHod:
		return actor.Department == rec.Department
	case RoleAdmin:
		// Non-public records are only reachable for admins through the
		// hall-of-fame flag, which in practice implies the record was
		// public when flagged.
		return rec.HallOfFame
	default:
		return false
	}
}
