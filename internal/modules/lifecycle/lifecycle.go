package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

// Visibility is the lifecycle state of a project record.
type Visibility string

const (
	VisibilityDraft    Visibility = "draft"
	VisibilityPending  Visibility = "pending"
	VisibilityPublic   Visibility = "public"
	VisibilityRejected Visibility = "rejected"

	// visibilityNone marks the create rows of the table: the record does
	// not exist yet when the transition is requested.
	visibilityNone Visibility = ""
)

// Valid reports whether v is one of the four enumerated states.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityDraft, VisibilityPending, VisibilityPublic, VisibilityRejected:
		return true
	}
	return false
}

// Role is an actor class. Anonymous visitors are RoleAnonymous.
type Role string

const (
	RoleAnonymous Role = ""
	RoleFaculty   Role = "faculty"
	RoleHod       Role = "hod"
	RoleAdmin     Role = "admin"
)

// Action is one of the transitions defined on a record.
type Action string

const (
	ActionCreateDraft      Action = "create_draft"
	ActionCreateSubmission Action = "create_submission"
	ActionEdit             Action = "edit"
	ActionSubmit           Action = "submit"
	ActionDelete           Action = "delete"
	ActionApprove          Action = "approve"
	ActionReject           Action = "reject"
	ActionSetHallOfFame    Action = "set_hall_of_fame"
	ActionUnsetHallOfFame  Action = "unset_hall_of_fame"
)

// Actor is the request-scoped claims context, built once from the session
// and passed explicitly. Department is only set for HoD actors.
type Actor struct {
	UserID     string
	Role       Role
	Department string
}

// Record is the minimal view of a project record the engine needs.
type Record struct {
	FacultyID   string
	Department  string
	Visibility  Visibility
	HallOfFame  bool
	HodFeedback string
}

// Input carries per-action parameters.
type Input struct {
	Feedback string
}

// Change is the computed outcome of a permitted transition. The caller
// applies it as a single atomic update.
type Change struct {
	Visibility  Visibility
	HallOfFame  bool
	HodFeedback string
	SetFeedback bool
	Delete      bool
}

var (
	// ErrDenied means the actor lacks the role, ownership, or department
	// required for the requested transition.
	ErrDenied = errors.New("not allowed")
	// ErrValidation means a required field is missing for this transition.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidTransition means the action is not defined for the record's
	// current state.
	ErrInvalidTransition = errors.New("invalid transition")
)

// rule is one row of the transition table.
type rule struct {
	from      Visibility
	action    Action
	role      Role
	ownerOnly bool // actor.UserID must equal record.FacultyID
	sameDept  bool // actor.Department must equal record.Department
	apply     func(rec Record, in Input) (Change, error)
}

func keep(rec Record) Change {
	return Change{
		Visibility:  rec.Visibility,
		HallOfFame:  rec.HallOfFame,
		HodFeedback: rec.HodFeedback,
	}
}

func moveTo(v Visibility) func(Record, Input) (Change, error) {
	return func(rec Record, _ Input) (Change, error) {
		c := keep(rec)
		c.Visibility = v
		return c, nil
	}
}

// The transition table. There is deliberately no path out of public other
// than the hall-of-fame flag flips, and feedback survives resubmission and
// re-approval unchanged.
var table = []rule{
	{from: visibilityNone, action: ActionCreateDraft, role: RoleFaculty, apply: moveTo(VisibilityDraft)},
	{from: visibilityNone, action: ActionCreateSubmission, role: RoleFaculty, apply: moveTo(VisibilityPending)},

	{from: VisibilityDraft, action: ActionEdit, role: RoleFaculty, ownerOnly: true, apply: moveTo(VisibilityDraft)},
	{from: VisibilityDraft, action: ActionSubmit, role: RoleFaculty, ownerOnly: true, apply: moveTo(VisibilityPending)},
	{from: VisibilityDraft, action: ActionDelete, role: RoleFaculty, ownerOnly: true,
		apply: func(rec Record, _ Input) (Change, error) {
			c := keep(rec)
			c.Delete = true
			return c, nil
		}},

	{from: VisibilityPending, action: ActionEdit, role: RoleFaculty, ownerOnly: true, apply: moveTo(VisibilityPending)},
	{from: VisibilityPending, action: ActionApprove, role: RoleHod, sameDept: true, apply: moveTo(VisibilityPublic)},
	{from: VisibilityPending, action: ActionReject, role: RoleHod, sameDept: true,
		apply: func(rec Record, in Input) (Change, error) {
			feedback := strings.TrimSpace(in.Feedback)
			if feedback == "" {
				return Change{}, fmt.Errorf("%w: feedback is required to reject a project", ErrValidation)
			}
			c := keep(rec)
			c.Visibility = VisibilityRejected
			c.HodFeedback = feedback
			c.SetFeedback = true
			return c, nil
		}},

	{from: VisibilityRejected, action: ActionEdit, role: RoleFaculty, ownerOnly: true, apply: moveTo(VisibilityRejected)},
	{from: VisibilityRejected, action: ActionSubmit, role: RoleFaculty, ownerOnly: true, apply: moveTo(VisibilityPending)},

	{from: VisibilityPublic, action: ActionSetHallOfFame, role: RoleHod, sameDept: true,
		apply: func(rec Record, _ Input) (Change, error) {
			c := keep(rec)
			c.HallOfFame = true
			return c, nil
		}},
	{from: VisibilityPublic, action: ActionUnsetHallOfFame, role: RoleHod, sameDept: true,
		apply: func(rec Record, _ Input) (Change, error) {
			c := keep(rec)
			c.HallOfFame = false
			return c, nil
		}},
}

// Decide checks the transition table and guards for (actor, record, action)
// and computes the resulting change. On any error the record must be left
// untouched by the caller.
func Decide(actor Actor, rec Record, action Action, in Input) (Change, error) {
	var match *rule
	for i := range table {
		if table[i].from == rec.Visibility && table[i].action == action {
			match = &table[i]
			break
		}
	}
	if match == nil {
		if rec.Visibility != visibilityNone && !rec.Visibility.Valid() {
			return Change{}, fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, rec.Visibility)
		}
		return Change{}, fmt.Errorf("%w: %s is not defined for a %s record", ErrInvalidTransition, action, stateName(rec.Visibility))
	}

	if actor.Role != match.role {
		return Change{}, fmt.Errorf("%w: %s requires the %s role", ErrDenied, action, match.role)
	}
	if match.ownerOnly && actor.UserID != rec.FacultyID {
		return Change{}, fmt.Errorf("%w: only the owning faculty may %s this record", ErrDenied, action)
	}
	if match.sameDept && actor.Department != rec.Department {
		return Change{}, fmt.Errorf("%w: record belongs to the %s department", ErrDenied, rec.Department)
	}

	return match.apply(rec, in)
}

// Actions returns the transitions the actor may legally attempt on the
// record in its current state. Dashboards use this to decide which buttons
// to render.
func Actions(actor Actor, rec Record) []Action {
	var out []Action
	for i := range table {
		r := &table[i]
		if r.from != rec.Visibility || actor.Role != r.role {
			continue
		}
		if r.ownerOnly && actor.UserID != rec.FacultyID {
			continue
		}
		if r.sameDept && actor.Department != rec.Department {
			continue
		}
		out = append(out, r.action)
	}
	return out
}

func stateName(v Visibility) string {
	if v == visibilityNone {
		return "new"
	}
	return string(v)
}
