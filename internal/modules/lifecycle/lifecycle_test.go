package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner     = Actor{UserID: "fac-1", Role: RoleFaculty}
	otherFac  = Actor{UserID: "fac-2", Role: RoleFaculty}
	cseHod    = Actor{UserID: "hod-1", Role: RoleHod, Department: "CSE"}
	eceHod    = Actor{UserID: "hod-2", Role: RoleHod, Department: "ECE"}
	admin     = Actor{UserID: "adm-1", Role: RoleAdmin}
	anonymous = Actor{}
)

func cseRecord(v Visibility) Record {
	return Record{FacultyID: "fac-1", Department: "CSE", Visibility: v}
}

func TestCreateTransitions(t *testing.T) {
	c, err := Decide(owner, Record{}, ActionCreateDraft, Input{})
	require.NoError(t, err)
	assert.Equal(t, VisibilityDraft, c.Visibility)

	c, err = Decide(owner, Record{}, ActionCreateSubmission, Input{})
	require.NoError(t, err)
	assert.Equal(t, VisibilityPending, c.Visibility)

	_, err = Decide(cseHod, Record{}, ActionCreateDraft, Input{})
	assert.ErrorIs(t, err, ErrDenied)
	_, err = Decide(anonymous, Record{}, ActionCreateSubmission, Input{})
	assert.ErrorIs(t, err, ErrDenied)
}

func TestDraftTransitions(t *testing.T) {
	rec := cseRecord(VisibilityDraft)

	c, err := Decide(owner, rec, ActionSubmit, Input{})
	require.NoError(t, err)
	assert.Equal(t, VisibilityPending, c.Visibility)

	c, err = Decide(owner, rec, ActionDelete, Input{})
	require.NoError(t, err)
	assert.True(t, c.Delete)

	c, err = Decide(owner, rec, ActionEdit, Input{})
	require.NoError(t, err)
	assert.Equal(t, VisibilityDraft, c.Visibility)

	// Ownership guard: a different faculty member is refused.
	for _, action := range []Action{ActionEdit, ActionSubmit, ActionDelete} {
		_, err := Decide(otherFac, rec, action, Input{})
		assert.ErrorIs(t, err, ErrDenied, "action %s", action)
	}
}

func TestApprove(t *testing.T) {
	rec := cseRecord(VisibilityPending)
	rec.HodFeedback = "needs more detail" // stale from an earlier rejection

	c, err := Decide(cseHod, rec, ActionApprove, Input{})
	require.NoError(t, err)
	assert.Equal(t, VisibilityPublic, c.Visibility)
	// Approval never clears feedback; the record keeps its review history.
	assert.Equal(t, "needs more detail", c.HodFeedback)
	assert.False(t, c.SetFeedback)
}

func TestRejectRequiresFeedback(t *testing.T) {
	rec := cseRecord(VisibilityPending)

	_, err := Decide(cseHod, rec, ActionReject, Input{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = Decide(cseHod, rec, ActionReject, Input{Feedback: "   "})
	assert.ErrorIs(t, err, ErrValidation)

	c, err := Decide(cseHod, rec, ActionReject, Input{Feedback: "needs more detail"})
	require.NoError(t, err)
	assert.Equal(t, VisibilityRejected, c.Visibility)
	assert.Equal(t, "needs more detail", c.HodFeedback)
	assert.True(t, c.SetFeedback)
}

func TestDepartmentScoping(t *testing.T) {
	rec := cseRecord(VisibilityPending)

	_, err := Decide(eceHod, rec, ActionApprove, Input{})
	assert.ErrorIs(t, err, ErrDenied)
	_, err = Decide(eceHod, rec, ActionReject, Input{Feedback: "nope"})
	assert.ErrorIs(t, err, ErrDenied)

	pub := cseRecord(VisibilityPublic)
	_, err = Decide(eceHod, pub, ActionSetHallOfFame, Input{})
	assert.ErrorIs(t, err, ErrDenied)
}

func TestRolesCannotCrossTransition(t *testing.T) {
	rec := cseRecord(VisibilityPending)

	// Faculty cannot review, even their own record.
	_, err := Decide(owner, rec, ActionApprove, Input{})
	assert.ErrorIs(t, err, ErrDenied)
	_, err = Decide(owner, rec, ActionReject, Input{Feedback: "x"})
	assert.ErrorIs(t, err, ErrDenied)

	// Admin has no write transitions anywhere.
	for _, v := range []Visibility{VisibilityDraft, VisibilityPending, VisibilityPublic, VisibilityRejected} {
		r := cseRecord(v)
		for _, action := range []Action{ActionEdit, ActionSubmit, ActionDelete, ActionApprove, ActionReject, ActionSetHallOfFame, ActionUnsetHallOfFame} {
			_, err := Decide(admin, r, action, Input{})
			assert.Error(t, err, "admin %s on %s", action, v)
		}
	}
}

func TestResubmitAfterRejection(t *testing.T) {
	rec := cseRecord(VisibilityRejected)
	rec.HodFeedback = "needs more detail"

	c, err := Decide(owner, rec, ActionSubmit, Input{})
	require.NoError(t, err)
	assert.Equal(t, VisibilityPending, c.Visibility)
	// Feedback is not cleared on resubmission.
	assert.Equal(t, "needs more detail", c.HodFeedback)
}

func TestHallOfFameToggle(t *testing.T) {
	rec := cseRecord(VisibilityPublic)

	c, err := Decide(cseHod, rec, ActionSetHallOfFame, Input{})
	require.NoError(t, err)
	assert.True(t, c.HallOfFame)
	assert.Equal(t, VisibilityPublic, c.Visibility)

	rec.HallOfFame = true
	c, err = Decide(cseHod, rec, ActionUnsetHallOfFame, Input{})
	require.NoError(t, err)
	assert.False(t, c.HallOfFame)
	assert.Equal(t, VisibilityPublic, c.Visibility)
}

func TestNoPathOutOfPublic(t *testing.T) {
	rec := cseRecord(VisibilityPublic)

	for _, actor := range []Actor{owner, cseHod, admin} {
		for _, action := range []Action{ActionSubmit, ActionEdit, ActionDelete, ActionApprove, ActionReject} {
			_, err := Decide(actor, rec, action, Input{})
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s by %s", action, actor.Role)
		}
	}
}

func TestVisibilityStaysClosed(t *testing.T) {
	// Every rule in the table yields one of the four enumerated states.
	actors := map[Role]Actor{RoleFaculty: owner, RoleHod: cseHod}
	for _, r := range table {
		actor := actors[r.role]
		rec := cseRecord(r.from)
		c, err := Decide(actor, rec, r.action, Input{Feedback: "because"})
		require.NoError(t, err, "action %s from %q", r.action, r.from)
		assert.True(t, c.Visibility.Valid(), "action %s produced %q", r.action, c.Visibility)
	}
}

func TestActions(t *testing.T) {
	pending := cseRecord(VisibilityPending)
	assert.ElementsMatch(t, []Action{ActionEdit}, Actions(owner, pending))
	assert.ElementsMatch(t, []Action{ActionApprove, ActionReject}, Actions(cseHod, pending))
	assert.Empty(t, Actions(eceHod, pending))
	assert.Empty(t, Actions(admin, pending))
	assert.Empty(t, Actions(anonymous, pending))

	public := cseRecord(VisibilityPublic)
	assert.ElementsMatch(t, []Action{ActionSetHallOfFame, ActionUnsetHallOfFame}, Actions(cseHod, public))
	assert.Empty(t, Actions(owner, public))
}
