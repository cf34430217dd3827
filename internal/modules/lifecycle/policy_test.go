package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeFor(t *testing.T) {
	assert.Equal(t, Scope{PublicOnly: true}, ScopeFor(anonymous))
	assert.Equal(t, Scope{OwnerID: "fac-1"}, ScopeFor(owner))
	assert.Equal(t, Scope{Department: "CSE"}, ScopeFor(cseHod))
	assert.Equal(t, Scope{PublicOrHallOfFame: true}, ScopeFor(admin))
}

func TestDraftVisibleToOwnerOnly(t *testing.T) {
	draft := cseRecord(VisibilityDraft)

	assert.True(t, CanView(owner, draft))
	assert.False(t, CanView(otherFac, draft))
	assert.False(t, CanView(admin, draft))
	assert.False(t, CanView(anonymous, draft))
	// The HoD of the record's department does see it through the
	// department scope.
	assert.True(t, CanView(cseHod, draft))
	assert.False(t, CanView(eceHod, draft))
}

func TestPublicVisibleToEveryone(t *testing.T) {
	pub := cseRecord(VisibilityPublic)
	for _, actor := range []Actor{anonymous, owner, otherFac, cseHod, eceHod, admin} {
		assert.True(t, CanView(actor, pub), "role %q", actor.Role)
	}
}

func TestAdminPrivacyBoundary(t *testing.T) {
	for _, v := range []Visibility{VisibilityDraft, VisibilityPending, VisibilityRejected} {
		assert.False(t, CanView(admin, cseRecord(v)), "state %s", v)
	}
}

func TestHodDepartmentScope(t *testing.T) {
	pending := cseRecord(VisibilityPending)
	assert.True(t, CanView(cseHod, pending))
	assert.False(t, CanView(eceHod, pending))

	rejected := cseRecord(VisibilityRejected)
	assert.True(t, CanView(cseHod, rejected))
	assert.False(t, CanView(eceHod, rejected))
}
