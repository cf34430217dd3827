package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterUnregisterCounts(t *testing.T) {
	h := NewHub(nil, nil, nil)

	h.registerClient(clientMeta{sid: "a", room: RoomPublic})
	h.registerClient(clientMeta{sid: "b", room: RoomPublic})
	h.registerClient(clientMeta{sid: "c", room: RoomReview})

	// drain the VISITOR_ONLINE broadcasts queued by public joins
	for len(h.broadcast) > 0 {
		<-h.broadcast
	}

	assert.Equal(t, 2, h.ClientCount(RoomPublic))
	assert.Equal(t, 1, h.ClientCount(RoomReview))
	assert.Equal(t, 3, h.ClientCount(""))

	// re-register with the same room is a no-op
	h.registerClient(clientMeta{sid: "a", room: RoomPublic})
	assert.Equal(t, 2, h.ClientCount(RoomPublic))

	// moving rooms adjusts both counters
	h.registerClient(clientMeta{sid: "a", room: RoomReview})
	assert.Equal(t, 1, h.ClientCount(RoomPublic))
	assert.Equal(t, 2, h.ClientCount(RoomReview))

	h.unregisterClient(clientMeta{sid: "b", room: RoomPublic})
	h.unregisterClient(clientMeta{sid: "b", room: RoomPublic})
	assert.Equal(t, 0, h.ClientCount(RoomPublic))
	assert.Equal(t, 2, h.ClientCount(""))
}

func TestAcceptRemoteSkipsOwnMessages(t *testing.T) {
	h := NewHub(nil, nil, nil)

	// a message echoed back from this instance's own publish
	assert.False(t, h.acceptRemote(Message{Event: "X", Origin: h.instanceID}))

	// messages from peers (or legacy ones without an origin) go through
	assert.True(t, h.acceptRemote(Message{Event: "X", Origin: "other-instance"}))
	assert.True(t, h.acceptRemote(Message{Event: "X"}))
}

func TestNormalizeToken(t *testing.T) {
	assert.Equal(t, "abc", normalizeToken("  abc "))
	assert.Equal(t, "abc", normalizeToken("Bearer abc"))
	assert.Equal(t, "abc", normalizeToken("bearer abc"))
	assert.Equal(t, "", normalizeToken("   "))
}

func TestFirstValueFromMultiMap(t *testing.T) {
	values := map[string][]string{
		"Authorization": {" Bearer tok "},
		"token":         {""},
	}
	assert.Equal(t, "Bearer tok", firstValueFromMultiMap(values, "authorization"))
	assert.Equal(t, "", firstValueFromMultiMap(values, "token"))
	assert.Equal(t, "", firstValueFromMultiMap(nil, "token"))
}
