package signal

import (
	"context"
	"encoding/json"
	"testing"

	"telesignal/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func videoRoom(h *harness, t *testing.T) (sender *videoCallSession, senderOut *capture, peerOut *capture) {
	t.Helper()
	key := RoomKey{Kind: KindVideoCall, ID: "room-token-42"}

	senderClient, senderCapture := h.joinClient(key, 100, domain.RoleDoctor, "Dr. Bell")
	_, peerCapture := h.joinClient(key, 200, domain.RolePatient, "Sam Ortiz")

	session := &videoCallSession{server: h.server, client: senderClient}
	return session, senderCapture, peerCapture
}

func TestVideoCall_OfferRelayedToOthersOnly(t *testing.T) {
	h := newHarness(t)
	session, senderOut, peerOut := videoRoom(h, t)

	session.OnFrame(context.Background(), []byte(`{"type":"offer","offer":{"sdp":"v=0","type":"offer"}}`))

	require.Len(t, peerOut.all(), 1)
	event, ok := peerOut.last().(offerEvent)
	require.True(t, ok)
	assert.Equal(t, "offer", event.Type)
	assert.JSONEq(t, `{"sdp":"v=0","type":"offer"}`, string(event.Offer))

	assert.Empty(t, senderOut.all(), "sender must not receive its own offer")
}

func TestVideoCall_AnswerAndCandidatePassThrough(t *testing.T) {
	h := newHarness(t)
	session, _, peerOut := videoRoom(h, t)

	session.OnFrame(context.Background(), []byte(`{"type":"answer","answer":{"sdp":"v=0"}}`))
	session.OnFrame(context.Background(), []byte(`{"type":"ice-candidate","candidate":{"candidate":"candidate:1"}}`))

	frames := peerOut.all()
	require.Len(t, frames, 2)

	answer, ok := frames[0].(answerEvent)
	require.True(t, ok)
	assert.JSONEq(t, `{"sdp":"v=0"}`, string(answer.Answer))

	candidate, ok := frames[1].(iceCandidateEvent)
	require.True(t, ok)
	assert.Equal(t, "ice-candidate", candidate.Type)
	assert.JSONEq(t, `{"candidate":"candidate:1"}`, string(candidate.Candidate))
}

func TestVideoCall_JoinAnnouncesPeerThenIdentity(t *testing.T) {
	h := newHarness(t)
	session, senderOut, peerOut := videoRoom(h, t)

	session.OnFrame(context.Background(), []byte(`{"type":"join","user_type":"doctor","user_name":"Dr. Bell"}`))

	frames := peerOut.all()
	require.Len(t, frames, 2)

	joined, ok := frames[0].(peerJoinedEvent)
	require.True(t, ok)
	assert.Equal(t, "peer-joined", joined.Type)
	assert.Equal(t, session.client.Handle, joined.PeerID)
	assert.Equal(t, "A new peer has joined the room", joined.Message)

	identity, ok := frames[1].(identityEvent)
	require.True(t, ok)
	assert.Equal(t, "user-joined", identity.Type)
	assert.Equal(t, "doctor", identity.UserType)
	assert.Equal(t, "Dr. Bell", identity.UserName)

	assert.Empty(t, senderOut.all())
	assert.Equal(t, "doctor", session.client.DeclaredType)
	assert.Equal(t, "Dr. Bell", session.client.DeclaredName)
}

func TestVideoCall_LeaveRelaysUserLeft(t *testing.T) {
	h := newHarness(t)
	session, _, peerOut := videoRoom(h, t)

	session.OnFrame(context.Background(), []byte(`{"type":"leave","user_type":"patient","user_name":"Sam Ortiz"}`))

	event, ok := peerOut.last().(identityEvent)
	require.True(t, ok)
	assert.Equal(t, "user-left", event.Type)
	assert.Equal(t, "Sam Ortiz", event.UserName)
}

func TestVideoCall_CallEndedReachesSenderToo(t *testing.T) {
	h := newHarness(t)
	session, senderOut, peerOut := videoRoom(h, t)

	session.OnFrame(context.Background(), []byte(`{"type":"call-ended","user_type":"doctor","user_name":"Dr. Bell"}`))

	for _, out := range []*capture{senderOut, peerOut} {
		require.Len(t, out.all(), 1)
		event, ok := out.last().(identityEvent)
		require.True(t, ok)
		assert.Equal(t, "call-ended", event.Type)
		assert.Equal(t, "doctor", event.UserType)
	}
}

func TestVideoCall_InRoomChatStampsServerTimestamp(t *testing.T) {
	h := newHarness(t)
	session, _, peerOut := videoRoom(h, t)

	session.OnFrame(context.Background(), []byte(`{"type":"chat","message":"be right back","sender":"Dr. Bell"}`))

	event, ok := peerOut.last().(inCallChatEvent)
	require.True(t, ok)
	assert.Equal(t, "chat", event.Type)
	assert.Equal(t, "be right back", event.Message)
	assert.Equal(t, "Dr. Bell", event.Sender)
	assert.Equal(t, "2026-03-14T15:04:00Z", event.Timestamp)
}

func TestVideoCall_ScreenShareRelayed(t *testing.T) {
	h := newHarness(t)
	session, _, peerOut := videoRoom(h, t)

	session.OnFrame(context.Background(), []byte(`{"type":"screen-share","is_sharing":true}`))

	event, ok := peerOut.last().(screenShareEvent)
	require.True(t, ok)
	assert.True(t, event.IsSharing)
}

func TestVideoCall_UnknownTypeIsDropped(t *testing.T) {
	h := newHarness(t)
	session, senderOut, peerOut := videoRoom(h, t)

	session.OnFrame(context.Background(), []byte(`{"type":"mute-all"}`))

	assert.Empty(t, senderOut.all())
	assert.Empty(t, peerOut.all())
}

func TestVideoCall_MalformedPayloadAnswersSenderOnly(t *testing.T) {
	h := newHarness(t)
	session, senderOut, peerOut := videoRoom(h, t)

	session.OnFrame(context.Background(), []byte(`{not json`))

	require.Len(t, senderOut.all(), 1)
	frame, ok := senderOut.last().(errorFrame)
	require.True(t, ok)
	assert.Equal(t, "error", frame.Type)
	assert.Equal(t, "Invalid payload.", frame.Message)
	assert.Empty(t, peerOut.all())
}

func TestVideoCall_DisconnectAnnouncesPeerLeft(t *testing.T) {
	h := newHarness(t)
	session, _, peerOut := videoRoom(h, t)

	session.OnDisconnect()

	event, ok := peerOut.last().(peerLeftEvent)
	require.True(t, ok)
	assert.Equal(t, "peer-left", event.Type)
	assert.Equal(t, "A peer has left the room", event.Message)

	// Sender is out of the room after cleanup.
	assert.Len(t, h.server.registry.Members(session.client.Key), 1)
	assert.False(t, h.server.registry.Leave(session.client))
}

func TestVideoCall_RawPayloadSurvivesRelayUnchanged(t *testing.T) {
	h := newHarness(t)
	session, _, peerOut := videoRoom(h, t)

	// The relay must not normalize or re-order nested SDP content.
	original := `{"sdp":"v=0\r\no=- 46117 2 IN IP4 127.0.0.1","type":"offer","extra":[1,2,3]}`
	frame := map[string]interface{}{"type": "offer"}
	var offer json.RawMessage = []byte(original)
	frame["offer"] = offer
	data, err := json.Marshal(frame)
	require.NoError(t, err)

	session.OnFrame(context.Background(), data)

	event, ok := peerOut.last().(offerEvent)
	require.True(t, ok)
	assert.JSONEq(t, original, string(event.Offer))
}
