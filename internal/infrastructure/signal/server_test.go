package signal

import (
	"context"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"telesignal/internal/core/domain"
	"telesignal/internal/core/ports"
	"telesignal/internal/core/services"
	apperrors "telesignal/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T) (*httptest.Server, *harness, *services.AuthService) {
	t.Helper()

	h := newHarness(t)
	// Live connections need a real clock for deadlines.
	h.server.now = time.Now

	auth := services.NewAuthService("test-secret", time.Hour)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws/video-call/:roomToken", h.server.HandleVideoCall)
	router.GET("/ws/call-invite/:appointmentID", h.server.HandleCallInvite)
	router.GET("/ws/chat/:appointmentID", h.server.HandleChat)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts, h, auth
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func dial(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, path), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func token(t *testing.T, auth *services.AuthService, userID int64, name string) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, name)
	require.NoError(t, err)
	return tok
}

// expectClose reads until the server closes the connection and returns
// the close code.
func expectClose(t *testing.T, conn *websocket.Conn) int {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	return closeErr.Code
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var payload map[string]interface{}
	require.NoError(t, conn.ReadJSON(&payload))
	return payload
}

func TestServer_RejectsMissingToken(t *testing.T) {
	ts, _, _ := startTestServer(t)

	conn := dial(t, ts, "/ws/chat/7")
	assert.Equal(t, apperrors.CloseUnauthenticated, expectClose(t, conn))
}

func TestServer_RejectsInvalidToken(t *testing.T) {
	ts, _, _ := startTestServer(t)

	conn := dial(t, ts, "/ws/chat/7?token=not-a-jwt")
	assert.Equal(t, apperrors.CloseUnauthenticated, expectClose(t, conn))
}

func TestServer_RejectsStranger(t *testing.T) {
	ts, _, auth := startTestServer(t)

	tok := token(t, auth, 9999, "Stranger")
	conn := dial(t, ts, "/ws/chat/7?token="+tok)
	assert.Equal(t, apperrors.CloseForbidden, expectClose(t, conn))
}

func TestServer_RejectsUnknownAppointment(t *testing.T) {
	ts, _, auth := startTestServer(t)

	tok := token(t, auth, 4, "Dr. Khan")
	conn := dial(t, ts, "/ws/call-invite/31337?token="+tok)
	assert.Equal(t, apperrors.CloseNotFound, expectClose(t, conn))
}

func TestServer_RejectsNonNumericAppointment(t *testing.T) {
	ts, _, auth := startTestServer(t)

	tok := token(t, auth, 4, "Dr. Khan")
	conn := dial(t, ts, "/ws/chat/abc?token="+tok)
	assert.Equal(t, apperrors.CloseNotFound, expectClose(t, conn))
}

func TestServer_RejectsUnknownRoomToken(t *testing.T) {
	ts, _, auth := startTestServer(t)

	tok := token(t, auth, 100, "Dr. Bell")
	conn := dial(t, ts, "/ws/video-call/no-such-room?token="+tok)
	assert.Equal(t, apperrors.CloseNotFound, expectClose(t, conn))
}

func TestServer_RejectsStrangerOnRoomToken(t *testing.T) {
	ts, _, auth := startTestServer(t)

	tok := token(t, auth, 9999, "Stranger")
	conn := dial(t, ts, "/ws/video-call/room-token-42?token="+tok)
	assert.Equal(t, apperrors.CloseForbidden, expectClose(t, conn))
}

func TestServer_ChatOverLiveSockets(t *testing.T) {
	ts, _, auth := startTestServer(t)

	doctorConn := dial(t, ts, "/ws/chat/7?token="+token(t, auth, 4, "Dr. Khan"))
	presence := readJSON(t, doctorConn)
	assert.Equal(t, "presence", presence["type"])
	assert.Equal(t, []interface{}{float64(4)}, presence["online_user_ids"])

	patientConn := dial(t, ts, "/ws/chat/7?token="+token(t, auth, 10, "Riley Chen"))

	presence = readJSON(t, doctorConn)
	assert.Equal(t, []interface{}{float64(4), float64(10)}, presence["online_user_ids"])
	presence = readJSON(t, patientConn)
	assert.Equal(t, []interface{}{float64(4), float64(10)}, presence["online_user_ids"])

	require.NoError(t, patientConn.WriteJSON(map[string]interface{}{
		"type":    "message",
		"message": "hello doctor",
	}))

	received := readJSON(t, doctorConn)
	assert.Equal(t, "message", received["type"])
	assert.Equal(t, "hello doctor", received["message"])
	assert.Equal(t, float64(10), received["sender_id"])
	assert.Equal(t, "Riley Chen", received["sender_name"])
	assert.Equal(t, false, received["is_self"])

	echo := readJSON(t, patientConn)
	assert.Equal(t, true, echo["is_self"])

	// Abrupt patient disconnect triggers a presence update for the doctor.
	patientConn.Close()
	presence = readJSON(t, doctorConn)
	assert.Equal(t, "presence", presence["type"])
	assert.Equal(t, []interface{}{float64(4)}, presence["online_user_ids"])
}

func TestServer_VideoCallRelayOverLiveSockets(t *testing.T) {
	ts, _, auth := startTestServer(t)

	doctorConn := dial(t, ts, "/ws/video-call/room-token-42?token="+token(t, auth, 100, "Dr. Bell"))
	patientConn := dial(t, ts, "/ws/video-call/room-token-42?token="+token(t, auth, 200, "Sam Ortiz"))

	// Patient announces; doctor sees the join choreography.
	require.NoError(t, patientConn.WriteJSON(map[string]interface{}{
		"type":      "join",
		"user_type": "patient",
		"user_name": "Sam Ortiz",
	}))

	joined := readJSON(t, doctorConn)
	assert.Equal(t, "peer-joined", joined["type"])
	identity := readJSON(t, doctorConn)
	assert.Equal(t, "user-joined", identity["type"])
	assert.Equal(t, "patient", identity["user_type"])

	// Doctor offers; only the patient hears it.
	require.NoError(t, doctorConn.WriteJSON(map[string]interface{}{
		"type":  "offer",
		"offer": map[string]interface{}{"sdp": "v=0", "type": "offer"},
	}))

	offer := readJSON(t, patientConn)
	assert.Equal(t, "offer", offer["type"])
	assert.Equal(t, map[string]interface{}{"sdp": "v=0", "type": "offer"}, offer["offer"])

	// Abrupt doctor disconnect announces peer-left.
	doctorConn.Close()
	left := readJSON(t, patientConn)
	assert.Equal(t, "peer-left", left["type"])
}

// slowChatService delays persistence so inbound frames pile up behind
// the session loop.
type slowChatService struct {
	inner ports.ChatService
}

func (s slowChatService) SaveMessage(ctx context.Context, appointmentID, senderID int64, senderName, text string, attachment *ports.Attachment) (domain.ChatMessagePayload, error) {
	time.Sleep(50 * time.Millisecond)
	return s.inner.SaveMessage(ctx, appointmentID, senderID, senderName, text, attachment)
}

func (s slowChatService) History(ctx context.Context, appointmentID int64) ([]domain.ChatMessagePayload, error) {
	return s.inner.History(ctx, appointmentID)
}

func TestServer_ReaderStopsWithSessionLoop(t *testing.T) {
	ts, h, auth := startTestServer(t)

	// Persistence stalls the loop while frames queue up, and the first
	// ping tick fails its write, forcing the loop to exit with the
	// message channel still full.
	h.server.chat = slowChatService{inner: h.server.chat}
	h.server.pingInterval = 5 * time.Millisecond
	h.server.writeTimeout = -time.Second

	before := runtime.NumGoroutine()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/chat/7?token="+token(t, auth, 10, "Riley Chen")), nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 40; i++ {
		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"type":    "message",
			"message": "backlog",
		}))
	}

	// Both the session loop and its reader must wind down; a reader
	// parked on the full channel would keep the count elevated.
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+2
	}, 3*time.Second, 25*time.Millisecond)
}

func TestServer_CallInviteOverLiveSockets(t *testing.T) {
	ts, _, auth := startTestServer(t)

	doctorConn := dial(t, ts, "/ws/call-invite/42?token="+token(t, auth, 100, "Dr. Bell"))
	patientConn := dial(t, ts, "/ws/call-invite/42?token="+token(t, auth, 200, "Sam Ortiz"))

	require.NoError(t, doctorConn.WriteJSON(map[string]interface{}{
		"type":    "call_invite",
		"room_id": "room-token-42",
	}))

	event := readJSON(t, patientConn)
	assert.Equal(t, "call_invite", event["type"])
	assert.Equal(t, float64(42), event["appointment_id"])
	assert.Equal(t, "room-token-42", event["room_id"])
	assert.Equal(t, float64(100), event["sender_id"])
	assert.Equal(t, "doctor", event["sender_role"])
	assert.Equal(t, "Dr. Bell", event["sender_name"])
	assert.NotEmpty(t, event["timestamp"])
}
