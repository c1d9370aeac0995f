package signal

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"telesignal/internal/core/domain"
	"telesignal/internal/core/ports"
	"telesignal/internal/core/services"
	"telesignal/internal/infrastructure/monitoring"
	"telesignal/pkg/config"
	apperrors "telesignal/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Server owns the three websocket endpoints and the shared room registry.
// One goroutine runs per connection; all shared state lives behind the
// registry's lock.
type Server struct {
	registry *Registry
	guard    ports.AccessGuard
	auth     *services.AuthService
	chat     ports.ChatService
	metrics  *monitoring.Collector
	logger   *zap.SugaredLogger

	pingInterval    time.Duration
	pongTimeout     time.Duration
	writeTimeout    time.Duration
	messagesPerSec  float64
	messageBurst    int
	maxMessageBytes int64

	now func() time.Time
}

func NewServer(
	registry *Registry,
	guard ports.AccessGuard,
	auth *services.AuthService,
	chat ports.ChatService,
	metrics *monitoring.Collector,
	cfg *config.Config,
	logger *zap.SugaredLogger,
) *Server {
	return &Server{
		registry:        registry,
		guard:           guard,
		auth:            auth,
		chat:            chat,
		metrics:         metrics,
		logger:          logger,
		pingInterval:    cfg.Signal.PingInterval,
		pongTimeout:     cfg.Signal.PongTimeout,
		writeTimeout:    cfg.Signal.WriteTimeout,
		messagesPerSec:  cfg.Signal.MessagesPerSecond,
		messageBurst:    cfg.Signal.MessageBurst,
		maxMessageBytes: cfg.Signal.MaxMessageBytes,
		now:             time.Now,
	}
}

// AnnounceCallEvent pushes a lifecycle event to every member of the
// appointment's call-invite room. Used by the HTTP boundary when the
// doctor starts or either party ends a call.
func (s *Server) AnnounceCallEvent(appointmentID int64, event domain.CallEvent) {
	key := RoomKey{Kind: KindCallInvite, ID: strconv.FormatInt(appointmentID, 10)}
	s.registry.Broadcast(key, "", event)
}

var _ ports.CallAnnouncer = (*Server)(nil)

// HandleVideoCall serves /ws/video-call/:roomToken.
func (s *Server) HandleVideoCall(c *gin.Context) {
	conn, claims, ok := s.accept(c)
	if !ok {
		return
	}

	roomToken := c.Param("roomToken")
	_, role, err := s.guard.AuthorizeRoomToken(c.Request.Context(), roomToken, claims.UserID)
	if err != nil {
		s.refuseWithError(conn, KindVideoCall, err)
		return
	}

	key := RoomKey{Kind: KindVideoCall, ID: roomToken}
	client := s.newClient(conn, key, claims, role)
	session := &videoCallSession{server: s, client: client}

	s.registry.Join(client)
	s.logConnected(client)
	s.runSession(conn, client, session)
}

// HandleCallInvite serves /ws/call-invite/:appointmentID.
func (s *Server) HandleCallInvite(c *gin.Context) {
	conn, claims, ok := s.accept(c)
	if !ok {
		return
	}

	appointmentID, ok := s.appointmentParam(conn, c, KindCallInvite)
	if !ok {
		return
	}

	appointment, role, err := s.guard.AuthorizeAppointment(c.Request.Context(), appointmentID, claims.UserID)
	if err != nil {
		s.refuseWithError(conn, KindCallInvite, err)
		return
	}

	key := RoomKey{Kind: KindCallInvite, ID: c.Param("appointmentID")}
	client := s.newClient(conn, key, claims, role)
	session := &callInviteSession{server: s, client: client, appointment: appointment}

	s.registry.Join(client)
	s.logConnected(client)
	s.runSession(conn, client, session)
}

// HandleChat serves /ws/chat/:appointmentID.
func (s *Server) HandleChat(c *gin.Context) {
	conn, claims, ok := s.accept(c)
	if !ok {
		return
	}

	appointmentID, ok := s.appointmentParam(conn, c, KindChat)
	if !ok {
		return
	}

	appointment, role, err := s.guard.AuthorizeAppointment(c.Request.Context(), appointmentID, claims.UserID)
	if err != nil {
		s.refuseWithError(conn, KindChat, err)
		return
	}

	key := RoomKey{Kind: KindChat, ID: c.Param("appointmentID")}
	client := s.newClient(conn, key, claims, role)
	session := &chatSession{server: s, client: client, appointment: appointment}

	// Registration and presence mutation happen in one critical section;
	// the resulting list is broadcast from OnConnect.
	session.initialPresence = s.registry.JoinPresence(client)
	s.logConnected(client)
	s.runSession(conn, client, session)
}

type roomSession interface {
	OnConnect()
	OnFrame(ctx context.Context, data []byte)
	OnDisconnect()
}

// runSession drives one connection: a reader goroutine feeds frames into
// the select loop, a ticker keeps the peer alive, and cleanup runs
// exactly once no matter how the connection dies.
func (s *Server) runSession(conn *websocket.Conn, client *Client, session roomSession) {
	defer conn.Close()

	s.metrics.ConnectionOpened(string(client.Key.Kind))
	s.syncRoomMetrics()

	cleanup := sync.OnceFunc(func() {
		session.OnDisconnect()
		s.metrics.ConnectionClosed(string(client.Key.Kind))
		s.syncRoomMetrics()
		s.logger.Infow("peer disconnected",
			"room_kind", client.Key.Kind,
			"room_id", client.Key.ID,
			"user_id", client.UserID,
		)
	})
	defer cleanup()

	conn.SetReadLimit(s.maxMessageBytes)
	conn.SetReadDeadline(s.now().Add(s.pongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(s.now().Add(s.pongTimeout))
		return nil
	})

	session.OnConnect()

	limiter := rate.NewLimiter(rate.Limit(s.messagesPerSec), s.messageBurst)
	messageChan := make(chan []byte, 16)
	errorChan := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				errorChan <- err
				return
			}
			conn.SetReadDeadline(s.now().Add(s.pongTimeout))
			// The select loop may have exited on a failed ping; don't
			// stay parked on a full channel nobody drains.
			select {
			case messageChan <- data:
			case <-done:
				return
			}
		}
	}()

	pingTicker := time.NewTicker(s.pingInterval)
	defer pingTicker.Stop()

	ctx := context.Background()
	for {
		select {
		case data := <-messageChan:
			if !limiter.Allow() {
				s.logger.Warnw("dropping frame, message rate exceeded",
					"room_kind", client.Key.Kind,
					"user_id", client.UserID,
				)
				continue
			}
			session.OnFrame(ctx, data)

		case <-pingTicker.C:
			deadline := s.now().Add(s.writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}

		case err := <-errorChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Infow("error reading from peer",
					"room_kind", client.Key.Kind,
					"user_id", client.UserID,
					"error", err,
				)
			}
			return
		}
	}
}

// accept upgrades the connection and authenticates the principal. The
// upgrade happens first so a refusal can carry its close code.
func (s *Server) accept(c *gin.Context) (*websocket.Conn, *services.Claims, bool) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return nil, nil, false
	}

	token := c.Query("token")
	if token == "" {
		s.refuse(conn, apperrors.CloseUnauthenticated, "authentication required")
		return nil, nil, false
	}

	claims, err := s.auth.ValidateToken(token)
	if err != nil {
		s.refuse(conn, apperrors.CloseUnauthenticated, "invalid token")
		return nil, nil, false
	}

	return conn, claims, true
}

func (s *Server) appointmentParam(conn *websocket.Conn, c *gin.Context, kind RoomKind) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("appointmentID"), 10, 64)
	if err != nil {
		s.metrics.ConnectRejected(string(kind), "not_found")
		s.refuse(conn, apperrors.CloseNotFound, "appointment not found")
		return 0, false
	}
	return id, true
}

func (s *Server) newClient(conn *websocket.Conn, key RoomKey, claims *services.Claims, role domain.Role) *Client {
	send := func(v interface{}) error {
		conn.SetWriteDeadline(s.now().Add(s.writeTimeout))
		return conn.WriteJSON(v)
	}
	return NewClient(key, claims.UserID, role, claims.DisplayName, send)
}

func (s *Server) refuseWithError(conn *websocket.Conn, kind RoomKind, err error) {
	appErr := s.classify(err)
	s.metrics.ConnectRejected(string(kind), string(appErr.Code))
	s.refuse(conn, appErr.CloseCode(), appErr.Message)
}

func (s *Server) classify(err error) *apperrors.AppError {
	switch err {
	case domain.ErrAppointmentNotFound:
		return apperrors.NewNotFoundError("appointment")
	case domain.ErrNotParticipant:
		return apperrors.NewForbiddenError("not a party to the appointment")
	default:
		return apperrors.WrapError(err, apperrors.ErrCodeInternal, "authorization failed", http.StatusInternalServerError)
	}
}

func (s *Server) refuse(conn *websocket.Conn, code int, reason string) {
	deadline := s.now().Add(s.writeTimeout)
	conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	conn.Close()
}

func (s *Server) sendError(client *Client, message string) {
	if err := client.Send(newErrorFrame(message)); err != nil {
		s.logger.Debugw("failed to send error frame", "user_id", client.UserID, "error", err)
	}
}

func (s *Server) syncRoomMetrics() {
	rooms, _ := s.registry.Counts()
	snapshot := make(map[string]int, len(rooms))
	for kind, count := range rooms {
		snapshot[string(kind)] = count
	}
	s.metrics.SetActiveRooms(snapshot)
}

func (s *Server) logConnected(client *Client) {
	s.logger.Infow("peer connected",
		"room_kind", client.Key.Kind,
		"room_id", client.Key.ID,
		"user_id", client.UserID,
		"role", client.Role,
	)
}
