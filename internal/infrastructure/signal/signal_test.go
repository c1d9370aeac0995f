package signal

import (
	"sync"
	"testing"
	"time"

	"telesignal/internal/core/domain"
	"telesignal/internal/core/services"
	"telesignal/internal/infrastructure/repositories/memory"
	"telesignal/pkg/config"
	"telesignal/pkg/logger"

	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 3, 14, 15, 4, 0, 0, time.UTC)

// capture records everything sent to one fake client.
type capture struct {
	mu     sync.Mutex
	frames []interface{}
	fail   error
}

func (c *capture) send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.frames = append(c.frames, v)
	return nil
}

func (c *capture) all() []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]interface{}(nil), c.frames...)
}

func (c *capture) last() interface{} {
	frames := c.all()
	if len(frames) == 0 {
		return nil
	}
	return frames[len(frames)-1]
}

func (c *capture) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

// harness wires a Server against in-memory repositories, with two seeded
// appointments: 42 (doctor 100, patient 200) carrying a room token, and
// 7 (doctor 4, patient 10) without one.
type harness struct {
	server       *Server
	appointments *memory.MemoryAppointmentRepository
	messages     *memory.MemoryChatMessageRepository
	guard        *services.AccessGuard
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	appointments := memory.NewMemoryAppointmentRepository()
	appointments.Seed(&domain.Appointment{
		ID:              42,
		DoctorID:        100,
		PatientID:       200,
		VideoCallRoomID: "room-token-42",
		VideoCallStatus: domain.CallWaiting,
	})
	appointments.Seed(&domain.Appointment{
		ID:              7,
		DoctorID:        4,
		PatientID:       10,
		VideoCallStatus: domain.CallNotStarted,
	})

	guard, err := services.NewAccessGuard(appointments, 16, logger.NewNop())
	require.NoError(t, err)

	messages := memory.NewMemoryChatMessageRepository()
	chat := services.NewChatPersistenceService(messages, logger.NewNop())

	auth := services.NewAuthService("test-secret", time.Hour)
	server := NewServer(NewRegistry(), guard, auth, chat, nil, config.DefaultConfig(), logger.NewNop())
	server.now = func() time.Time { return testTime }

	return &harness{
		server:       server,
		appointments: appointments,
		messages:     messages,
		guard:        guard,
	}
}

// joinClient registers a fake client in the room and returns it with its
// capture.
func (h *harness) joinClient(key RoomKey, userID int64, role domain.Role, name string) (*Client, *capture) {
	out := &capture{}
	client := NewClient(key, userID, role, name, out.send)
	h.server.registry.Join(client)
	return client, out
}
