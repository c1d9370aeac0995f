package signal

import (
	"sort"
	"sync"

	"telesignal/internal/core/domain"

	"github.com/google/uuid"
)

// RoomKind distinguishes the three websocket room types.
type RoomKind string

const (
	KindVideoCall  RoomKind = "video-call"
	KindCallInvite RoomKind = "call-invite"
	KindChat       RoomKind = "chat"
)

// RoomKey identifies a room: kind plus the appointment id or the opaque
// video-call room token.
type RoomKey struct {
	Kind RoomKind
	ID   string
}

// Client is one open socket's registry entry. The send function is the
// only way anything reaches the peer; it is serialized by the client's
// own mutex so concurrent broadcasts never interleave writes.
type Client struct {
	Handle string
	Key    RoomKey
	UserID int64
	Role   domain.Role
	Name   string

	// Declared by the video-call join frame; video-call rooms relay the
	// client's self-declared identity rather than the token claims.
	DeclaredType string
	DeclaredName string

	mu   sync.Mutex
	send func(v interface{}) error
}

func NewClient(key RoomKey, userID int64, role domain.Role, name string, send func(v interface{}) error) *Client {
	return &Client{
		Handle: uuid.NewString(),
		Key:    key,
		UserID: userID,
		Role:   role,
		Name:   name,
		send:   send,
	}
}

func (c *Client) Send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send(v)
}

// Registry is the process-wide room membership table. Rooms are created
// on first join and deleted when the last member leaves. Chat rooms
// additionally track which user ids are present, keyed by connection
// handle so several tabs of one user count as one presence entry.
type Registry struct {
	mu       sync.Mutex
	rooms    map[RoomKey]map[string]*Client
	presence map[RoomKey]map[int64]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[RoomKey]map[string]*Client),
		presence: make(map[RoomKey]map[int64]map[string]struct{}),
	}
}

// Join registers the client in its room, creating the room on first join.
func (r *Registry) Join(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joinLocked(c)
}

func (r *Registry) joinLocked(c *Client) {
	room, ok := r.rooms[c.Key]
	if !ok {
		room = make(map[string]*Client)
		r.rooms[c.Key] = room
	}
	room[c.Handle] = c
}

// Leave removes the client and deletes the room once empty. Calling it
// again for the same client is a no-op, so double-cleanup is safe.
func (r *Registry) Leave(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(c)
}

func (r *Registry) leaveLocked(c *Client) bool {
	room, ok := r.rooms[c.Key]
	if !ok {
		return false
	}
	if _, ok := room[c.Handle]; !ok {
		return false
	}
	delete(room, c.Handle)
	if len(room) == 0 {
		delete(r.rooms, c.Key)
	}
	return true
}

// JoinPresence registers a chat client and its presence entry in one
// critical section, then returns the sorted list of online user ids.
// Doing both under the registry lock keeps two tabs of the same user, or
// two users joining at once, from racing to a presence list missing a
// member.
func (r *Registry) JoinPresence(c *Client) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.joinLocked(c)

	room, ok := r.presence[c.Key]
	if !ok {
		room = make(map[int64]map[string]struct{})
		r.presence[c.Key] = room
	}
	handles, ok := room[c.UserID]
	if !ok {
		handles = make(map[string]struct{})
		room[c.UserID] = handles
	}
	handles[c.Handle] = struct{}{}

	return sortedUserIDs(room)
}

// LeavePresence removes the client's handle, drops the user once no
// handles remain, drops the room once no users remain, and returns the
// resulting sorted presence list. Idempotent.
func (r *Registry) LeavePresence(c *Client) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(c)

	room, ok := r.presence[c.Key]
	if !ok {
		return []int64{}
	}

	if handles, ok := room[c.UserID]; ok {
		delete(handles, c.Handle)
		if len(handles) == 0 {
			delete(room, c.UserID)
		}
	}

	if len(room) == 0 {
		delete(r.presence, c.Key)
		return []int64{}
	}

	return sortedUserIDs(room)
}

// Members returns a snapshot of the room's clients.
func (r *Registry) Members(key RoomKey) []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.rooms[key]
	members := make([]*Client, 0, len(room))
	for _, c := range room {
		members = append(members, c)
	}
	return members
}

// Broadcast sends the payload to every room member except the one with
// exceptHandle; an empty exceptHandle reaches everyone. Returns the
// number of members the payload was sent to.
func (r *Registry) Broadcast(key RoomKey, exceptHandle string, payload interface{}) int {
	sent := 0
	for _, member := range r.Members(key) {
		if exceptHandle != "" && member.Handle == exceptHandle {
			continue
		}
		if err := member.Send(payload); err == nil {
			sent++
		}
	}
	return sent
}

// Counts reports rooms and connections per room kind, for metrics.
func (r *Registry) Counts() (rooms map[RoomKind]int, connections map[RoomKind]int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms = make(map[RoomKind]int)
	connections = make(map[RoomKind]int)
	for key, room := range r.rooms {
		rooms[key.Kind]++
		connections[key.Kind] += len(room)
	}
	return rooms, connections
}

func sortedUserIDs(room map[int64]map[string]struct{}) []int64 {
	ids := make([]int64, 0, len(room))
	for id := range room {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
