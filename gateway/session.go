package gateway

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"minim/models"
	"minim/protocol"
)

// Session is one live connection. It starts unbound, becomes joined once the
// client sends a join event (the registry tracks the bindings), and is
// removed from the registry when the connection closes.
type Session struct {
	id           string
	conn         net.Conn
	writeTimeout time.Duration
	mu           sync.Mutex // serializes writes: fan-out happens from other sessions' goroutines
}

func newSession(conn net.Conn, writeTimeout time.Duration) *Session {
	return &Session{
		id:           uuid.NewString(),
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

func (s *Session) ID() string {
	return s.id
}

// Push delivers a new_message event to this session.
// Формат: new_message|sender|receiver|text
func (s *Session) Push(msg models.Message) error {
	return s.write(protocol.FormatPacket("new_message", msg.Sender, msg.Receiver, msg.Text))
}

func (s *Session) write(packet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	_, err := s.conn.Write([]byte(packet))
	return err
}
