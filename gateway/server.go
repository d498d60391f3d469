package gateway

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"minim/deliver"
	"minim/metrics"
	"minim/presence"
	"minim/protocol"
)

type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the real-time transport boundary: it accepts TCP connections,
// reads newline-terminated events and dispatches them to the presence
// registry and the delivery router.
type Server struct {
	cfg       *Config
	registry  *presence.Registry
	router    *deliver.Router
	log       *zap.Logger
	collector *metrics.Collector

	mu       sync.Mutex
	listener net.Listener
	sessions map[*Session]struct{}
}

func New(cfg *Config, registry *presence.Registry, router *deliver.Router, log *zap.Logger, collector *metrics.Collector) *Server {
	return &Server{
		cfg:       cfg,
		registry:  registry,
		router:    router,
		log:       log,
		collector: collector,
		sessions:  make(map[*Session]struct{}),
	}
}

// Start listens on the configured address and serves connections until the
// listener is closed.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.log.Info("gateway listening", zap.String("addr", listener.Addr().String()))

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Warn("accept failed", zap.Error(err))
			continue
		}

		go s.handleConnection(conn)
	}
}

// Addr returns the bound listener address, useful with port 0 in tests.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) handleConnection(conn net.Conn) {
	sess := newSession(conn, s.cfg.WriteTimeout)
	s.track(sess)
	s.collector.OpenSessions.Inc()

	remoteAddr := conn.RemoteAddr().String()
	s.log.Info("client connected", zap.String("remote", remoteAddr))

	defer func() {
		// Leave выполняется до закрытия: после выхода из цикла доставка
		// в эту сессию невозможна
		s.registry.Leave(sess)
		s.untrack(sess)
		s.collector.OpenSessions.Dec()
		conn.Close()
		s.log.Info("client disconnected", zap.String("remote", remoteAddr))
	}()

	reader := bufio.NewReader(conn)
	for {
		if s.cfg.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) &&
				!strings.Contains(err.Error(), "use of closed network connection") {
				s.log.Debug("read failed", zap.String("remote", remoteAddr), zap.Error(err))
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		pkt, err := protocol.ParsePacket(line + "\n")
		if err != nil {
			s.log.Debug("parse failed", zap.String("remote", remoteAddr), zap.String("line", line))
			s.sendError(sess, "", "invalid packet format")
			continue
		}

		if !s.handlePacket(sess, pkt) {
			return
		}
	}
}

// handlePacket dispatches one event. Returns false when the connection
// should close (bye).
func (s *Server) handlePacket(sess *Session, pkt *protocol.Packet) bool {
	switch pkt.Type {
	case "ping":
		s.send(sess, "pong")
	case "join":
		s.handleJoin(sess, pkt)
	case "send_message":
		s.handleSendMessage(sess, pkt)
	case "bye":
		s.send(sess, "bye")
		return false
	default:
		s.sendError(sess, "", "unknown event type")
	}
	return true
}

func (s *Server) handleJoin(sess *Session, pkt *protocol.Packet) {
	if len(pkt.Fields) < 1 || pkt.Fields[0] == "" {
		s.sendError(sess, "join", "username required")
		return
	}

	username := pkt.Fields[0]
	s.registry.Join(username, sess)
	s.sendOK(sess, "join")
	s.log.Info("session joined",
		zap.String("username", username),
		zap.String("session", sess.ID()))
}

func (s *Server) handleSendMessage(sess *Session, pkt *protocol.Packet) {
	if len(pkt.Fields) < 3 {
		s.sendError(sess, "send_message", "sender, receiver and text required")
		return
	}

	// sender берётся из пакета, а не из join - как в исходном поведении
	sender := pkt.Fields[0]
	receiver := pkt.Fields[1]
	text := pkt.Fields[2]

	if sender == "" || receiver == "" || text == "" {
		s.sendError(sess, "send_message", "sender, receiver and text required")
		return
	}

	if err := s.router.Route(sender, receiver, text); err != nil {
		s.log.Error("route failed",
			zap.String("sender", sender),
			zap.String("receiver", receiver),
			zap.Error(err))
		s.sendError(sess, "send_message", "internal error")
		return
	}

	s.sendOK(sess, "send_message")
}

func (s *Server) send(sess *Session, pktType string, fields ...string) {
	if err := sess.write(protocol.FormatPacket(pktType, fields...)); err != nil {
		s.log.Debug("write failed", zap.String("session", sess.ID()), zap.Error(err))
	}
}

func (s *Server) sendOK(sess *Session, operation string) {
	s.send(sess, "ok", operation)
}

func (s *Server) sendError(sess *Session, operation, description string) {
	if operation != "" {
		s.send(sess, "fail", operation, description)
	} else {
		s.send(sess, "fail", description)
	}
}

func (s *Server) track(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess] = struct{}{}
}

func (s *Server) untrack(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess)
}

// Stats returns connection counts for the control socket.
func (s *Server) Stats() (connections int, usernames []string) {
	s.mu.Lock()
	connections = len(s.sessions)
	s.mu.Unlock()
	return connections, s.registry.Usernames()
}

// Shutdown notifies every connected client with a bye, closes all
// connections and drops the registry. reason is e.g. "maintenance" or
// "restart".
func (s *Server) Shutdown(reason string) {
	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	sessions := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		s.send(sess, "bye", reason)
		sess.conn.Close()
	}

	s.registry.Reset()
}
