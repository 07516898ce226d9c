package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"
)

// MaxFrameSize bounds a single message body.
const MaxFrameSize = 64 * 1024 * 1024

// ErrTimeout is returned by Request when no reply arrives in time.
var ErrTimeout = errors.New("wire: request timed out")

// ErrClosed is returned once a socket's connection is gone.
var ErrClosed = errors.New("wire: connection closed")

// Socket is a framed request/reply endpoint. A bound Socket (Bind) plays
// the server role: Recv/Send answer requests, one pending request at a
// time, matching the ops dispatcher's never-concurrent reply discipline.
// A connected Socket (NewClient) plays the client role: Request performs
// one round trip per call.
type Socket struct {
	mode     mode
	listener net.Listener // bind mode only

	dialNetwork, dialAddress string // connect mode only, dialed lazily

	mu   sync.Mutex
	conn net.Conn // bind mode: current accepted conn; connect mode: the dialed conn
}

type mode int

const (
	modeBind mode = iota
	modeConnect
)

// Bind opens a server-mode socket listening at network/address (e.g.
// "unix", "/tmp/actorhost_instance_1.sock" or "tcp", "127.0.0.1:4999").
func Bind(network, address string) (*Socket, error) {
	if network == "unix" {
		os.Remove(address)
	}
	l, err := net.Listen(network, address)
	if err != nil {
		return nil, fmt.Errorf("binding %s %s: %w", network, address, err)
	}
	return &Socket{mode: modeBind, listener: l}, nil
}

// NewClient builds a connect-mode socket to network/address. It dials
// lazily on the first Request call so a host-ops endpoint that isn't up
// yet doesn't fail host startup.
func NewClient(network, address string) *Socket {
	return &Socket{mode: modeConnect, dialNetwork: network, dialAddress: address}
}

func (s *Socket) ensureConnected(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return nil
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.Dial(s.dialNetwork, s.dialAddress)
	if err != nil {
		return fmt.Errorf("dialing %s %s: %w", s.dialNetwork, s.dialAddress, err)
	}
	s.conn = conn
	return nil
}

// Close releases the socket's listener and any open connection.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.conn != nil {
		err = s.conn.Close()
		s.conn = nil
	}
	if s.listener != nil {
		if lerr := s.listener.Close(); err == nil {
			err = lerr
		}
	}
	return err
}

// Recv blocks until a request frame arrives on a bind-mode socket,
// accepting a new connection first if none is active. Returns the
// decoded message, or an error if the transport failed outright.
func (s *Socket) Recv() (*Message, error) {
	for {
		conn, err := s.currentOrAccept()
		if err != nil {
			return nil, err
		}
		msg, err := readFrame(conn)
		if err != nil {
			s.mu.Lock()
			if s.conn == conn {
				conn.Close()
				s.conn = nil
			}
			s.mu.Unlock()
			if err == io.EOF {
				continue // peer disconnected cleanly, accept the next one
			}
			return nil, err
		}
		return msg, nil
	}
}

func (s *Socket) currentOrAccept() (net.Conn, error) {
	s.mu.Lock()
	if s.conn != nil {
		c := s.conn
		s.mu.Unlock()
		return c, nil
	}
	s.mu.Unlock()

	if s.listener == nil {
		return nil, ErrClosed
	}
	conn, err := s.listener.Accept()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	return conn, nil
}

// Send writes a reply to the peer from the last Recv call.
func (s *Socket) Send(msg *Message) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrClosed
	}
	return writeFrame(conn, msg)
}

// Request performs one round trip on a connect-mode socket: send msg,
// wait up to timeout for a reply. On timeout the connection is reset so
// a retried request never reads a stale reply.
func (s *Socket) Request(msg *Message, timeout time.Duration) (*Message, error) {
	if err := s.ensureConnected(timeout); err != nil {
		return nil, err
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil, ErrClosed
	}

	conn.SetDeadline(time.Now().Add(timeout))
	defer conn.SetDeadline(time.Time{})

	if err := writeFrame(conn, msg); err != nil {
		s.resetConn(conn)
		return nil, err
	}

	reply, err := readFrame(conn)
	if err != nil {
		s.resetConn(conn)
		if isTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, err
	}
	return reply, nil
}

func (s *Socket) resetConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == conn {
		conn.Close()
		s.conn = nil
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func writeFrame(w io.Writer, msg *Message) error {
	body, err := msg.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	if len(body) > MaxFrameSize {
		return fmt.Errorf("message body too large: %d bytes", len(body))
	}
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(body)))
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

func readFrame(r io.Reader) (*Message, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header)
	if size > MaxFrameSize {
		return nil, fmt.Errorf("frame too large: %d bytes", size)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	msg := &Message{}
	if err := msg.UnmarshalJSON(body); err != nil {
		// A malformed body is a protocol-level problem, not a transport
		// failure: hand back an envelope with no fields so callers see
		// a missing "req" rather than treating the connection as dead.
		return &Message{}, nil
	}
	return msg, nil
}
