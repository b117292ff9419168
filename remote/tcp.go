package remote

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shellq/client/task"
)

// channel tags multiplexed over the single connection.
const (
	tagScheduled byte = 0x01
	tagCompleted byte = 0x02
	tagTerminate byte = 0x03
)

const authSecretLen = 16 // 128-bit shared secret

// TCPEndpoint is a net.Conn-backed Endpoint. One connection multiplexes
// all three logical channels; writes are serialized with writeMu since
// the Scheduler, Collector, and Coordinator each use a different
// direction of the same connection concurrently.
type TCPEndpoint struct {
	conn    net.Conn
	writeMu sync.Mutex
	log     *logrus.Entry

	incoming chan task.Bundle

	mu       sync.Mutex
	readErr  error
	closedCh chan struct{}
	closeO   sync.Once
}

// NewTCPEndpoint dials host:port, performs the shared-secret handshake,
// and starts the background frame reader. auth is the 128-bit shared
// secret encoded as hex. Connection refusal and auth failure are both
// fatal and returned as an error from this constructor; the caller
// (Coordinator) never retries.
func NewTCPEndpoint(ctx context.Context, host string, port int, auth string) (*TCPEndpoint, error) {
	secret, err := hex.DecodeString(auth)
	if err != nil || len(secret) != authSecretLen {
		return nil, fmt.Errorf("%w: malformed shared secret", ErrAuthFailed)
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, fmt.Errorf("remote: dial: %w", err)
	}

	sessionID := uuid.NewString()
	logEntry := logrus.WithFields(logrus.Fields{"component": "remote.tcp", "session": sessionID})

	if _, err := conn.Write(secret); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	ack := make([]byte, 1)
	if _, err := readFull(conn, ack); err != nil || ack[0] != 1 {
		_ = conn.Close()
		return nil, ErrAuthFailed
	}

	e := &TCPEndpoint{
		conn:     conn,
		log:      logEntry,
		incoming: make(chan task.Bundle, 16),
		closedCh: make(chan struct{}),
	}
	go e.readLoop()
	return e, nil
}

func (e *TCPEndpoint) readLoop() {
	for {
		bundle, err := readFrame(e.conn, tagScheduled)
		if err != nil {
			e.mu.Lock()
			if !isDisconnect(err) {
				e.readErr = err
			}
			e.mu.Unlock()
			close(e.incoming)
			return
		}
		e.incoming <- bundle
	}
}

func (e *TCPEndpoint) GetScheduled(ctx context.Context, timeout time.Duration) (task.Bundle, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case bundle, ok := <-e.incoming:
		if !ok {
			e.mu.Lock()
			err := e.readErr
			e.mu.Unlock()
			return nil, err // nil, nil means orderly disconnect
		}
		return bundle, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrTimeout
	}
}

func (e *TCPEndpoint) PutCompleted(ctx context.Context, bundle task.Bundle) error {
	return e.writeFrame(ctx, tagCompleted, bundle)
}

func (e *TCPEndpoint) PutTerminator(ctx context.Context, id string) error {
	return e.writeFrame(ctx, tagTerminate, []byte(id))
}

func (e *TCPEndpoint) writeFrame(_ context.Context, tag byte, payload any) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(payload); err != nil {
		return err
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	header := make([]byte, 5)
	header[0] = tag
	binary.BigEndian.PutUint32(header[1:], uint32(buf.Len()))

	if _, err := e.conn.Write(header); err != nil {
		return err
	}
	_, err := e.conn.Write(buf.Bytes())
	return err
}

func (e *TCPEndpoint) Close() error {
	var err error
	e.closeO.Do(func() {
		close(e.closedCh)
		err = e.conn.Close()
	})
	return err
}

// readFrame reads one length-prefixed frame from conn and decodes it as
// a task.Bundle. It returns io.EOF (possibly wrapped) when the peer
// disconnects cleanly.
func readFrame(conn net.Conn, wantTag byte) (task.Bundle, error) {
	header := make([]byte, 5)
	if _, err := readFull(conn, header); err != nil {
		return nil, err
	}
	if header[0] != wantTag {
		return nil, fmt.Errorf("remote: unexpected frame tag %x", header[0])
	}
	n := binary.BigEndian.Uint32(header[1:])
	if n == 0 {
		return nil, nil // null sentinel: zero-length payload
	}

	payload := make([]byte, n)
	if _, err := readFull(conn, payload); err != nil {
		return nil, err
	}

	var bundle task.Bundle
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&bundle); err != nil {
		return nil, err
	}
	return bundle, nil
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
