package bridge

import (
	"io"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blocinbloc/native-bluetooth/api/bluetooth"
	"github.com/blocinbloc/native-bluetooth/internal/trame"
)

// maxPendingLine bounds a line that has not been terminated yet.
const maxPendingLine = 64 * 1024

// session holds an open stream to the bound accessory.
type session struct {
	id     uuid.UUID
	device bluetooth.DeviceData
	conn   io.ReadWriteCloser

	bufSize  int
	verify   bool
	splitter *trame.Splitter

	publish func(id bluetooth.EventID, payload string)
	onEnd   func(s *session, err error)

	log *zap.Logger

	closing atomic.Bool
	done    chan struct{}
}

func newSession(b *Bridge, device bluetooth.DeviceData, conn io.ReadWriteCloser) *session {
	id := uuid.New()

	return &session{
		id:       id,
		device:   device,
		conn:     conn,
		bufSize:  b.cfg.ReadBufferSize,
		verify:   b.cfg.VerifyChecksum,
		splitter: trame.NewSplitter(maxPendingLine),
		publish:  b.publish,
		onEnd:    b.sessionEnded,
		log: b.log.With(
			zap.Stringer("session_id", id),
			zap.String("connection_id", device.ConnectionID),
		),
		done: make(chan struct{}),
	}
}

func (s *session) start() {
	go s.read()
}

// close closes the stream and waits for the reader to exit.
// It is safe to call close more than once.
func (s *session) close() {
	if !s.closing.CompareAndSwap(false, true) {
		<-s.done
		return
	}

	if err := s.conn.Close(); err != nil {
		s.log.Debug("Cannot close accessory stream", zap.Error(err))
	}

	<-s.done
}

func (s *session) read() {
	defer close(s.done)

	buf := make([]byte, s.bufSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			for _, line := range s.splitter.Write(buf[:n]) {
				s.deliver(line)
			}
		}

		if err == nil {
			continue
		}

		if s.closing.Load() {
			return
		}

		if line := s.splitter.Flush(); line != "" {
			s.deliver(line)
		}

		// The handler takes the bridge lock, which close may be holding
		// while it waits for this reader.
		go s.onEnd(s, err)

		return
	}
}

func (s *session) deliver(line string) {
	if s.closing.Load() {
		return
	}

	if s.verify && !trame.Verify(line) {
		s.log.Debug("Dropping invalid trame", zap.String("trame", line))
		return
	}

	s.publish(bluetooth.EventTrameReceived, line)
}
