// Package session keeps a Patch in sync with an XVA1 over a byte transport.
package session

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/google/uuid"

	"github.com/mlinton/XVA1-Soft-Synth/internal/patch"
	"github.com/mlinton/XVA1-Soft-Synth/internal/protocol"
)

const (
	DefaultSyncTimeout = 3000 * time.Millisecond
	DefaultSettleDelay = 100 * time.Millisecond
	DefaultInjectDelay = 10 * time.Millisecond
	DefaultSlotDelay   = 50 * time.Millisecond
)

// Opener opens the transport at a bit rate. Reads should return within a
// bounded time (a read timeout) or fail once the transport is closed.
type Opener interface {
	Open(bitRate int) (io.ReadWriteCloser, error)
}

type OpenerFunc func(bitRate int) (io.ReadWriteCloser, error)

func (f OpenerFunc) Open(bitRate int) (io.ReadWriteCloser, error) { return f(bitRate) }

type Option func(*Session)

// WithSyncTimeout sets how long to wait for a dump after a request.
func WithSyncTimeout(d time.Duration) Option { return func(s *Session) { s.syncTimeout = d } }

// WithSettleDelay sets the pause between Init and the first dump request.
func WithSettleDelay(d time.Duration) Option { return func(s *Session) { s.settleDelay = d } }

// WithInjectDelay sets the pause between the inject command and its payload.
func WithInjectDelay(d time.Duration) Option { return func(s *Session) { s.injectDelay = d } }

// WithSlotDelay sets the pause between a slot load and the dump request.
func WithSlotDelay(d time.Duration) Option { return func(s *Session) { s.slotDelay = d } }

// conn is one open transport and its read loop.
type conn struct {
	port    io.ReadWriteCloser
	reading atomic.Bool
	done    chan struct{}
}

// Session drives the connect, initialize and sync sequence and sends edits.
//
// Lock order: emitMu, then mu. emitMu is held while state changes are made
// and reported, so observers see them in order. Transport writes happen
// outside both, under writeMu.
type Session struct {
	id     string
	opener Opener
	obs    Observer

	syncTimeout time.Duration
	settleDelay time.Duration
	injectDelay time.Duration
	slotDelay   time.Duration

	emitMu  sync.Mutex
	writeMu sync.Mutex

	mu       sync.Mutex
	state    State
	conn     *conn
	timer    *time.Timer
	timerGen uint64
	patch    *patch.Patch
	image    []byte // last image received or injected
	reason   error  // why the session last became Disconnected
	waiters  []chan error
}

// New returns a disconnected session holding the default patch.
func New(opener Opener, obs Observer, opts ...Option) *Session {
	if obs == nil {
		obs = ObserverFuncs{}
	}
	s := &Session{
		id:          uuid.NewString(),
		opener:      opener,
		obs:         obs,
		syncTimeout: DefaultSyncTimeout,
		settleDelay: DefaultSettleDelay,
		injectDelay: DefaultInjectDelay,
		slotDelay:   DefaultSlotDelay,
		state:       Disconnected,
		patch:       patch.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Patch returns a copy of the current patch.
func (s *Session) Patch() *patch.Patch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patch.Clone()
}

// Image encodes the current patch over the last received image, so bytes
// without a parameter keep what the synth sent.
func (s *Session) Image() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	img := make([]byte, patch.ImageSize)
	copy(img, s.image)
	_ = patch.EncodeInto(img, s.patch)
	return img
}

// Synced returns a channel that receives once the session is Connected
// (nil) or Disconnected (the reason). It fires at once if the session is
// already in one of those states.
func (s *Session) Synced() <-chan error {
	ch := make(chan error, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Connected:
		ch <- nil
	case Disconnected:
		ch <- s.disconnectReason()
	default:
		s.waiters = append(s.waiters, ch)
	}
	return ch
}

func (s *Session) disconnectReason() error {
	if s.reason != nil {
		return s.reason
	}
	return notConnected()
}

func (s *Session) logf(format string, args ...any) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.obs.OnLog(fmt.Sprintf(format, args...))
}

func notConnected() error {
	return fault.Wrap(ErrNotConnected,
		ftag.With(KindNotConnected),
		fmsg.WithDesc("session not connected", "Not connected to the synth."))
}

// connected returns the live connection, or ErrNotConnected unless the
// session is in one of the allowed states (Connected by default).
func (s *Session) connected(allowed ...State) (*conn, error) {
	if len(allowed) == 0 {
		allowed = []State{Connected}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range allowed {
		if s.state == st && s.conn != nil {
			return s.conn, nil
		}
	}
	return nil, notConnected()
}

// Connect opens the transport, initializes the synth and requests a dump.
// It returns once the request is written; use Synced to wait for the patch.
// Open failures are not retried.
func (s *Session) Connect(ctx context.Context, bitRate int) error {
	s.emitMu.Lock()
	s.mu.Lock()
	if s.state != Disconnected {
		st := s.state
		s.mu.Unlock()
		s.emitMu.Unlock()
		return fmt.Errorf("connect: session is %s", st)
	}
	s.state = Connecting
	s.reason = nil
	s.mu.Unlock()
	s.obs.OnState(Connecting)
	s.obs.OnLog(fmt.Sprintf("Opening port at %d bit/s...", bitRate))
	s.emitMu.Unlock()

	port, err := s.opener.Open(bitRate)
	if err != nil {
		s.logf("Error connecting: %v", err)
		err = fault.Wrap(fmt.Errorf("%w: %w", ErrTransportOpen, err),
			ftag.With(KindTransport),
			fmsg.WithDesc("open transport",
				"Could not open the serial port. Check the cable and that no other program is using it."))
		s.disconnect(nil, err)
		return err
	}

	c := &conn{port: port, done: make(chan struct{})}
	c.reading.Store(true)

	s.emitMu.Lock()
	s.mu.Lock()
	if s.state != Connecting {
		// Disconnected while opening.
		s.mu.Unlock()
		s.emitMu.Unlock()
		port.Close()
		return notConnected()
	}
	s.conn = c
	s.state = Initializing
	s.mu.Unlock()
	s.obs.OnLog("Port opened.")
	s.obs.OnState(Initializing)
	s.obs.OnLog("Initializing synth...")
	s.emitMu.Unlock()

	go s.readLoop(c)

	if err := s.write(c, protocol.Init(), kindCmd); err != nil {
		return err
	}
	if err := sleep(ctx, s.settleDelay); err != nil {
		s.disconnect(c, nil)
		return err
	}
	if err := s.requestPatch(ctx, c); err != nil {
		return err
	}
	s.logf("Port connected. Waiting for sync...")
	return nil
}

// RequestPatch asks the synth for its edit buffer and re-arms the sync
// timer. Allowed while Connected (manual resync) or already Syncing.
func (s *Session) RequestPatch(ctx context.Context) error {
	c, err := s.connected(Connected, Syncing)
	if err != nil {
		return err
	}
	return s.requestPatch(ctx, c)
}

func (s *Session) requestPatch(ctx context.Context, c *conn) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.emitMu.Lock()
	s.mu.Lock()
	if s.conn != c {
		s.mu.Unlock()
		s.emitMu.Unlock()
		return notConnected()
	}
	changed := s.state != Syncing
	s.state = Syncing
	s.stopTimerLocked()
	s.mu.Unlock()
	if changed {
		s.obs.OnState(Syncing)
	}
	s.obs.OnLog("Requesting patch dump...")
	s.emitMu.Unlock()

	if err := s.write(c, protocol.DumpRequest(), kindCmd); err != nil {
		return err
	}

	// The dump may already have arrived while the request was written.
	s.mu.Lock()
	if s.conn == c && s.state == Syncing {
		s.armTimerLocked()
	}
	s.mu.Unlock()
	return nil
}

// armTimerLocked replaces any pending sync timer. s.mu must be held.
func (s *Session) armTimerLocked() {
	s.stopTimerLocked()
	gen := s.timerGen
	s.timer = time.AfterFunc(s.syncTimeout, func() { s.syncExpired(gen) })
}

// stopTimerLocked cancels the sync timer; a fire already in flight is
// ignored because the generation moves on. s.mu must be held.
func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
}

func (s *Session) syncExpired(gen uint64) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if gen != s.timerGen || s.state != Syncing {
		s.mu.Unlock()
		return
	}
	c := s.conn
	s.mu.Unlock()

	s.obs.OnLog("Error: sync timed out. The synth did not respond.")
	s.obs.OnLog("Ensure the synth is powered and in normal operating mode (not firmware update mode). Try a different bit rate if needed.")
	s.disconnectLocked(c, fault.Wrap(ErrSyncTimeout,
		ftag.With(KindTimeout),
		fmsg.WithDesc("sync timeout",
			"The synth did not respond. Ensure it is powered and not in firmware update mode, or try a different bit rate.")))
}

// Disconnect closes the transport and returns to Disconnected. Calling it
// again, or on a session that never connected, does nothing.
func (s *Session) Disconnect() {
	s.disconnect(nil, nil)
}

func (s *Session) disconnect(c *conn, reason error) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.disconnectLocked(c, reason)
}

// disconnectLocked tears down c, or whatever is open when c is nil.
// s.emitMu must be held.
func (s *Session) disconnectLocked(c *conn, reason error) {
	s.mu.Lock()
	if c != nil && s.conn != c {
		s.mu.Unlock()
		return
	}
	cur := s.conn
	prev := s.state
	s.stopTimerLocked()
	s.conn = nil
	s.state = Disconnected
	if reason != nil {
		s.reason = reason
	}
	waiters := s.waiters
	s.waiters = nil
	result := s.disconnectReason()
	s.mu.Unlock()

	if cur != nil {
		cur.reading.Store(false)
		if err := cur.port.Close(); err != nil {
			s.obs.OnLog(fmt.Sprintf("Error closing port: %v", err))
		}
		s.obs.OnLog("Port disconnected.")
	}
	if prev != Disconnected {
		s.obs.OnState(Disconnected)
	}
	for _, w := range waiters {
		w <- result
	}
}

func (s *Session) readLoop(c *conn) {
	defer close(c.done)
	s.logf("Read loop started.")

	var framer protocol.Framer
	buf := make([]byte, 4096)
	for c.reading.Load() {
		n, err := c.port.Read(buf)
		if err != nil {
			if !c.reading.Load() {
				break
			}
			s.logf("Error in read loop: %v", err)
			s.disconnect(c, fault.Wrap(fmt.Errorf("%w: %w", ErrTransportRead, err),
				ftag.With(KindTransport),
				fmsg.WithDesc("read transport", "Lost the connection to the synth.")))
			break
		}
		if n == 0 {
			continue
		}

		events := framer.Feed(buf[:n])
		if framer.Buffered() > 0 || len(events) == 0 || events[0].Kind != protocol.Ack {
			s.logf("RX: %d bytes (buffered: %d)", n, framer.Buffered())
		}
		for _, ev := range events {
			switch ev.Kind {
			case protocol.Ack:
				s.logf("RX: ACK (0x00)")
			case protocol.PatchFrame:
				s.handleFrame(c, ev.Data)
			}
		}
	}
	s.logf("Read loop ended.")
}

func (s *Session) handleFrame(c *conn, frame []byte) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if s.conn != c {
		s.mu.Unlock()
		return
	}
	st := s.state
	if st != Syncing && st != Connected {
		s.mu.Unlock()
		s.obs.OnLog(fmt.Sprintf("Dropped %d-byte patch frame received while %s.", len(frame), st))
		return
	}

	p, err := patch.Decode(frame, s.patch)
	if err != nil {
		s.mu.Unlock()
		s.obs.OnLog(fmt.Sprintf("Error decoding patch: %v", err))
		return
	}
	if st == Syncing {
		s.stopTimerLocked()
	}
	s.patch = p
	s.image = frame
	s.state = Connected
	waiters := s.waiters
	s.waiters = nil
	snapshot := p.Clone()
	s.mu.Unlock()

	s.obs.OnLog(fmt.Sprintf("Full patch received (%d bytes): %q", len(frame), snapshot.Name))
	if st == Syncing {
		s.obs.OnState(Connected)
	}
	s.obs.OnPatch(snapshot)
	for _, w := range waiters {
		w <- nil
	}
}

const (
	kindCmd   = "CMD"
	kindParam = "PARAM"
	kindRaw   = "RAW"
	kindPatch = "PATCH"
)

// write is the only path to the transport. A failed write disconnects.
func (s *Session) write(c *conn, data []byte, kind string) error {
	s.writeMu.Lock()
	_, err := c.port.Write(data)
	s.writeMu.Unlock()
	if err != nil {
		s.logf("Error writing: %v", err)
		err = fault.Wrap(fmt.Errorf("%w: %w", ErrTransportWrite, err),
			ftag.With(KindTransport),
			fmsg.WithDesc("write transport", "Could not send to the synth. The connection was closed."))
		s.disconnect(c, err)
		return err
	}

	switch kind {
	case kindRaw:
		s.logf("TX: %s (%s)", data, kind)
	case kindPatch:
		s.logf("TX: Sent %d-byte patch data", len(data))
	default:
		s.logf("TX: %s (%s)", protocol.Describe(data), kind)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
