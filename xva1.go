package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Southclaws/fault/fmsg"
	"golang.org/x/sync/errgroup"

	"github.com/mlinton/XVA1-Soft-Synth/internal/config"
	"github.com/mlinton/XVA1-Soft-Synth/internal/patch"
	"github.com/mlinton/XVA1-Soft-Synth/internal/serialport"
	"github.com/mlinton/XVA1-Soft-Synth/internal/session"
)

// logObserver forwards session events to the standard logger.
type logObserver struct {
	prefix  string
	verbose bool

	lost     chan struct{} // closed once the session is Disconnected
	lostOnce sync.Once
}

func newLogObserver(verbose bool) *logObserver {
	return &logObserver{verbose: verbose, lost: make(chan struct{})}
}

func (o *logObserver) OnState(s session.State) {
	log.Printf("[session%s] state: %s", o.prefix, s)
	if s == session.Disconnected {
		o.lostOnce.Do(func() { close(o.lost) })
	}
}

func (o *logObserver) OnLog(msg string) {
	if !o.verbose && isWireLog(msg) {
		return
	}
	log.Printf("[session%s] %s", o.prefix, msg)
}

func (o *logObserver) OnPatch(p *patch.Patch) {
	log.Printf("[session%s] patch %q received", o.prefix, p.Name)
}

// isWireLog matches the per-chunk TX/RX lines.
func isWireLog(msg string) bool {
	return strings.HasPrefix(msg, "TX:") || strings.HasPrefix(msg, "RX:")
}

func openSession(cfg *config.Config, verbose bool) (*session.Session, *logObserver) {
	obs := newLogObserver(verbose)
	s := session.New(
		serialport.Opener{Name: cfg.Port},
		obs,
		session.WithSyncTimeout(time.Duration(cfg.SyncTimeoutMS)*time.Millisecond),
		session.WithSettleDelay(time.Duration(cfg.SettleMS)*time.Millisecond),
	)
	obs.prefix = " " + s.ID()[:8]
	return s, obs
}

// waitSynced blocks until the session holds the synth's patch.
func waitSynced(ctx context.Context, s *session.Session) error {
	select {
	case err := <-s.Synced():
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// withSession connects, waits for the first dump and runs f. The session
// is closed when f returns or ctx is cancelled.
func withSession(ctx context.Context, cfg *config.Config, verbose bool, f func(context.Context, *session.Session) error) error {
	s, obs := openSession(cfg, verbose)
	log.Printf("Connecting to XVA1 on %s at %d bit/s...", serialport.Opener{Name: cfg.Port}, cfg.BitRate)
	return runSession(ctx, s, obs.lost, cfg.BitRate, f)
}

// runSession drives s for f. If the connection is lost while f runs, f's
// context is cancelled and the disconnect reason is returned.
func runSession(ctx context.Context, s *session.Session, lost <-chan struct{}, bitRate int, f func(context.Context, *session.Session) error) error {
	defer s.Disconnect()

	g, ctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	g.Go(func() error {
		select {
		case <-ctx.Done():
			s.Disconnect()
		case <-lost:
			return <-s.Synced()
		case <-done:
		}
		return nil
	})
	g.Go(func() error {
		defer close(done)
		if err := s.Connect(ctx, bitRate); err != nil {
			return err
		}
		if err := waitSynced(ctx, s); err != nil {
			return err
		}
		return f(ctx, s)
	})
	return g.Wait()
}

// describeError prefers the user-facing message attached to err.
func describeError(err error) string {
	if issue := fmsg.GetIssue(err); issue != "" {
		return fmt.Sprintf("%s (%v)", issue, err)
	}
	return err.Error()
}
