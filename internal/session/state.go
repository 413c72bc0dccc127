package session

import (
	"errors"

	"github.com/Southclaws/fault/ftag"
	"github.com/mlinton/XVA1-Soft-Synth/internal/patch"
)

// State is the sync state of a Session.
type State int

const (
	Disconnected State = iota
	Connecting
	Initializing
	Syncing
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Initializing:
		return "initializing"
	case Syncing:
		return "syncing"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

var (
	ErrTransportOpen  = errors.New("transport open failed")
	ErrTransportWrite = errors.New("transport write failed")
	ErrTransportRead  = errors.New("transport read failed")
	ErrSyncTimeout    = errors.New("sync timed out")
	ErrNotConnected   = errors.New("not connected")
)

const (
	KindTransport    ftag.Kind = "TRANSPORT"
	KindTimeout      ftag.Kind = "SYNC_TIMEOUT"
	KindNotConnected ftag.Kind = "NOT_CONNECTED"
)

// Observer receives session events. Calls are serialized and arrive in the
// order the events happened. Observers may read the Session (State, Patch,
// Image) but must not call methods that change it.
type Observer interface {
	OnState(State)
	OnLog(string)
	OnPatch(*patch.Patch)
}

// ObserverFuncs adapts plain functions to Observer; nil fields are skipped.
type ObserverFuncs struct {
	State func(State)
	Log   func(string)
	Patch func(*patch.Patch)
}

func (o ObserverFuncs) OnState(s State) {
	if o.State != nil {
		o.State(s)
	}
}

func (o ObserverFuncs) OnLog(msg string) {
	if o.Log != nil {
		o.Log(msg)
	}
}

func (o ObserverFuncs) OnPatch(p *patch.Patch) {
	if o.Patch != nil {
		o.Patch(p)
	}
}
