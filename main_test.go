package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlinton/XVA1-Soft-Synth/internal/config"
	"github.com/mlinton/XVA1-Soft-Synth/internal/patch"
	"github.com/mlinton/XVA1-Soft-Synth/internal/protocol"
	"github.com/mlinton/XVA1-Soft-Synth/internal/session"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		path, text string
		want       float64
	}{
		{"volume", "200", 200},
		{"volume", " 12.5 ", 12.5},
		{"oscillators.0.waveform", "sine", 4},
		{"oscillators.2.waveform", "Square/Pulse", 2},
		{"filter_type", "4-POLE LP", 4},
		{"step_sequencer.on", "on", 1},
		{"step_sequencer.on", "Off", 0},
		{"effects.gate.on", "true", 1},
		{"eg_loop", "pitch+filter", 6},
		{"step_sequencer.step_values.3", "C4", 60},
		{"step_sequencer.step_values.3", "r", patch.StepNoteOff},
		{"step_sequencer.step_values.0", "on", patch.StepGateOn},
	}
	for _, tt := range tests {
		got, err := parseValue(tt.path, tt.text)
		require.NoError(t, err, "%s=%s", tt.path, tt.text)
		assert.Equal(t, tt.want, got, "%s=%s", tt.path, tt.text)
	}

	_, err := parseValue("oscillators.0.waveform", "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an option")

	_, err = parseValue("volume", "loud")
	require.Error(t, err)

	_, err = parseValue("step_sequencer.step_values.0", "X9")
	require.Error(t, err)
}

func TestParseSteps(t *testing.T) {
	steps, err := parseSteps("C4, E4 | r on;hold")
	require.NoError(t, err)
	assert.Equal(t, []int{60, 64, patch.StepNoteOff, patch.StepGateOn, patch.StepGateOff}, steps)

	_, err = parseSteps("  ")
	require.Error(t, err)

	_, err = parseSteps(strings.Repeat("C4 ", 17))
	require.Error(t, err)

	_, err = parseSteps("C4 Q4")
	require.Error(t, err)
}

func TestFormatSteps(t *testing.T) {
	seq := patch.StepSequencer{Steps: 3}
	seq.StepValues[0] = patch.StepGateOn
	seq.StepValues[1] = patch.StepGateOff
	seq.StepValues[2] = patch.StepNoteOff
	seq.StepValues[3] = patch.StepGateOn
	assert.Equal(t, "gate-on gate-off off", formatSteps(seq))

	for i := range seq.StepValues {
		seq.StepValues[i] = patch.StepNoteOff
	}
	seq.Steps = 40
	assert.Equal(t, strings.TrimSpace(strings.Repeat("off ", 16)), formatSteps(seq))

	seq.Steps = -1
	assert.Empty(t, formatSteps(seq))
}

func TestDiffPatch(t *testing.T) {
	from := patch.Default()
	assert.Empty(t, diffPatch(from, from.Clone()))

	to := from.Clone()
	to.Volume = 100
	to.StepSequencer.On = true
	changes := diffPatch(from, to)
	assert.ElementsMatch(t, []change{
		{Path: "step_sequencer.on", Value: 1},
		{Path: "volume", Value: 100},
	}, changes)

	to = from.Clone()
	to.Name = "Default Patch   "
	assert.Empty(t, diffPatch(from, to), "trailing spaces are not a rename")

	to.Name = "Bass"
	assert.Equal(t, []change{{Path: "name"}}, diffPatch(from, to))
}

func TestDescribeParameters(t *testing.T) {
	var buf bytes.Buffer
	describeParameters(&buf, "")
	out := buf.String()
	assert.Contains(t, out, "480-503")
	assert.Contains(t, out, "volume")
	assert.Contains(t, out, "77*")
	assert.Contains(t, out, "Saw Up, Saw Down")

	buf.Reset()
	describeParameters(&buf, "filter_type")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "71")
	assert.Contains(t, lines[1], "Bypass")
}

func TestIsWireLog(t *testing.T) {
	assert.True(t, isWireLog("TX: 64 (CMD)"))
	assert.True(t, isWireLog("RX: ACK (0x00)"))
	assert.False(t, isWireLog("Port connected. Waiting for sync..."))
}

func TestDescribeError(t *testing.T) {
	assert.Equal(t, "boom", describeError(errors.New("boom")))

	err := fault.Wrap(errors.New("boom"), fmsg.WithDesc("open", "Something broke."))
	assert.True(t, strings.HasPrefix(describeError(err), "Something broke. ("))
}

func TestSlotArg(t *testing.T) {
	cfg := config.Default()
	cfg.Slot = 7

	n, err := slotArg(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = slotArg(cfg, []string{"12"})
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = slotArg(cfg, []string{"128"})
	assert.ErrorIs(t, err, protocol.ErrInvalidSlot)

	_, err = slotArg(cfg, []string{"x"})
	assert.Error(t, err)
}

func TestPatchFile(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "a.xva1", patchFile(cfg, "a.xva1"))

	cfg.PatchDir = "/patches"
	assert.Equal(t, "/patches/a.xva1", patchFile(cfg, "a.xva1"))
	assert.Equal(t, "/tmp/a.xva1", patchFile(cfg, "/tmp/a.xva1"))
}

func TestRunRejectsBadArguments(t *testing.T) {
	ctx := context.Background()

	err := run(ctx, config.Default(), "bogus", nil)
	assert.ErrorIs(t, err, errUsage)

	err = run(ctx, config.Default(), "param", []string{"volume"})
	assert.ErrorIs(t, err, errUsage)

	err = run(ctx, config.Default(), "play", nil)
	assert.ErrorIs(t, err, errUsage)

	err = run(ctx, config.Default(), "get", []string{"-baud", "1234"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported bit rate")
}

func offlineSession() *session.Session {
	opener := session.OpenerFunc(func(int) (io.ReadWriteCloser, error) {
		return nil, errors.New("offline")
	})
	return session.New(opener, session.ObserverFuncs{})
}

func callTool(t *testing.T, sess *session.Session, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	s := newMCPServer(config.Default(), sess)
	tool := s.GetTool(name)
	require.NotNil(t, tool, name)

	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestMCPTools(t *testing.T) {
	s := newMCPServer(config.Default(), offlineSession())
	for _, name := range []string{
		"xva1_describe-parameters", "xva1_get-patch", "xva1_get-parameter",
		"xva1_update-parameter", "xva1_send-parameter", "xva1_send-patch", "xva1_set-name",
		"xva1_set-steps", "xva1_load-file", "xva1_save-file",
		"xva1_read-slot", "xva1_write-slot", "xva1_resync", "xva1_send-raw",
	} {
		assert.NotNil(t, s.GetTool(name), name)
	}
}

func TestMCPGetParameter(t *testing.T) {
	sess := offlineSession()

	res := callTool(t, sess, "xva1_get-parameter", map[string]any{"path": "oscillators.0.waveform"})
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "oscillators.0.waveform = 11")

	res = callTool(t, sess, "xva1_get-parameter", map[string]any{"path": "nope"})
	assert.True(t, res.IsError)
}

func TestMCPUpdateParameterOffline(t *testing.T) {
	sess := offlineSession()

	res := callTool(t, sess, "xva1_update-parameter", map[string]any{
		"path": "oscillators.1.waveform", "value": "triangle",
	})
	assert.False(t, res.IsError, resultText(t, res))
	assert.Equal(t, "oscillators.1.waveform = Triangle", resultText(t, res))
	assert.Equal(t, 3, sess.Patch().Oscillators[1].Waveform)

	res = callTool(t, sess, "xva1_update-parameter", map[string]any{"path": "volume"})
	assert.True(t, res.IsError)
}

func TestMCPSlotToolsNeedConnection(t *testing.T) {
	sess := offlineSession()

	res := callTool(t, sess, "xva1_write-slot", map[string]any{"slot": 3})
	assert.True(t, res.IsError)

	res = callTool(t, sess, "xva1_read-slot", map[string]any{"slot": 300})
	assert.True(t, res.IsError)

	res = callTool(t, sess, "xva1_send-parameter", map[string]any{"address": 248, "value": 100})
	assert.True(t, res.IsError)
}

func TestMCPDescribeParameters(t *testing.T) {
	res := callTool(t, offlineSession(), "xva1_describe-parameters", map[string]any{"prefix": "arpeggiator."})
	text := resultText(t, res)
	assert.Contains(t, text, "arpeggiator.mode")
	assert.NotContains(t, text, "volume")
}

func TestLogObserverClosesLostOnDisconnect(t *testing.T) {
	obs := newLogObserver(false)
	obs.OnState(session.Connecting)
	obs.OnState(session.Connected)
	select {
	case <-obs.lost:
		t.Fatal("lost closed while connected")
	default:
	}

	obs.OnState(session.Disconnected)
	obs.OnState(session.Disconnected)
	select {
	case <-obs.lost:
	default:
		t.Fatal("lost still open after disconnect")
	}
}

// synthOpener answers the dump request with the default patch over an
// in-memory link. The synth end is sent on ready once the dump is written.
func synthOpener(t *testing.T, ready chan<- net.Conn) session.Opener {
	return session.OpenerFunc(func(int) (io.ReadWriteCloser, error) {
		host, synth := net.Pipe()
		go func() {
			buf := make([]byte, 64)
			for {
				n, err := synth.Read(buf)
				if err != nil {
					return
				}
				if bytes.IndexByte(buf[:n], 'd') >= 0 {
					if _, err := synth.Write(patch.Encode(patch.Default())); err != nil {
						return
					}
					ready <- synth
				}
			}
		}()
		t.Cleanup(func() { synth.Close() })
		return host, nil
	})
}

func TestRunSessionStopsWhenConnectionLost(t *testing.T) {
	ready := make(chan net.Conn, 1)
	obs := newLogObserver(false)
	s := session.New(synthOpener(t, ready), obs, session.WithSettleDelay(time.Millisecond))

	running := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		errCh <- runSession(context.Background(), s, obs.lost, 115200, func(ctx context.Context, s *session.Session) error {
			close(running)
			<-ctx.Done()
			return ctx.Err()
		})
	}()

	var synth net.Conn
	select {
	case synth = <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("no dump request")
	}
	select {
	case <-running:
	case <-time.After(2 * time.Second):
		t.Fatal("session never synced")
	}
	synth.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, session.ErrTransportRead)
	case <-time.After(2 * time.Second):
		t.Fatal("runSession kept running after the connection was lost")
	}
	assert.Equal(t, session.Disconnected, s.State())
}

func TestRunSessionReturnsWhenDone(t *testing.T) {
	ready := make(chan net.Conn, 1)
	obs := newLogObserver(false)
	s := session.New(synthOpener(t, ready), obs, session.WithSettleDelay(time.Millisecond))

	var name string
	err := runSession(context.Background(), s, obs.lost, 115200, func(ctx context.Context, s *session.Session) error {
		name = s.Patch().Name
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, patch.Default().Name, name)
	assert.Equal(t, session.Disconnected, s.State())
}
