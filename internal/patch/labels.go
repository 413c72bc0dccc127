package patch

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"gitlab.com/gomidi/midi/v2"
)

var (
	WaveformOptions = []string{
		"Saw Up", "Saw Down", "Square/Pulse", "Triangle", "Sine", "Noise",
		"SawStack 3 Stereo", "SawStack 7 Mono", "SawStack 7 Stereo",
	}
	FilterTypeOptions = []string{
		"Bypass", "1-pole LP", "2-pole LP", "3-pole LP", "4-pole LP",
		"1-pole HP", "2-pole HP", "3-pole HP", "4-pole HP",
		"2-pole BP", "4-pole BP", "2-pole BR", "4-pole BR",
		"Serial: 2LP -> 2LP", "Serial: 2LP -> 2BP", "Serial: 2LP -> 2HP",
		"Parallel: 2x LP", "Parallel: LP & BP", "Parallel: LP & HP",
		"Parallel: BP & BP", "Parallel: BP & HP", "Parallel: HP & HP",
	}
	FilterRoutingOptions = []string{"Two parallel stereo", "Independent L/R"}
	CurveOptions         = []string{"Decreases", "Increases"}
	LFOWaveOptions       = []string{
		"Triangle", "Square", "Saw Up", "Saw Down", "Sine",
		"Sine(x)+Sine(2x)", "Sine(x)+Sine(3x)", "Sine(x)^3", "Guitar", "Random",
	}
	LFOSyncOptions        = []string{"Single, Free", "Single, Key", "Multi, Free", "Multi, Key"}
	ArpModeOptions        = []string{"Off", "Up", "Down", "Up/Down", "As Played", "Random"}
	PortaModeOptions      = []string{"Off", "Always", "Fingered"}
	LegatoModeOptions     = []string{"Poly", "Mono"}
	OscPhaseOptions       = []string{"0°", "90°", "180°"}
	DistortionTypeOptions = []string{"Hard Clip", "Soft Clip", "Tube 12AX", "Tube DSL"}
	BandwidthOptions      = []string{"48kHz", "20kHz", "18kHz", "16kHz", "14kHz", "12kHz", "10kHz", "8kHz"}
	ChorusModeOptions     = []string{"Chorus Long", "Chorus Short", "Flanger Long", "Flanger Short"}
	PhaserModeOptions     = []string{"Mono", "Stereo", "Cross"}
	DelayModeOptions      = []string{"Stereo", "Cross", "Bounce"}
	ReverbModeOptions     = []string{"Plate", "Hall"}
	GateCurveOptions      = []string{"S-Shape 1", "S-Shape 2"}
	FXRoutingOptions      = []string{"Routing 1 (Pre-Delay)", "Routing 2 (Post-Delay)", "Bypass"}
	GainOptions           = []string{"0dB", "6dB", "12dB", "18dB"}
)

// optionsByPattern keys enumerated fields by path, with array indexes as "*".
var optionsByPattern = map[string][]string{
	"oscillators.*.waveform":         WaveformOptions,
	"oscillators.*.key_l_curve":      CurveOptions,
	"oscillators.*.key_r_curve":      CurveOptions,
	"osc_phase":                      OscPhaseOptions,
	"filter_type":                    FilterTypeOptions,
	"filter_routing":                 FilterRoutingOptions,
	"lfos.*.wave":                    LFOWaveOptions,
	"lfos.*.sync":                    LFOSyncOptions,
	"arpeggiator.mode":               ArpModeOptions,
	"porta_mode":                     PortaModeOptions,
	"legato_mode":                    LegatoModeOptions,
	"effects.bandwidth.value":        BandwidthOptions,
	"effects.distortion.type":        DistortionTypeOptions,
	"effects.distortion.filter_post": BandwidthOptions,
	"effects.chorus.mode":            ChorusModeOptions,
	"effects.phaser.mode":            PhaserModeOptions,
	"effects.delay.mode":             DelayModeOptions,
	"effects.reverb.mode":            ReverbModeOptions,
	"effects.gate.curve":             GateCurveOptions,
	"fx_routing":                     FXRoutingOptions,
	"gain_pre":                       GainOptions,
	"gain_post":                      GainOptions,
}

func pattern(path string) string {
	parts := strings.Split(path, ".")
	for i, p := range parts {
		if _, err := strconv.Atoi(p); err == nil {
			parts[i] = "*"
		}
	}
	return strings.Join(parts, ".")
}

// Options returns the labels of an enumerated field, or nil.
func Options(path string) []string {
	return optionsByPattern[pattern(path)]
}

// Label renders a field value for display. Enum indexes without a label and
// non-enum fields are shown as plain numbers.
func Label(path string, value int) string {
	if strings.HasPrefix(path, "step_sequencer.step_values.") {
		return StepName(value)
	}
	if IsEnvMask(path) {
		return EnvMaskName(value)
	}
	if IsBool(path) {
		if value != 0 {
			return "on"
		}
		return "off"
	}
	opts := Options(path)
	if value >= 0 && value < len(opts) {
		return opts[value]
	}
	return strconv.Itoa(value)
}

// Envelope target bits in EGLoop, EGLoopSeg and EGRestart.
const (
	EnvAmp    = 0
	EnvFilter = 1
	EnvPitch  = 2
)

var envBitNames = [...]string{EnvAmp: "amp", EnvFilter: "filter", EnvPitch: "pitch"}

// envMaskPaths hold one bit per envelope.
var envMaskPaths = map[string]bool{"eg_loop": true, "eg_restart": true}

// IsEnvMask reports whether path is an envelope bitmask field.
func IsEnvMask(path string) bool {
	return envMaskPaths[path]
}

// EnvMaskName renders an envelope mask as "pitch+amp", or "none".
func EnvMaskName(mask int) string {
	if mask < 0 || mask >= 1<<len(envBitNames) {
		return strconv.Itoa(mask)
	}
	var names []string
	for bit := len(envBitNames) - 1; bit >= 0; bit-- {
		if Bit(mask, bit) {
			names = append(names, envBitNames[bit])
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "+")
}

// ParseEnvMask reads an envelope mask such as "pitch+amp" or "none".
func ParseEnvMask(text string) (int, error) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "none" || t == "" {
		return 0, nil
	}
	mask := 0
	for _, name := range strings.FieldsFunc(t, func(r rune) bool { return r == '+' || r == ',' }) {
		bit := slices.Index(envBitNames[:], strings.TrimSpace(name))
		if bit < 0 {
			return 0, fmt.Errorf("unknown envelope %q (want pitch, filter or amp)", name)
		}
		mask = WithBit(mask, bit, true)
	}
	return mask, nil
}

// Bit reports whether bit is set in mask.
func Bit(mask, bit int) bool {
	return mask&(1<<bit) != 0
}

// WithBit returns mask with bit set or cleared.
func WithBit(mask, bit int, on bool) int {
	if on {
		return mask | (1 << bit)
	}
	return mask &^ (1 << bit)
}

// Step sequencer values other than notes 0–127.
const (
	StepGateOn  = 200
	StepGateOff = 201
	StepNoteOff = 255
)

// StepName renders a step value: a note name, gate on/off, or note off.
func StepName(v int) string {
	switch {
	case v >= 0 && v <= 127:
		// gomidi numbers octaves from 0; steps use C4 = 60.
		return fmt.Sprintf("%s%d", midi.Note(uint8(v)).Name(), v/12-1)
	case v == StepGateOn:
		return "gate-on"
	case v == StepGateOff:
		return "gate-off"
	case v == StepNoteOff:
		return "off"
	default:
		return strconv.Itoa(v)
	}
}

// ParseStep reads a step token: a number, a note name such as C4 or F#3
// (C4 = 60), "on", "gate-off"/"hold", or "off"/"rest".
func ParseStep(tok string) (int, error) {
	t := strings.TrimSpace(tok)
	if t == "" {
		return 0, fmt.Errorf("empty token")
	}

	if n, err := strconv.Atoi(t); err == nil {
		if n < 0 || n > 255 {
			return 0, fmt.Errorf("step value out of range: %d", n)
		}
		return n, nil
	}

	switch strings.ToLower(t) {
	case "on", "gate-on":
		return StepGateOn, nil
	case "hold", "gate-off":
		return StepGateOff, nil
	case "off", "rest", "r":
		return StepNoteOff, nil
	}

	if len(t) < 2 {
		return 0, fmt.Errorf("too short")
	}

	base := unicode.ToUpper(rune(t[0]))
	accidental := 0
	rest := t[1:]

	switch rest[0] {
	case '#':
		accidental = 1
		rest = rest[1:]
	case 'b':
		accidental = -1
		rest = rest[1:]
	}

	if rest == "" {
		return 0, fmt.Errorf("missing octave")
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid octave: %w", err)
	}

	var semitone int
	switch base {
	case 'C':
		semitone = 0
	case 'D':
		semitone = 2
	case 'E':
		semitone = 4
	case 'F':
		semitone = 5
	case 'G':
		semitone = 7
	case 'A':
		semitone = 9
	case 'B':
		semitone = 11
	default:
		return 0, fmt.Errorf("invalid note letter %q", base)
	}

	n := 12*(octave+1) + semitone + accidental
	if n < 0 || n > 127 {
		return 0, fmt.Errorf("note out of range: %d", n)
	}
	return n, nil
}
