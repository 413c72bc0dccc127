package patch

import (
	"fmt"
	"sort"
	"strconv"
)

// Parameter ties a field path to its hardware address (the XVA1 parameter number).
type Parameter struct {
	Path    string `json:"path"`
	Address int    `json:"address"`
}

// sectionField describes a field repeated across the instances of a section.
// Instance i lives at base + i*stride; a zero stride means all instances
// share one address.
type sectionField struct {
	name   string
	base   int
	stride int
}

// Index mappings into the 512-byte image (XVA1 parameter list).
var oscFieldMapping = []sectionField{
	{name: "on", base: 1, stride: 1},
	{name: "waveform", base: 11, stride: 1},
	{name: "pulse_width", base: 15, stride: 1},
	{name: "saw_stack_detune", base: 19, stride: 1},
	{name: "transpose", base: 23, stride: 1},
	{name: "tune", base: 27, stride: 1},
	{name: "level", base: 31, stride: 2},
	{name: "level_l", base: 32, stride: 2},
	{name: "level_r", base: 32, stride: 2}, // R is stored with L
	{name: "velocity_sensitivity", base: 39, stride: 1},
	{name: "key_breakpoint", base: 43, stride: 1},
	{name: "key_l_depth", base: 47, stride: 1},
	{name: "key_r_depth", base: 51, stride: 1},
	{name: "key_l_curve", base: 55, stride: 1},
	{name: "key_r_curve", base: 59, stride: 1},
	{name: "pitch_mod_sensitivity", base: 63, stride: 1},
	{name: "amp_mod_sensitivity", base: 67, stride: 1},
	{name: "drift", base: 260, stride: 1},
}

// Both filters are views of the same hardware controls.
var filterFieldMapping = []sectionField{
	{name: "cutoff1", base: 77},
	{name: "cutoff2", base: 78},
	{name: "resonance1", base: 79},
	{name: "resonance2", base: 79},
	{name: "kbd_track", base: 74},
	{name: "eg_depth", base: 75},
	{name: "eg_velocity", base: 220},
	{name: "velocity_reso", base: 76},
	{name: "kbd_track_reso", base: 277},
	{name: "drive", base: 275},
}

var lfoFieldMapping = []sectionField{
	{name: "wave", base: 160, stride: 10},
	{name: "range", base: 161, stride: 10},
	{name: "speed", base: 162, stride: 10},
	{name: "sync", base: 163, stride: 10},
	{name: "fade", base: 164, stride: 10},
}

// Envelope instances are pitch, filter, amp; their stages interleave.
var envelopeFieldMapping = []sectionField{
	{name: "start_level", base: 80, stride: 1},
	{name: "attack_level", base: 85, stride: 1},
	{name: "decay1_level", base: 90, stride: 1},
	{name: "sustain_level", base: 95, stride: 1},
	{name: "release1_level", base: 100, stride: 1},
	{name: "release2_level", base: 105, stride: 1},
	{name: "delay", base: 110, stride: 1},
	{name: "attack_time", base: 115, stride: 1},
	{name: "decay1_time", base: 120, stride: 1},
	{name: "decay2_time", base: 125, stride: 1},
	{name: "release1_time", base: 130, stride: 1},
	{name: "release2_time", base: 135, stride: 1},
	{name: "rate_key", base: 0},
}

var envelopeNames = []string{"pitch", "filter", "amp"}

var stepValuesAddr = 434

var scalarMapping = []Parameter{
	{"name", nameAddr},

	// Global
	{"transpose", 241},
	{"bend_up", 242},
	{"bend_down", 243},
	{"legato_mode", 244},
	{"porta_mode", 245},
	{"porta_time", 246},
	{"pan", 247},
	{"volume", 248},
	{"velocity_offset", 249},
	{"tuning", 251},
	{"temp_offset", 239},

	{"arpeggiator.mode", 450},
	{"arpeggiator.tempo", 451},
	{"arpeggiator.mul", 453},
	{"arpeggiator.octaves", 454},

	{"step_sequencer.on", 428},
	{"step_sequencer.velocity", 429},
	{"step_sequencer.steps", 430},
	{"step_sequencer.tempo", 431},
	{"step_sequencer.mul", 432},
	{"step_sequencer.transpose", 433},

	// LFO modulators
	{"pitch_lfo_mod.after", 180},
	{"pitch_lfo_mod.wheel", 181},
	{"pitch_lfo_mod.breath", 182},
	{"pitch_lfo_mod.foot", 183},
	{"pw_lfo_mod.after", 184},
	{"pw_lfo_mod.wheel", 185},
	{"pw_lfo_mod.breath", 186},
	{"pw_lfo_mod.foot", 187},
	{"cutoff_lfo_mod.after", 188},
	{"cutoff_lfo_mod.wheel", 189},
	{"cutoff_lfo_mod.breath", 190},
	{"cutoff_lfo_mod.foot", 191},
	{"amp_lfo_mod.after", 192},
	{"amp_lfo_mod.wheel", 193},
	{"amp_lfo_mod.breath", 194},
	{"amp_lfo_mod.foot", 195},

	// Direct modulations. Only pitch has a random source.
	{"pitch_mod.after", 200},
	{"pitch_mod.breath", 201},
	{"pitch_mod.foot", 202},
	{"pitch_mod.rnd", 203},
	{"pitch_mod.temp", 220},
	{"pitch_mod.vc0", 221},
	{"pitch_mod.vc1", 222},
	{"pw_mod.after", 204},
	{"pw_mod.breath", 205},
	{"pw_mod.foot", 206},
	{"pw_mod.temp", 207},
	{"pw_mod.vc0", 224},
	{"pw_mod.vc1", 225},
	{"cutoff_mod.after", 208},
	{"cutoff_mod.breath", 209},
	{"cutoff_mod.foot", 210},
	{"cutoff_mod.temp", 211},
	{"cutoff_mod.vc0", 226},
	{"cutoff_mod.vc1", 227},
	{"volume_mod.after", 212},
	{"volume_mod.breath", 213},
	{"volume_mod.foot", 214},
	{"volume_mod.temp", 215},
	{"volume_mod.vc0", 230},
	{"volume_mod.vc1", 231},

	{"osc_sync", 5},
	{"osc_mode", 6},
	{"osc_phase", 7},
	{"ring_mod34", 271},

	{"filter_type", 71},
	{"filter_velocity", 73},
	{"filter_routing", 278},

	{"lfo1_depth_pitch", 165},
	{"lfo1_depth_amp", 166},
	{"lfo2_depth_pw", 175},
	{"lfo2_depth_cutoff", 176},

	{"envelopes.pitch.range", 148},
	{"envelopes.pitch.velo", 149},
	{"eg_loop", 145},
	{"eg_loop_seg", 146},
	{"eg_restart", 147},

	{"effects.bandwidth.value", 340},
	{"effects.distortion.on", 350},
	{"effects.distortion.gain_pre", 351},
	{"effects.distortion.gain_post", 352},
	{"effects.distortion.filter_post", 353},
	{"effects.distortion.type", 354},
	{"effects.bitcrusher.depth", 380},
	{"effects.decimator.depth", 370},
	{"effects.filter.lo", 320},
	{"effects.filter.hi", 321},
	{"effects.chorus.dry", 360},
	{"effects.chorus.wet", 361},
	{"effects.chorus.mode", 362},
	{"effects.chorus.speed", 363},
	{"effects.chorus.depth", 364},
	{"effects.chorus.feedback", 365},
	{"effects.chorus.lr_phase", 366},
	{"effects.phaser.dry", 310},
	{"effects.phaser.wet", 311},
	{"effects.phaser.mode", 312},
	{"effects.phaser.speed", 313},
	{"effects.phaser.depth", 314},
	{"effects.phaser.feedback", 315},
	{"effects.phaser.offset", 316},
	{"effects.phaser.stages", 317},
	{"effects.phaser.lr_phase", 318},
	{"effects.amp_mod.depth", 330},
	{"effects.amp_mod.speed", 331},
	{"effects.amp_mod.range", 332},
	{"effects.amp_mod.lr_phase", 333},
	{"effects.delay.smear", 291},
	{"effects.delay.doubling_on", 292},
	{"effects.delay.mod_speed", 298},
	{"effects.delay.mod_depth", 299},
	{"effects.delay.dry", 300},
	{"effects.delay.wet", 301},
	{"effects.delay.mode", 302},
	{"effects.delay.time", 303},
	{"effects.delay.feedback", 304},
	{"effects.delay.lo", 305},
	{"effects.delay.hi", 306},
	{"effects.delay.tempo", 307},
	{"effects.delay.mul", 308},
	{"effects.delay.div", 309},
	{"effects.early_reflections.taps", 293},
	{"effects.early_reflections.dry", 294},
	{"effects.early_reflections.wet", 295},
	{"effects.early_reflections.room", 296},
	{"effects.early_reflections.feedback", 297},
	{"effects.reverb.dry", 390},
	{"effects.reverb.wet", 391},
	{"effects.reverb.mode", 392},
	{"effects.reverb.decay", 393},
	{"effects.reverb.damp", 394},
	{"effects.reverb.mod_speed", 395},
	{"effects.reverb.mod_depth", 396},
	{"effects.reverb.hpf", 397},
	{"effects.gate.on", 385},
	{"effects.gate.curve", 386},
	{"effects.gate.attack", 387},
	{"effects.gate.release", 388},

	{"fx_routing", 508},
	{"output_level", 509},
	{"gain_pre", 510},
	{"gain_post", 511},
}

var (
	addresses = buildAddressTable()
	aliases   = buildAliasTable()
)

func buildAddressTable() map[string]int {
	table := make(map[string]int, 512)
	add := func(path string, addr int) {
		if addr < 0 || addr >= ImageSize {
			panic(fmt.Sprintf("patch: address %d for %s outside the image", addr, path))
		}
		if _, dup := table[path]; dup {
			panic(fmt.Sprintf("patch: %s mapped twice", path))
		}
		table[path] = addr
	}
	expand := func(section string, names []string, mapping []sectionField) {
		for i, instance := range names {
			for _, m := range mapping {
				add(section+"."+instance+"."+m.name, m.base+i*m.stride)
			}
		}
	}

	for _, p := range scalarMapping {
		add(p.Path, p.Address)
	}
	expand("oscillators", indexNames(4), oscFieldMapping)
	expand("filters", indexNames(2), filterFieldMapping)
	expand("lfos", indexNames(2), lfoFieldMapping)
	expand("envelopes", envelopeNames, envelopeFieldMapping)
	for i := 0; i < 16; i++ {
		add("step_sequencer.step_values."+strconv.Itoa(i), stepValuesAddr+i)
	}
	return table
}

func buildAliasTable() map[int][]string {
	table := make(map[int][]string)
	for _, f := range fields {
		if addr, ok := addresses[f.path]; ok {
			table[addr] = append(table[addr], f.path)
		}
	}
	return table
}

func indexNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = strconv.Itoa(i)
	}
	return names
}

// AddressOf returns the hardware address of a field path.
func AddressOf(path string) (int, bool) {
	addr, ok := addresses[path]
	return addr, ok
}

// PathsAt lists every field path stored at addr, in canonical order.
// More than one path means the address is aliased.
func PathsAt(addr int) []string {
	return append([]string(nil), aliases[addr]...)
}

// AliasedAddresses returns the addresses observed by more than one field, ascending.
func AliasedAddresses() []int {
	var out []int
	for addr, paths := range aliases {
		if len(paths) > 1 {
			out = append(out, addr)
		}
	}
	sort.Ints(out)
	return out
}

// Parameters returns the whole map in canonical field order.
func Parameters() []Parameter {
	out := make([]Parameter, 0, len(addresses))
	for _, f := range fields {
		if addr, ok := addresses[f.path]; ok {
			out = append(out, Parameter{Path: f.path, Address: addr})
		}
	}
	return out
}
