package patch

// ImageSize is the size of a complete XVA1 patch image, on the wire and on disk.
const ImageSize = 512

const (
	nameAddr = 480 // Patch name – 24 ASCII chars (480–503)
	NameSize = 24
)

type Arpeggiator struct {
	Mode    int `json:"mode"`
	Tempo   int `json:"tempo"`
	Mul     int `json:"mul"`
	Octaves int `json:"octaves"`
}

type StepSequencer struct {
	On         bool    `json:"on"`
	Velocity   int     `json:"velocity"`
	Steps      int     `json:"steps"`
	Tempo      int     `json:"tempo"`
	Mul        int     `json:"mul"`
	Transpose  int     `json:"transpose"`
	StepValues [16]int `json:"step_values"` // see StepName
}

// DirectModulation routes performance controllers straight to a destination.
type DirectModulation struct {
	After  int `json:"after"`
	Breath int `json:"breath"`
	Foot   int `json:"foot"`
	Temp   int `json:"temp"`
	VC0    int `json:"vc0"`
	VC1    int `json:"vc1"`
	Rnd    int `json:"rnd"`
}

// LFOModulation scales an LFO depth by performance controllers.
type LFOModulation struct {
	After  int `json:"after"`
	Wheel  int `json:"wheel"`
	Breath int `json:"breath"`
	Foot   int `json:"foot"`
}

type Oscillator struct {
	On                  bool `json:"on"`
	Waveform            int  `json:"waveform"`
	PulseWidth          int  `json:"pulse_width"`
	SawStackDetune      int  `json:"saw_stack_detune"`
	Level               int  `json:"level"`
	LevelL              int  `json:"level_l"`
	LevelR              int  `json:"level_r"`
	VelocitySensitivity int  `json:"velocity_sensitivity"`
	KeyBreakpoint       int  `json:"key_breakpoint"`
	KeyLDepth           int  `json:"key_l_depth"`
	KeyRDepth           int  `json:"key_r_depth"`
	KeyLCurve           int  `json:"key_l_curve"`
	KeyRCurve           int  `json:"key_r_curve"`
	AmpModSensitivity   int  `json:"amp_mod_sensitivity"`
	PitchModSensitivity int  `json:"pitch_mod_sensitivity"`
	Transpose           int  `json:"transpose"`
	Tune                int  `json:"tune"`
	Drift               int  `json:"drift"`
}

type Filter struct {
	Cutoff1      int `json:"cutoff1"`
	Cutoff2      int `json:"cutoff2"`
	Resonance1   int `json:"resonance1"`
	Resonance2   int `json:"resonance2"`
	KbdTrack     int `json:"kbd_track"`
	EGDepth      int `json:"eg_depth"`
	EGVelocity   int `json:"eg_velocity"`
	VelocityReso int `json:"velocity_reso"`
	KbdTrackReso int `json:"kbd_track_reso"`
	Drive        int `json:"drive"`
}

type LFO struct {
	Wave  int `json:"wave"`
	Range int `json:"range"`
	Speed int `json:"speed"`
	Sync  int `json:"sync"`
	Fade  int `json:"fade"`
}

// Envelope is the 7-stage DAD1D2SR1R2 generator. Levels are L0–L5, times R0–R5.
type Envelope struct {
	Delay         int `json:"delay"`
	StartLevel    int `json:"start_level"`
	AttackLevel   int `json:"attack_level"`
	Decay1Level   int `json:"decay1_level"`
	SustainLevel  int `json:"sustain_level"`
	Release1Level int `json:"release1_level"`
	Release2Level int `json:"release2_level"`
	AttackTime    int `json:"attack_time"`
	Decay1Time    int `json:"decay1_time"`
	Decay2Time    int `json:"decay2_time"`
	Release1Time  int `json:"release1_time"`
	Release2Time  int `json:"release2_time"`
	RateKey       int `json:"rate_key"`
}

type PitchEnvelope struct {
	Envelope
	Range int `json:"range"`
	Velo  int `json:"velo"`
}

type Envelopes struct {
	Pitch  PitchEnvelope `json:"pitch"`
	Filter Envelope      `json:"filter"`
	Amp    Envelope      `json:"amp"`
}

type Bandwidth struct {
	Value int `json:"value"`
}

type Distortion struct {
	On         bool `json:"on"`
	Type       int  `json:"type"`
	GainPre    int  `json:"gain_pre"`
	GainPost   int  `json:"gain_post"`
	FilterPost int  `json:"filter_post"`
}

type Depth struct {
	Depth int `json:"depth"`
}

type PostFilter struct {
	Lo int `json:"lo"`
	Hi int `json:"hi"`
}

type Chorus struct {
	Dry      int `json:"dry"`
	Wet      int `json:"wet"`
	Mode     int `json:"mode"`
	Speed    int `json:"speed"`
	Depth    int `json:"depth"`
	Feedback int `json:"feedback"`
	LRPhase  int `json:"lr_phase"`
}

type Phaser struct {
	Dry      int `json:"dry"`
	Wet      int `json:"wet"`
	Mode     int `json:"mode"`
	Speed    int `json:"speed"`
	Depth    int `json:"depth"`
	Offset   int `json:"offset"`
	Stages   int `json:"stages"`
	Feedback int `json:"feedback"`
	LRPhase  int `json:"lr_phase"`
}

type AmpMod struct {
	Depth   int `json:"depth"`
	Speed   int `json:"speed"`
	Range   int `json:"range"`
	LRPhase int `json:"lr_phase"`
}

type Delay struct {
	Dry        int  `json:"dry"`
	Wet        int  `json:"wet"`
	Mode       int  `json:"mode"`
	Time       int  `json:"time"`
	Feedback   int  `json:"feedback"`
	Lo         int  `json:"lo"`
	Hi         int  `json:"hi"`
	Tempo      int  `json:"tempo"`
	Mul        int  `json:"mul"`
	Div        int  `json:"div"`
	ModSpeed   int  `json:"mod_speed"`
	ModDepth   int  `json:"mod_depth"`
	Smear      int  `json:"smear"`
	DoublingOn bool `json:"doubling_on"`
}

type EarlyReflections struct {
	Dry      int `json:"dry"`
	Wet      int `json:"wet"`
	Room     int `json:"room"`
	Taps     int `json:"taps"`
	Feedback int `json:"feedback"`
}

type Reverb struct {
	Dry      int `json:"dry"`
	Wet      int `json:"wet"`
	Mode     int `json:"mode"`
	Decay    int `json:"decay"`
	Damp     int `json:"damp"`
	HPF      int `json:"hpf"`
	ModSpeed int `json:"mod_speed"`
	ModDepth int `json:"mod_depth"`
}

type Gate struct {
	On      bool `json:"on"`
	Curve   int  `json:"curve"`
	Attack  int  `json:"attack"`
	Release int  `json:"release"`
}

type Effects struct {
	Bandwidth        Bandwidth        `json:"bandwidth"`
	Distortion       Distortion       `json:"distortion"`
	Bitcrusher       Depth            `json:"bitcrusher"`
	Decimator        Depth            `json:"decimator"`
	Filter           PostFilter       `json:"filter"`
	Chorus           Chorus           `json:"chorus"`
	Phaser           Phaser           `json:"phaser"`
	AmpMod           AmpMod           `json:"amp_mod"`
	Delay            Delay            `json:"delay"`
	EarlyReflections EarlyReflections `json:"early_reflections"`
	Reverb           Reverb           `json:"reverb"`
	Gate             Gate             `json:"gate"`
}

// Patch is one complete XVA1 program.
//
// Field declaration order is significant: it is the canonical traversal order
// used by Encode, so when two fields share an address the later one wins.
type Patch struct {
	Name string `json:"name"`

	// Global
	Transpose      int `json:"transpose"`
	BendUp         int `json:"bend_up"`
	BendDown       int `json:"bend_down"`
	LegatoMode     int `json:"legato_mode"`
	PortaMode      int `json:"porta_mode"`
	PortaTime      int `json:"porta_time"`
	Volume         int `json:"volume"`
	Pan            int `json:"pan"`
	VelocityOffset int `json:"velocity_offset"`
	Tuning         int `json:"tuning"`
	TempOffset     int `json:"temp_offset"`

	Arpeggiator   Arpeggiator   `json:"arpeggiator"`
	StepSequencer StepSequencer `json:"step_sequencer"`

	// Performance modulation
	PitchMod     DirectModulation `json:"pitch_mod"`
	PWMod        DirectModulation `json:"pw_mod"`
	CutoffMod    DirectModulation `json:"cutoff_mod"`
	VolumeMod    DirectModulation `json:"volume_mod"`
	PitchLFOMod  LFOModulation    `json:"pitch_lfo_mod"`
	AmpLFOMod    LFOModulation    `json:"amp_lfo_mod"`
	CutoffLFOMod LFOModulation    `json:"cutoff_lfo_mod"`
	PWLFOMod     LFOModulation    `json:"pw_lfo_mod"`

	Oscillators [4]Oscillator `json:"oscillators"`
	OscSync     int           `json:"osc_sync"` // bit per oscillator
	OscMode     int           `json:"osc_mode"` // bit per oscillator
	OscPhase    int           `json:"osc_phase"`
	RingMod34   bool          `json:"ring_mod34"`

	// Filter 2 shares every hardware address with filter 1.
	Filters        [2]Filter `json:"filters"`
	FilterType     int       `json:"filter_type"`
	FilterVelocity int       `json:"filter_velocity"`
	FilterRouting  int       `json:"filter_routing"`

	LFOs            [2]LFO `json:"lfos"`
	LFO1DepthPitch  int    `json:"lfo1_depth_pitch"`
	LFO1DepthAmp    int    `json:"lfo1_depth_amp"`
	LFO2DepthPW     int    `json:"lfo2_depth_pw"`
	LFO2DepthCutoff int    `json:"lfo2_depth_cutoff"`

	Envelopes Envelopes `json:"envelopes"`
	EGLoop    int       `json:"eg_loop"`     // EnvPitch/EnvFilter/EnvAmp bits
	EGLoopSeg int       `json:"eg_loop_seg"` // 0=attack, 1=decay1 per bit
	EGRestart int       `json:"eg_restart"`

	Effects     Effects `json:"effects"`
	FXRouting   int     `json:"fx_routing"`
	OutputLevel int     `json:"output_level"`
	GainPre     int     `json:"gain_pre"`
	GainPost    int     `json:"gain_post"`
}

// Clone returns a deep copy. Patch holds only values and fixed-size arrays.
func (p *Patch) Clone() *Patch {
	c := *p
	return &c
}
