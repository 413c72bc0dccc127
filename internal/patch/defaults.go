package patch

// Default returns the compiled-in starting patch used before the first sync.
func Default() *Patch {
	p := &Patch{
		Name:           "Default Patch",
		Transpose:      128,
		BendUp:         2,
		BendDown:       2,
		Volume:         128,
		Pan:            128,
		Arpeggiator:    Arpeggiator{Mode: 0, Tempo: 120, Mul: 1, Octaves: 2},
		StepSequencer:  StepSequencer{Velocity: 100, Steps: 16, Tempo: 120, Mul: 4, Transpose: 128},
		OscSync:        15,
		FilterType:     1,
		LFO1DepthPitch: 5,
		OutputLevel:    160,
		GainPre:        2,
		GainPost:       2,
	}

	for i := range p.StepSequencer.StepValues {
		p.StepSequencer.StepValues[i] = 60
	}

	direct := DirectModulation{After: 128, Breath: 128, Foot: 128, Temp: 128, VC0: 128, VC1: 128}
	p.PitchMod, p.PWMod, p.CutoffMod, p.VolumeMod = direct, direct, direct, direct
	p.PitchLFOMod = LFOModulation{Wheel: 72}
	p.CutoffLFOMod = LFOModulation{Wheel: 77}

	for i := range p.Oscillators {
		p.Oscillators[i] = Oscillator{
			On:                  i == 0,
			Waveform:            11,
			PulseWidth:          128,
			Level:               255,
			LevelL:              255,
			LevelR:              255,
			VelocitySensitivity: 40,
			KeyBreakpoint:       60,
			AmpModSensitivity:   255,
			PitchModSensitivity: 255,
			Transpose:           128,
			Tune:                128,
			Drift:               255,
		}
	}

	for i := range p.Filters {
		p.Filters[i] = Filter{
			Cutoff1:      36,
			KbdTrack:     75,
			EGDepth:      150,
			EGVelocity:   220,
			VelocityReso: 128,
			KbdTrackReso: 128,
		}
	}

	for i := range p.LFOs {
		p.LFOs[i] = LFO{Wave: 0, Range: 1, Speed: 128, Sync: 3, Fade: 255}
	}

	p.Envelopes.Pitch.Envelope = Envelope{
		Delay: 110, StartLevel: 80, AttackLevel: 85, Decay1Level: 90, SustainLevel: 95, Release1Level: 100, Release2Level: 105,
		AttackTime: 115, Decay1Time: 120, Decay2Time: 125, Release1Time: 130, Release2Time: 135,
	}
	p.Envelopes.Filter = Envelope{
		Delay: 111, StartLevel: 81, AttackLevel: 86, Decay1Level: 91, SustainLevel: 96, Release1Level: 101, Release2Level: 106,
		AttackTime: 116, Decay1Time: 121, Decay2Time: 126, Release1Time: 131, Release2Time: 136,
	}
	p.Envelopes.Amp = Envelope{
		Delay: 112, StartLevel: 82, AttackLevel: 87, Decay1Level: 92, SustainLevel: 97, Release1Level: 102, Release2Level: 107,
		AttackTime: 117, Decay1Time: 122, Decay2Time: 127, Release1Time: 132, Release2Time: 137,
	}

	p.Effects = Effects{
		Distortion:       Distortion{GainPre: 50, GainPost: 50, FilterPost: 4},
		Filter:           PostFilter{Lo: 255, Hi: 0},
		Chorus:           Chorus{Dry: 255, Wet: 180, Speed: 30, Depth: 150, Feedback: 100, LRPhase: 128},
		Phaser:           Phaser{Dry: 255, Speed: 100, Depth: 30, Offset: 100, Stages: 4, Feedback: 100, LRPhase: 128},
		AmpMod:           AmpMod{Speed: 150, LRPhase: 128},
		Delay:            Delay{Dry: 255, Wet: 100, Time: 100, Feedback: 30, Lo: 255, Tempo: 120, Mul: 1, Div: 1, ModSpeed: 100, ModDepth: 5},
		EarlyReflections: EarlyReflections{Dry: 255},
		Reverb:           Reverb{Dry: 255, Decay: 200, Damp: 200, ModSpeed: 100, ModDepth: 10},
	}

	return p
}
