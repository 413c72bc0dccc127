package patch

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomPatch(r *rand.Rand) *Patch {
	p := Default()
	for _, path := range Paths() {
		if path == "name" {
			continue
		}
		if IsBool(path) {
			_ = p.Set(path, float64(r.Intn(2)))
			continue
		}
		_ = p.Set(path, float64(r.Intn(256)))
	}
	name := make([]byte, r.Intn(NameSize+1))
	for i := range name {
		name[i] = byte('A' + r.Intn(26))
	}
	p.Name = string(name)
	return p
}

func uniquelyAddressed(path string) bool {
	addr, ok := AddressOf(path)
	return ok && len(PathsAt(addr)) == 1
}

func TestPatchRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	for n := 0; n < 20; n++ {
		p := randomPatch(r)

		p2, err := Decode(Encode(p), p)
		require.NoError(t, err)
		assert.Equal(t, p.Name, p2.Name)

		for _, path := range Paths() {
			if path == "name" || !uniquelyAddressed(path) {
				continue
			}
			want, err := p.Get(path)
			require.NoError(t, err)
			got, err := p2.Get(path)
			require.NoError(t, err)
			assert.Equal(t, want, got, path)
		}
	}
}

func TestDefaultPatchRoundTrip(t *testing.T) {
	p := Default()
	p2, err := Decode(Encode(p), p)
	require.NoError(t, err)

	// Address 220 is shared with the filter EG velocity, which is written later.
	want := p.Clone()
	want.PitchMod.Temp = 220
	assert.Equal(t, want, p2)
}

func TestAddressFidelity(t *testing.T) {
	r := rand.New(rand.NewSource(2))

	for n := 0; n < 20; n++ {
		b := make([]byte, ImageSize)
		r.Read(b)

		p, err := Decode(b, Default())
		require.NoError(t, err)
		out := Encode(p)

		for _, param := range Parameters() {
			if param.Path == "name" {
				continue
			}
			addr := param.Address
			if IsBool(param.Path) {
				want := byte(0)
				if b[addr] != 0 {
					want = 1
				}
				assert.Equal(t, want, out[addr], param.Path)
				continue
			}
			assert.Equal(t, b[addr], out[addr], param.Path)
		}
	}
}

func TestAliasedFieldsLastWriterWins(t *testing.T) {
	p := Default()
	p.Oscillators[0].LevelL = 10
	p.Oscillators[0].LevelR = 20
	p.Filters[0].Cutoff1 = 5
	p.Filters[1].Cutoff1 = 9
	p.PitchMod.Temp = 33
	p.Filters[1].EGVelocity = 44

	image := Encode(p)
	assert.Equal(t, byte(20), image[32])
	assert.Equal(t, byte(9), image[77])
	assert.Equal(t, byte(44), image[220])

	p2, err := Decode(image, Default())
	require.NoError(t, err)
	assert.Equal(t, 20, p2.Oscillators[0].LevelL)
	assert.Equal(t, 20, p2.Oscillators[0].LevelR)
	assert.Equal(t, 9, p2.Filters[0].Cutoff1)
	assert.Equal(t, 9, p2.Filters[1].Cutoff1)
	assert.Equal(t, 44, p2.PitchMod.Temp)
	assert.Equal(t, 44, p2.Filters[0].EGVelocity)
}

func TestDecodeRejectsShortImage(t *testing.T) {
	base := Default()
	before := base.Clone()

	p, err := Decode(make([]byte, ImageSize-1), base)
	require.ErrorIs(t, err, ErrMalformedImage)
	assert.Nil(t, p)
	assert.Equal(t, before, base)

	_, err = Decode(make([]byte, ImageSize+1), base)
	require.ErrorIs(t, err, ErrMalformedImage)
}

func TestDecodeKeepsUnmappedFieldsFromBase(t *testing.T) {
	base := Default()
	base.PWMod.Rnd = 42
	base.VolumeMod.Rnd = 7

	p, err := Decode(make([]byte, ImageSize), base)
	require.NoError(t, err)
	assert.Equal(t, 42, p.PWMod.Rnd)
	assert.Equal(t, 7, p.VolumeMod.Rnd)
	assert.Equal(t, 0, p.Volume)
	assert.False(t, p.Oscillators[0].On)
	assert.Equal(t, "", p.Name)
}

func TestDecodePassesThroughOutOfDomainValues(t *testing.T) {
	image := make([]byte, ImageSize)
	image[11] = 200 // waveform index with no label
	image[1] = 7

	p, err := Decode(image, nil)
	require.NoError(t, err)
	assert.Equal(t, 200, p.Oscillators[0].Waveform)
	assert.True(t, p.Oscillators[0].On)
}

func TestEncodeClampsNumbers(t *testing.T) {
	p := Default()
	p.Volume = 300
	p.Pan = -5

	image := Encode(p)
	assert.Equal(t, byte(255), image[248])
	assert.Equal(t, byte(0), image[247])
}

func TestByteValue(t *testing.T) {
	assert.Equal(t, byte(13), ByteValue(12.5))
	assert.Equal(t, byte(12), ByteValue(12.4))
	assert.Equal(t, byte(255), ByteValue(999))
	assert.Equal(t, byte(0), ByteValue(-0.4))
	assert.Equal(t, byte(0), ByteValue(-20))
}

func TestEncodeName(t *testing.T) {
	p := Default()
	p.Name = "Bass"
	image := Encode(p)
	assert.Equal(t, "Bass"+strings.Repeat(" ", 20), string(image[480:504]))

	assert.Equal(t, strings.Repeat("x", NameSize), string(EncodeName(strings.Repeat("x", 30))))
	assert.Equal(t, "caf?", strings.TrimRight(string(EncodeName("café")), " "))

	p2, err := Decode(image, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bass", p2.Name)
}

func TestEncodeIntoPreservesReservedBytes(t *testing.T) {
	prior := make([]byte, ImageSize)
	prior[8] = 0xAA
	prior[505] = 0x55
	prior[248] = 0x01

	p := Default()
	require.NoError(t, EncodeInto(prior, p))
	assert.Equal(t, byte(0xAA), prior[8])
	assert.Equal(t, byte(0x55), prior[505])
	assert.Equal(t, byte(128), prior[248])

	assert.Equal(t, byte(0), Encode(p)[8])
	assert.ErrorIs(t, EncodeInto(make([]byte, 10), p), ErrMalformedImage)
}

func TestGetSet(t *testing.T) {
	p := Default()

	require.NoError(t, p.Set("oscillators.2.level", 12.6))
	assert.Equal(t, 13, p.Oscillators[2].Level)

	require.NoError(t, p.Set("oscillators.1.on", 1))
	assert.True(t, p.Oscillators[1].On)

	require.NoError(t, p.Set("envelopes.pitch.attack_time", 77))
	assert.Equal(t, 77, p.Envelopes.Pitch.AttackTime)

	v, err := p.Get("effects.gate.on")
	require.NoError(t, err)
	assert.Equal(t, float64(0), v)

	assert.ErrorIs(t, p.Set("oscillators.9.level", 1), ErrUnknownPath)
	_, err = p.Get("name")
	assert.ErrorIs(t, err, ErrUnknownPath)
}

func TestCloneIsIndependent(t *testing.T) {
	p := Default()
	c := p.Clone()
	c.StepSequencer.StepValues[3] = 1
	c.Oscillators[0].Level = 1
	assert.Equal(t, 60, p.StepSequencer.StepValues[3])
	assert.Equal(t, 255, p.Oscillators[0].Level)
	assert.False(t, reflect.DeepEqual(p, c))
}
