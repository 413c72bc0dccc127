package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fields that legitimately have no hardware address.
var unmappedPaths = map[string]bool{
	"pw_mod.rnd":     true,
	"cutoff_mod.rnd": true,
	"volume_mod.rnd": true,
}

func TestEveryFieldIsMapped(t *testing.T) {
	for _, path := range Paths() {
		_, ok := AddressOf(path)
		if unmappedPaths[path] {
			assert.False(t, ok, "%s should have no address", path)
			continue
		}
		assert.True(t, ok, "%s has no address", path)
	}
}

func TestEveryAddressNamesAField(t *testing.T) {
	for path, addr := range addresses {
		_, ok := fieldIndex[path]
		assert.True(t, ok, "map entry %s does not name a Patch field", path)
		assert.GreaterOrEqual(t, addr, 0)
		if path == "name" {
			assert.LessOrEqual(t, addr+NameSize, ImageSize)
			continue
		}
		assert.Less(t, addr, ImageSize, path)
	}
}

func TestKnownAddresses(t *testing.T) {
	tests := map[string]int{
		"name":                           480,
		"oscillators.0.on":               1,
		"oscillators.3.on":               4,
		"oscillators.1.level":            33,
		"oscillators.1.level_l":          34,
		"oscillators.2.drift":            262,
		"lfos.1.wave":                    170,
		"envelopes.filter.start_level":   81,
		"envelopes.amp.release2_time":    137,
		"envelopes.pitch.velo":           149,
		"step_sequencer.step_values.0":   434,
		"step_sequencer.step_values.15":  449,
		"arpeggiator.octaves":            454,
		"effects.early_reflections.taps": 293,
		"effects.delay.doubling_on":      292,
		"gain_post":                      511,
		"volume_mod.vc1":                 231,
		"pitch_mod.rnd":                  203,
		"filters.1.kbd_track_reso":       277,
	}
	for path, want := range tests {
		got, ok := AddressOf(path)
		require.True(t, ok, path)
		assert.Equal(t, want, got, path)
	}
}

func TestAliasedAddressTable(t *testing.T) {
	assert.Equal(t, []string{"oscillators.0.level_l", "oscillators.0.level_r"}, PathsAt(32))
	assert.Equal(t, []string{
		"filters.0.resonance1", "filters.0.resonance2",
		"filters.1.resonance1", "filters.1.resonance2",
	}, PathsAt(79))
	assert.Equal(t, []string{"pitch_mod.temp", "filters.0.eg_velocity", "filters.1.eg_velocity"}, PathsAt(220))
	assert.Equal(t, []string{"envelopes.pitch.rate_key", "envelopes.filter.rate_key", "envelopes.amp.rate_key"}, PathsAt(0))
	assert.Empty(t, PathsAt(8))

	aliased := AliasedAddresses()
	assert.Contains(t, aliased, 77)
	assert.Contains(t, aliased, 275)
	assert.NotContains(t, aliased, 241)
}

func TestParametersInCanonicalOrder(t *testing.T) {
	params := Parameters()
	require.NotEmpty(t, params)
	assert.Equal(t, Parameter{Path: "name", Address: 480}, params[0])
	assert.Equal(t, Parameter{Path: "gain_post", Address: 511}, params[len(params)-1])
	assert.Equal(t, len(addresses), len(params))
}
