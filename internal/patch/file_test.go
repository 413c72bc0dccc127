package patch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadFile(t *testing.T) {
	p := Default()
	p.Name = "Round Trip"
	image := Encode(p)

	path := filepath.Join(t.TempDir(), FileName(p.Name))
	require.NoError(t, SaveFile(path, image))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, image, got)
}

func TestLoadFileRejectsWrongSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.xva1")
	require.NoError(t, os.WriteFile(path, make([]byte, 511), 0644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedImage)
	assert.Equal(t, KindMalformed, ftag.Get(err))
	assert.Equal(t, "Invalid patch file. Expected 512 bytes, got 511.", fmsg.GetIssue(err))
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.xva1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, fmsg.GetIssue(err), "Could not read patch file")
}

func TestSaveFileRejectsWrongSize(t *testing.T) {
	err := SaveFile(filepath.Join(t.TempDir(), "x.xva1"), []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrMalformedImage)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Fat Bass.xva1", FileName("Fat Bass  "))
	assert.Equal(t, "preset.xva1", FileName("   "))
	assert.Equal(t, "A_B_C.xva1", FileName("A/B:C"))
}
