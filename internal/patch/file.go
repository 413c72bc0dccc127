package patch

import (
	"fmt"
	"os"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// FileExt is the extension used for saved patch images.
const FileExt = ".xva1"

// KindMalformed tags errors caused by a patch image of the wrong size.
const KindMalformed ftag.Kind = "MALFORMED_IMAGE"

// LoadFile reads a patch image from disk. Anything but exactly 512 bytes is
// rejected and carries a user-facing message (see fmsg.GetIssue).
func LoadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fault.Wrap(err,
			fmsg.WithDesc("read patch file", fmt.Sprintf("Could not read patch file %s.", path)))
	}
	if len(data) != ImageSize {
		return nil, fault.Wrap(fmt.Errorf("%w: %s has %d bytes", ErrMalformedImage, path, len(data)),
			ftag.With(KindMalformed),
			fmsg.WithDesc("load patch file",
				fmt.Sprintf("Invalid patch file. Expected %d bytes, got %d.", ImageSize, len(data))))
	}
	return data, nil
}

// SaveFile writes a patch image verbatim.
func SaveFile(path string, image []byte) error {
	if len(image) != ImageSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedImage, len(image), ImageSize)
	}
	if err := os.WriteFile(path, image, 0644); err != nil {
		return fault.Wrap(err,
			fmsg.WithDesc("write patch file", fmt.Sprintf("Could not write patch file %s.", path)))
	}
	return nil
}

// FileName suggests a file name for a patch: its trimmed name, or "preset".
func FileName(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		n = "preset"
	}
	n = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' {
			return '_'
		}
		return r
	}, n)
	return n + FileExt
}
