package protocol

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/mlinton/XVA1-Soft-Synth/internal/patch"
)

// XVA1 serial commands (single ASCII letters).
const (
	CmdInit      = 'i'
	CmdDump      = 'd'
	CmdInject    = 'j'
	CmdReadSlot  = 'r'
	CmdWriteSlot = 'w'
	CmdSetParam  = 's'
)

const (
	// extParam prefixes parameter numbers above 254.
	extParam = 0xFF

	MaxSlot = 127
)

var ErrInvalidSlot = errors.New("invalid program slot")

func Init() []byte { return []byte{CmdInit} }
func DumpRequest() []byte { return []byte{CmdDump} }

// Inject announces a patch upload. The 512-byte image follows as a separate
// write once the synth has had time to switch modes.
func Inject() []byte { return []byte{CmdInject} }

// ReadSlot loads a stored program into the edit buffer.
func ReadSlot(slot byte) []byte { return []byte{CmdReadSlot, slot} }

// WriteSlot stores the edit buffer into a program slot.
func WriteSlot(slot byte) []byte { return []byte{CmdWriteSlot, slot} }

// SetParameter changes one parameter. The value is rounded and clamped to a
// byte; ids above 254 are sent as 0xFF followed by id-256.
func SetParameter(id int, value float64) []byte {
	v := patch.ByteValue(value)
	if id > 254 {
		return []byte{CmdSetParam, extParam, byte(id - 256), v}
	}
	return []byte{CmdSetParam, byte(id), v}
}

// Raw returns the UTF-8 bytes of a free-form command, unchanged.
func Raw(text string) []byte {
	return []byte(text)
}

// ValidSlot checks a user supplied program slot.
func ValidSlot(n int) (byte, error) {
	if n < 0 || n > MaxSlot {
		return 0, fmt.Errorf("%w: %d (want 0-%d)", ErrInvalidSlot, n, MaxSlot)
	}
	return byte(n), nil
}

// Describe renders a command for the TX log: space separated hex bytes.
func Describe(cmd []byte) string {
	if len(cmd) == 0 {
		return ""
	}
	s := hex.EncodeToString(cmd)
	out := make([]byte, 0, len(s)+len(cmd))
	for i := 0; i < len(s); i += 2 {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, s[i], s[i+1])
	}
	return string(out)
}
