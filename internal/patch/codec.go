package patch

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"unicode"
)

var ErrMalformedImage = errors.New("malformed patch image")

// ByteValue rounds v to the nearest integer and clamps it to a byte.
func ByteValue(v float64) byte {
	if math.IsNaN(v) {
		return 0
	}
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return byte(r)
}

// Decode builds a patch from a 512-byte image. Fields without an address keep
// their value from base; base itself is never modified. A nil base means Default().
func Decode(image []byte, base *Patch) (*Patch, error) {
	if len(image) != ImageSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedImage, len(image), ImageSize)
	}
	if base == nil {
		base = Default()
	}

	p := base.Clone()
	root := reflect.ValueOf(p).Elem()
	for i := range fields {
		f := &fields[i]
		addr, ok := addresses[f.path]
		if !ok {
			continue
		}
		v := f.value(root)
		switch f.kind {
		case reflect.String:
			v.SetString(decodeName(image[addr : addr+NameSize]))
		case reflect.Bool:
			v.SetBool(image[addr] != 0)
		case reflect.Int:
			v.SetInt(int64(image[addr]))
		}
	}
	return p, nil
}

// Encode serializes p onto a zeroed image.
func Encode(p *Patch) []byte {
	data := make([]byte, ImageSize)
	_ = EncodeInto(data, p)
	return data
}

// EncodeInto writes every mapped field of p into dst, leaving unmapped
// (reserved) bytes as they are. Fields are written in canonical order, so the
// last field on an aliased address wins.
func EncodeInto(dst []byte, p *Patch) error {
	if len(dst) != ImageSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedImage, len(dst), ImageSize)
	}

	root := reflect.ValueOf(p).Elem()
	for i := range fields {
		f := &fields[i]
		addr, ok := addresses[f.path]
		if !ok {
			continue
		}
		v := f.value(root)
		switch f.kind {
		case reflect.String:
			copy(dst[addr:addr+NameSize], EncodeName(v.String()))
		case reflect.Bool:
			if v.Bool() {
				dst[addr] = 1
			} else {
				dst[addr] = 0
			}
		case reflect.Int:
			dst[addr] = ByteValue(float64(v.Int()))
		}
	}
	return nil
}

// EncodeName renders a patch name as the fixed 24-byte, space-padded window.
// Characters outside printable ASCII are replaced with '?'.
func EncodeName(name string) []byte {
	out := make([]byte, 0, NameSize)
	for _, r := range name {
		if len(out) == NameSize {
			break
		}
		if r < 0x20 || r > 0x7E {
			r = '?'
		}
		out = append(out, byte(r))
	}
	for len(out) < NameSize {
		out = append(out, ' ')
	}
	return out
}

func decodeName(window []byte) string {
	buf := make([]byte, len(window))
	for i, b := range window {
		buf[i] = b & 0x7F
	}
	return strings.TrimRightFunc(string(buf), func(r rune) bool {
		return r == 0 || unicode.IsSpace(r)
	})
}

// NameAddress returns the address of the i-th name character.
func NameAddress(i int) int {
	return nameAddr + i
}
