package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/mlinton/XVA1-Soft-Synth/internal/patch"
	"github.com/mlinton/XVA1-Soft-Synth/internal/protocol"
)

// SendParameter sets one hardware parameter by number.
func (s *Session) SendParameter(id int, value float64) error {
	if id < 0 || id >= patch.ImageSize {
		return fmt.Errorf("parameter %d out of range 0-%d", id, patch.ImageSize-1)
	}
	c, err := s.connected()
	if err != nil {
		return err
	}
	return s.write(c, protocol.SetParameter(id, value), kindParam)
}

// SendRaw writes text to the synth unchanged.
func (s *Session) SendRaw(text string) error {
	c, err := s.connected()
	if err != nil {
		return err
	}
	return s.write(c, protocol.Raw(text), kindRaw)
}

// InjectPatch uploads an image into the synth's edit buffer. The local patch
// is not touched; see LoadImage.
func (s *Session) InjectPatch(ctx context.Context, image []byte) error {
	if len(image) != patch.ImageSize {
		return fmt.Errorf("inject: %w: got %d bytes, want %d", patch.ErrMalformedImage, len(image), patch.ImageSize)
	}
	c, err := s.connected()
	if err != nil {
		return err
	}
	return s.inject(ctx, c, image)
}

func (s *Session) inject(ctx context.Context, c *conn, image []byte) error {
	s.logf("Injecting patch data into active memory...")
	if err := s.write(c, protocol.Inject(), kindCmd); err != nil {
		return err
	}
	if err := sleep(ctx, s.injectDelay); err != nil {
		return err
	}
	return s.write(c, image, kindPatch)
}

// LoadImage injects an image (typically read from a file) and makes it the
// current patch.
func (s *Session) LoadImage(ctx context.Context, image []byte) error {
	if err := s.InjectPatch(ctx, image); err != nil {
		return err
	}

	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.mu.Lock()
	p, err := patch.Decode(image, s.patch)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.patch = p
	s.image = append([]byte(nil), image...)
	snapshot := p.Clone()
	s.mu.Unlock()

	s.obs.OnLog(fmt.Sprintf("Loaded patch %q.", snapshot.Name))
	s.obs.OnPatch(snapshot)
	return nil
}

// ReadSlot loads a stored program on the synth, then resyncs.
func (s *Session) ReadSlot(ctx context.Context, slot byte) error {
	c, err := s.connected()
	if err != nil {
		return err
	}
	s.logf("Requesting load from program slot %d...", slot)
	if err := s.write(c, protocol.ReadSlot(slot), kindCmd); err != nil {
		return err
	}
	if err := sleep(ctx, s.slotDelay); err != nil {
		return err
	}
	return s.requestPatch(ctx, c)
}

// WriteSlot stores the synth's edit buffer in a program slot.
func (s *Session) WriteSlot(slot byte) error {
	c, err := s.connected()
	if err != nil {
		return err
	}
	s.logf("Requesting save to program slot %d...", slot)
	return s.write(c, protocol.WriteSlot(slot), kindCmd)
}

// Update sets one field of the local patch and, when connected, sends it.
// Only that field changes locally, even when its address is shared; the
// other fields at the address catch up on the next dump. Unmapped fields
// change locally only.
func (s *Session) Update(path string, value float64) error {
	s.mu.Lock()
	if err := s.patch.Set(path, value); err != nil {
		s.mu.Unlock()
		return err
	}
	v, _ := s.patch.Get(path)
	addr, mapped := patch.AddressOf(path)
	c := s.conn
	live := s.state == Connected
	s.mu.Unlock()

	if !mapped || !live {
		return nil
	}
	return s.write(c, protocol.SetParameter(addr, v), kindParam)
}

// SetName renames the patch. The synth has no name command, so each of the
// 24 name bytes is sent as its own parameter.
func (s *Session) SetName(name string) error {
	window := patch.EncodeName(name)

	s.mu.Lock()
	s.patch.Name = strings.TrimRight(string(window), " ")
	c := s.conn
	live := s.state == Connected
	s.mu.Unlock()

	if !live {
		return nil
	}
	for i, b := range window {
		if err := s.write(c, protocol.SetParameter(patch.NameAddress(i), float64(b)), kindParam); err != nil {
			return err
		}
	}
	return nil
}
