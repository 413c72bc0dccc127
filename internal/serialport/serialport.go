// Package serialport connects to the XVA1 over its USB serial (FTDI) link.
package serialport

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// FTDIVendorID is the USB vendor of the XVA1's serial bridge.
const FTDIVendorID = "0403"

const (
	DefaultBitRate = 12000000

	// ReadTimeout bounds each Read so the session read loop can notice a
	// disconnect between reads.
	ReadTimeout = 100 * time.Millisecond
)

// BitRates lists the rates the XVA1 firmware accepts, fastest first.
var BitRates = []int{12000000, 500000, 115200, 57600, 38400, 9600}

var ErrNoPort = errors.New("no serial port found")

// ValidBitRate reports whether rate is one of BitRates.
func ValidBitRate(rate int) bool {
	return slices.Contains(BitRates, rate)
}

// PortInfo describes one serial port.
type PortInfo struct {
	Name    string `json:"name"`
	USB     bool   `json:"usb"`
	VID     string `json:"vid,omitempty"`
	PID     string `json:"pid,omitempty"`
	Serial  string `json:"serial,omitempty"`
	Product string `json:"product,omitempty"`
}

// FTDI reports whether the port sits behind an FTDI USB bridge.
func (p PortInfo) FTDI() bool {
	return p.USB && strings.EqualFold(p.VID, FTDIVendorID)
}

// List enumerates serial ports. With ftdiOnly set, only FTDI bridges are
// returned. Platforms without USB details fall back to plain port names,
// which are never considered FTDI.
func List(ftdiOnly bool) ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		names, perr := serial.GetPortsList()
		if perr != nil {
			return nil, fmt.Errorf("list ports: %w", errors.Join(err, perr))
		}
		for _, n := range names {
			details = append(details, &enumerator.PortDetails{Name: n})
		}
	}
	return filterPorts(details, ftdiOnly), nil
}

func filterPorts(details []*enumerator.PortDetails, ftdiOnly bool) []PortInfo {
	var out []PortInfo
	for _, d := range details {
		info := PortInfo{
			Name:    d.Name,
			USB:     d.IsUSB,
			VID:     d.VID,
			PID:     d.PID,
			Serial:  d.SerialNumber,
			Product: d.Product,
		}
		if ftdiOnly && !info.FTDI() {
			continue
		}
		out = append(out, info)
	}
	return out
}

// Detect returns the first FTDI port.
func Detect() (string, error) {
	ports, err := List(true)
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", ErrNoPort
	}
	return ports[0].Name, nil
}

// Opener opens a named port, or the first FTDI port when Name is empty.
type Opener struct {
	Name string
}

// Open opens the port 8N1 with no flow control and a short read timeout.
func (o Opener) Open(bitRate int) (io.ReadWriteCloser, error) {
	name := o.Name
	if name == "" {
		var err error
		if name, err = Detect(); err != nil {
			return nil, err
		}
	}

	mode := &serial.Mode{
		BaudRate: bitRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if err := port.SetReadTimeout(ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	return port, nil
}

// String names the port for logs.
func (o Opener) String() string {
	if o.Name == "" {
		return "auto (FTDI)"
	}
	return o.Name
}
