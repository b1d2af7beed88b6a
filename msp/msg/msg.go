// Package msg is the catalogue of concrete MSP message kinds. Each kind
// knows its id and how to encode or decode its payload; the engine in
// package msp treats payloads as opaque bytes.
//
// All multi-byte fields are little-endian per the MultiWii wire format.
package msg

import (
	"encoding/binary"

	"github.com/juju/errors"
)

const (
	IDApiVersion  uint8 = 1
	IDFeature     uint8 = 36
	IDSetFeature  uint8 = 37
	IDRxMap       uint8 = 64
	IDReboot      uint8 = 68
	IDIdent       uint8 = 100
	IDStatus      uint8 = 101
	IDRawImu      uint8 = 102
	IDMotor       uint8 = 104
	IDRc          uint8 = 105
	IDAnalog      uint8 = 110
	IDBox         uint8 = 113
	IDBoxNames    uint8 = 116
	IDBoxIds      uint8 = 119
	IDSetRawRc    uint8 = 200
	IDSetBox      uint8 = 203
	IDSetMotor    uint8 = 214
	IDEepromWrite uint8 = 250
)

var le = binary.LittleEndian

func short(id uint8, b []byte, min int) error {
	return errors.NotValidf("msp id=%d payload=(%d)%x want>=%d", id, len(b), b, min)
}
