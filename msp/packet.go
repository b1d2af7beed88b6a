package msp

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"math"

	"github.com/gomsp/msp-go/crc"
)

// Wire format, both MSP versions:
//   v1: '$' 'M' dir len8 id8 payload xor-checksum(len,id,payload)
//   v2: '$' 'X' dir flag8 id16le len16le payload crc8-dvb-s2(flag..payload)
// dir is '<' to the controller, '>' from it, '!' error reply.

type Version uint8

const (
	V1 Version = 1
	V2 Version = 2
)

const (
	markerStart = byte('$')
	markerV1    = byte('M')
	markerV2    = byte('X')

	DirToFC   = byte('<')
	DirFromFC = byte('>')
	DirError  = byte('!')
)

var ErrPayloadOverflow = fmt.Errorf("msp: payload larger than max frame size")

type Frame struct {
	ID      uint8
	Payload []byte
	Dir     byte
	V       Version
}

// Remote signaled it could not process the request.
func (f *Frame) IsError() bool { return f.Dir == DirError }

func (f *Frame) Format() string {
	return fmt.Sprintf("v%d %c id=%d payload=(%d)%s", f.V, f.Dir, f.ID, len(f.Payload), hex.EncodeToString(f.Payload))
}

type InvalidChecksum struct {
	Received byte
	Actual   byte
}

func (self InvalidChecksum) Error() string {
	return fmt.Sprintf("msp: invalid checksum received=%02x actual=%02x", self.Received, self.Actual)
}

type InvalidMarker struct {
	B byte
}

func (self InvalidMarker) Error() string {
	return fmt.Sprintf("msp: unknown marker %02x", self.B)
}

// InvalidId is a v2 frame whose 16-bit id does not fit the uint8 id
// space this engine correlates on. Truncating would alias it onto an
// unrelated consumer, so the frame is dropped instead.
type InvalidId struct {
	ID uint16
}

func (self InvalidId) Error() string {
	return fmt.Sprintf("msp: id=%d out of range", self.ID)
}

type TruncatedFrame struct {
	Cause error
}

func (self TruncatedFrame) Error() string {
	return fmt.Sprintf("msp: truncated frame: %v", self.Cause)
}

// IsFraming reports errors that are recovered locally by resync, never
// fatal to the connection.
func IsFraming(err error) bool {
	switch err.(type) {
	case InvalidChecksum, InvalidId, InvalidMarker, TruncatedFrame:
		return true
	}
	return false
}

func xorChecksum(chk byte, bs []byte) byte {
	for _, b := range bs {
		chk ^= b
	}
	return chk
}

func Encode(v Version, dir byte, id uint8, payload []byte) ([]byte, error) {
	switch v {
	case V2:
		return EncodeV2(dir, id, payload)
	default:
		return EncodeV1(dir, id, payload)
	}
}

func EncodeV1(dir byte, id uint8, payload []byte) ([]byte, error) {
	if len(payload) > math.MaxUint8 {
		return nil, ErrPayloadOverflow
	}
	b := make([]byte, 0, 6+len(payload))
	b = append(b, markerStart, markerV1, dir, byte(len(payload)), id)
	b = append(b, payload...)
	b = append(b, xorChecksum(0, b[3:]))
	return b, nil
}

func EncodeV2(dir byte, id uint8, payload []byte) ([]byte, error) {
	if len(payload) > math.MaxUint16 {
		return nil, ErrPayloadOverflow
	}
	n := len(payload)
	b := make([]byte, 0, 9+n)
	b = append(b, markerStart, markerV2, dir,
		0, // flag, reserved
		id, 0,
		byte(n), byte(n>>8))
	b = append(b, payload...)
	b = append(b, crc.CRC8_d5_n(0, b[3:]))
	return b, nil
}

// ReadFrame consumes exactly one frame from r. Leading junk before the
// start marker is discarded (resync). A read failure past the start
// marker surfaces as TruncatedFrame so callers can tell "stream noise"
// from transport loss; see midFrameErr.
func ReadFrame(r *bufio.Reader) (*Frame, error) {
	var b byte
	var err error
	for {
		if b, err = r.ReadByte(); err != nil {
			return nil, err
		}
		if b == markerStart {
			break
		}
	}

	if b, err = r.ReadByte(); err != nil {
		return nil, midFrameErr(err)
	}
	version := V1
	switch b {
	case markerV1:
	case markerV2:
		version = V2
	default:
		return nil, InvalidMarker{B: b}
	}

	dir, err := r.ReadByte()
	if err != nil {
		return nil, midFrameErr(err)
	}
	switch dir {
	case DirToFC, DirFromFC, DirError:
	default:
		return nil, InvalidMarker{B: dir}
	}

	if version == V2 {
		return readFrameV2(r, dir)
	}
	return readFrameV1(r, dir)
}

func readFrameV1(r *bufio.Reader, dir byte) (*Frame, error) {
	var head [2]byte // len, id
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, midFrameErr(err)
	}
	payload := make([]byte, head[0])
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, midFrameErr(err)
	}
	chkin, err := r.ReadByte()
	if err != nil {
		return nil, midFrameErr(err)
	}
	chkout := xorChecksum(head[0]^head[1], payload)
	if chkin != chkout {
		return nil, InvalidChecksum{Received: chkin, Actual: chkout}
	}
	return &Frame{ID: head[1], Payload: payload, Dir: dir, V: V1}, nil
}

func readFrameV2(r *bufio.Reader, dir byte) (*Frame, error) {
	var head [5]byte // flag, id16, len16
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, midFrameErr(err)
	}
	if head[2] != 0 {
		return nil, InvalidId{ID: uint16(head[1]) | uint16(head[2])<<8}
	}
	n := int(head[3]) | int(head[4])<<8
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, midFrameErr(err)
	}
	chkin, err := r.ReadByte()
	if err != nil {
		return nil, midFrameErr(err)
	}
	chkout := crc.CRC8_d5_n(crc.CRC8_d5_n(0, head[:]), payload)
	if chkin != chkout {
		return nil, InvalidChecksum{Received: chkin, Actual: chkout}
	}
	return &Frame{ID: head[1], Payload: payload, Dir: dir, V: V2}, nil
}

// A frame interrupted by stream end or read timeout is corrupt data,
// recovered by resync. Any other error is the transport failing.
func midFrameErr(err error) error {
	switch err {
	case io.EOF, io.ErrUnexpectedEOF, ErrReadTimeout:
		return TruncatedFrame{Cause: err}
	}
	return err
}

// Decode parses one frame from a byte slice. Test and catalogue helper;
// the engine reads from the transport via ReadFrame.
func Decode(b []byte) (*Frame, error) {
	r := bufio.NewReader(bytes.NewReader(b))
	f, err := ReadFrame(r)
	if err == io.EOF {
		return nil, TruncatedFrame{Cause: err}
	}
	return f, err
}
