package msp

import (
	"bufio"
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeV1KnownBytes(t *testing.T) {
	t.Parallel()

	b, err := EncodeV1(DirToFC, 100, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{'$', 'M', '<', 0x00, 0x64, 0x64}, b)

	b, err = EncodeV1(DirToFC, 200, []byte{0xdc, 0x05})
	require.NoError(t, err)
	assert.Equal(t, []byte{'$', 'M', '<', 0x02, 0xc8, 0xdc, 0x05, 0x13}, b)
}

func TestEncodeV2KnownBytes(t *testing.T) {
	t.Parallel()

	b, err := EncodeV2(DirToFC, 42, []byte{0xbe, 0xef})
	require.NoError(t, err)
	assert.Equal(t, []byte{'$', 'X', '<', 0x00, 0x2a, 0x00, 0x02, 0x00, 0xbe, 0xef, 0xce}, b)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		v       Version
		dir     byte
		id      uint8
		payload []byte
	}{
		{"v1-empty", V1, DirToFC, 100, nil},
		{"v1-payload", V1, DirFromFC, 105, []byte{0xdc, 0x05, 0xd0, 0x07}},
		{"v1-error", V1, DirError, 1, nil},
		{"v2-empty", V2, DirToFC, 101, nil},
		{"v2-payload", V2, DirFromFC, 214, bytes.Repeat([]byte{0xa5}, 300)},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			b, err := Encode(c.v, c.dir, c.id, c.payload)
			require.NoError(t, err)
			f, err := Decode(b)
			require.NoError(t, err)
			assert.Equal(t, c.v, f.V)
			assert.Equal(t, c.dir, f.Dir)
			assert.Equal(t, c.id, f.ID)
			if len(c.payload) == 0 {
				assert.Empty(t, f.Payload)
			} else {
				assert.Equal(t, c.payload, f.Payload)
			}
			assert.Equal(t, c.dir == DirError, f.IsError())
		})
	}
}

func TestPayloadOverflow(t *testing.T) {
	t.Parallel()

	_, err := EncodeV1(DirToFC, 1, make([]byte, 256))
	assert.Equal(t, ErrPayloadOverflow, err)
	_, err = EncodeV2(DirToFC, 1, make([]byte, 65536))
	assert.Equal(t, ErrPayloadOverflow, err)
	// fits in v2
	_, err = EncodeV2(DirToFC, 1, make([]byte, 256))
	assert.NoError(t, err)
}

// Flipping any payload or checksum byte must be detected.
func TestChecksumFlip(t *testing.T) {
	t.Parallel()

	for _, v := range []Version{V1, V2} {
		b, err := Encode(v, DirFromFC, 101, []byte{0x10, 0x27, 0x00, 0x00, 0x07, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00})
		require.NoError(t, err)
		for i := len(b) - 12; i < len(b); i++ {
			for bit := uint(0); bit < 8; bit++ {
				mut := make([]byte, len(b))
				copy(mut, b)
				mut[i] ^= 1 << bit
				f, err := Decode(mut)
				if assert.Error(t, err, "v=%d flip byte=%d bit=%d", v, i, bit) {
					assert.True(t, IsFraming(err), "v=%d flip byte=%d bit=%d err=%v", v, i, bit, err)
				}
				assert.Nil(t, f)
			}
		}
	}
}

func TestResync(t *testing.T) {
	t.Parallel()

	frame, err := EncodeV1(DirFromFC, 100, []byte{0xe6, 0x03, 0x04, 0x07, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	stream := append([]byte("boot noise\r\n\xff\x00garbage"), frame...)
	r := bufio.NewReader(bytes.NewReader(stream))

	f, err := ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, uint8(100), f.ID)

	_, err = ReadFrame(r)
	assert.Equal(t, io.EOF, err)
}

func TestTruncated(t *testing.T) {
	t.Parallel()

	frame, err := EncodeV2(DirFromFC, 102, bytes.Repeat([]byte{0x01}, 18))
	require.NoError(t, err)
	for _, cut := range []int{2, 4, 8, len(frame) - 1} {
		_, err = Decode(frame[:cut])
		require.Error(t, err, "cut=%d", cut)
		assert.IsType(t, TruncatedFrame{}, err, "cut=%d", cut)
		assert.True(t, IsFraming(err))
	}
}

// A v2 id above 255 cannot alias onto its low byte and complete the
// wrong consumer; the frame is dropped as recoverable.
func TestV2IdOutOfRange(t *testing.T) {
	t.Parallel()

	// id=300 (0x012c), empty payload, valid crc
	_, err := Decode([]byte{'$', 'X', '>', 0x00, 0x2c, 0x01, 0x00, 0x00, 0x9c})
	require.Error(t, err)
	assert.Equal(t, InvalidId{ID: 300}, err)
	assert.True(t, IsFraming(err))
}

func TestUnknownMarker(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte{'$', 'Q', '<', 0x00, 0x64, 0x64})
	assert.Equal(t, InvalidMarker{B: 'Q'}, err)

	_, err = Decode([]byte{'$', 'M', '?', 0x00, 0x64, 0x64})
	assert.Equal(t, InvalidMarker{B: '?'}, err)
}

// Mid-frame read timeout is recoverable corruption, not transport loss.
func TestMidFrameTimeout(t *testing.T) {
	t.Parallel()

	cio := NewChanIO(5 * time.Millisecond)
	// header promises 4 payload bytes that never come
	cio.In <- []byte{'$', 'M', '>', 0x04, 0x64}
	r := bufio.NewReader(cio)
	_, err := ReadFrame(r)
	require.Error(t, err)
	assert.IsType(t, TruncatedFrame{}, err)
}
