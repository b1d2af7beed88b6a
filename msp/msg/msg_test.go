package msg

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentDecode(t *testing.T) {
	t.Parallel()

	var m Ident
	// Cleanflight 2.3.0 on a NAZE answering MSP_IDENT
	require.NoError(t, m.Decode([]byte{0xe6, 0x03, 0x04, 0x0d, 0x00, 0x00, 0x00}))
	assert.Equal(t, uint8(230), m.Version)
	assert.Equal(t, uint8(3), m.MultiType)
	assert.True(t, m.Has(CapBind))
	assert.True(t, m.Has(CapDynBal))
	assert.True(t, m.Has(CapFlap))

	err := m.Decode([]byte{0xe6, 0x03})
	assert.True(t, errors.IsNotValid(err), "err=%v", err)
}

func TestStatusBoxActive(t *testing.T) {
	t.Parallel()

	var m Status
	require.NoError(t, m.Decode([]byte{
		0x10, 0x27, // cycle 10000us
		0x01, 0x00, // 1 i2c error
		0x03, 0x00, // acc+baro
		0x05, 0x00, 0x00, 0x00, // boxes 0 and 2 active
		0x00,
	}))
	assert.Equal(t, uint16(10000), m.CycleTimeUs)
	assert.True(t, m.Has(SensorAcc))
	assert.True(t, m.Has(SensorBaro))
	assert.False(t, m.Has(SensorGPS))
	assert.True(t, m.BoxActive(0))
	assert.False(t, m.BoxActive(1))
	assert.True(t, m.BoxActive(2))
	assert.False(t, m.BoxActive(-1))
	assert.False(t, m.BoxActive(32))
}

func TestBoxNames(t *testing.T) {
	t.Parallel()

	var m BoxNames
	require.NoError(t, m.Decode([]byte("ARM;ANGLE;HORIZON;FAILSAFE;")))
	assert.Equal(t, []string{"ARM", "ANGLE", "HORIZON", "FAILSAFE"}, m.Names)
	assert.Equal(t, []byte("ARM;ANGLE;HORIZON;FAILSAFE;"), m.Encode())

	require.NoError(t, m.Decode(nil))
	assert.Empty(t, m.Names)
}

func TestBoxItems(t *testing.T) {
	t.Parallel()

	// ARM on aux1 high, ANGLE on aux2 mid
	m := SetBox{Items: []uint16{0x0004, 0x0020}}
	b := m.Encode()
	assert.Equal(t, []byte{0x04, 0x00, 0x20, 0x00}, b)

	var back Box
	require.NoError(t, back.Decode(b))
	assert.Equal(t, m.Items, back.Items)
	assert.Equal(t, b, back.Encode())
}

func TestFeatureBits(t *testing.T) {
	t.Parallel()

	bit, err := FeatureBit("RX_MSP")
	require.NoError(t, err)
	assert.Equal(t, uint32(1)<<14, bit)

	bit, err = FeatureBit("RX_PPM")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), bit)

	_, err = FeatureBit("WARP_DRIVE")
	assert.True(t, errors.IsNotFound(err), "err=%v", err)

	m := Feature{Mask: 1 | 1<<14}
	assert.True(t, m.HasName("RX_PPM"))
	assert.True(t, m.HasName("RX_MSP"))
	assert.False(t, m.HasName("GPS"))
	assert.Equal(t, []byte{0x01, 0x40, 0x00, 0x00}, m.Encode())
}

func TestSetRawRcEncode(t *testing.T) {
	t.Parallel()

	m := SetRawRc{Channels: []uint16{1500, 1500, 1500, 1000, 2000, 1000, 1000, 1000}}
	b := m.Encode()
	require.Len(t, b, 16)
	assert.Equal(t, []byte{0xdc, 0x05}, b[0:2])
	assert.Equal(t, []byte{0xd0, 0x07}, b[8:10])

	var back SetRawRc
	require.NoError(t, back.Decode(b))
	assert.Equal(t, m.Channels, back.Channels)
}

func TestRcDecodeOdd(t *testing.T) {
	t.Parallel()

	var m Rc
	// trailing odd byte is ignored
	require.NoError(t, m.Decode([]byte{0xdc, 0x05, 0xd0, 0x07, 0xff}))
	assert.Equal(t, []uint16{1500, 2000}, m.Channels)
}

func TestMotor(t *testing.T) {
	t.Parallel()

	m := SetMotor{Values: [NMotor]uint16{1100, 1100, 1100, 1100, 1000, 1000, 1000, 1000}}
	b := m.Encode()
	require.Len(t, b, 16)

	var back Motor
	require.NoError(t, back.Decode(b))
	assert.Equal(t, m.Values, back.Values)

	err := back.Decode(b[:15])
	assert.True(t, errors.IsNotValid(err), "err=%v", err)
}

func TestRawImuDecode(t *testing.T) {
	t.Parallel()

	var m RawImu
	b := make([]byte, 18)
	le.PutUint16(b[0:], 0xffff) // acc x = -1
	le.PutUint16(b[6:], 512)    // gyro x
	le.PutUint16(b[16:], 0x8000)
	require.NoError(t, m.Decode(b))
	assert.Equal(t, int16(-1), m.Acc[0])
	assert.Equal(t, int16(512), m.Gyro[0])
	assert.Equal(t, int16(-32768), m.Mag[2])
}
