package msg

import "github.com/juju/errors"

// FeatureNames is the bit order of the feature mask in Cleanflight
// configuration. Index in this table == bit position.
var FeatureNames = []string{
	"RX_PPM",
	"VBAT",
	"INFLIGHT_ACC_CAL",
	"RX_SERIAL",
	"MOTOR_STOP",
	"SERVO_TILT",
	"SOFTSERIAL",
	"GPS",
	"FAILSAFE",
	"SONAR",
	"TELEMETRY",
	"CURRENT_METER",
	"3D",
	"RX_PARALLEL_PWM",
	"RX_MSP",
	"RSSI_ADC",
	"LED_STRIP",
	"DISPLAY",
	"ONESHOT125",
	"BLACKBOX",
	"CHANNEL_FORWARDING",
	"TRANSPONDER",
	"AIRMODE",
}

// FeatureBit resolves a feature name to its mask bit.
func FeatureBit(name string) (uint32, error) {
	for i, n := range FeatureNames {
		if n == name {
			return 1 << uint(i), nil
		}
	}
	return 0, errors.NotFoundf("feature %q", name)
}

// Feature reads the enabled feature mask (MSP_FEATURE).
type Feature struct {
	Mask uint32
}

func (m *Feature) ID() uint8 { return IDFeature }

func (m *Feature) Decode(b []byte) error {
	if len(b) < 4 {
		return short(m.ID(), b, 4)
	}
	m.Mask = le.Uint32(b[0:4])
	return nil
}

func (m *Feature) Encode() []byte {
	b := make([]byte, 4)
	le.PutUint32(b, m.Mask)
	return b
}

func (m *Feature) HasName(name string) bool {
	bit, err := FeatureBit(name)
	return err == nil && m.Mask&bit != 0
}

// SetFeature writes a new feature mask (MSP_SET_FEATURE). Takes effect
// after EepromWrite and a reboot.
type SetFeature struct {
	Mask uint32
}

func (m *SetFeature) ID() uint8 { return IDSetFeature }

func (m *SetFeature) Encode() []byte {
	b := make([]byte, 4)
	le.PutUint32(b, m.Mask)
	return b
}

func (m *SetFeature) Decode(b []byte) error {
	if len(b) < 4 {
		return short(m.ID(), b, 4)
	}
	m.Mask = le.Uint32(b[0:4])
	return nil
}
