package msg

type Sensor uint16

const (
	SensorAcc   Sensor = 1 << 0
	SensorBaro  Sensor = 1 << 1
	SensorMag   Sensor = 1 << 2
	SensorGPS   Sensor = 1 << 3
	SensorSonar Sensor = 1 << 4
)

// Status is the cyclic state query (MSP_STATUS). BoxFlags holds one
// activation bit per box, ordered as in MSP_BOXNAMES.
type Status struct {
	CycleTimeUs    uint16
	I2CErrors      uint16
	Sensors        Sensor
	BoxFlags       uint32
	CurrentSetting uint8
}

func (m *Status) ID() uint8 { return IDStatus }

func (m *Status) Decode(b []byte) error {
	if len(b) < 11 {
		return short(m.ID(), b, 11)
	}
	m.CycleTimeUs = le.Uint16(b[0:2])
	m.I2CErrors = le.Uint16(b[2:4])
	m.Sensors = Sensor(le.Uint16(b[4:6]))
	m.BoxFlags = le.Uint32(b[6:10])
	m.CurrentSetting = b[10]
	return nil
}

func (m *Status) Encode() []byte {
	b := make([]byte, 11)
	le.PutUint16(b[0:2], m.CycleTimeUs)
	le.PutUint16(b[2:4], m.I2CErrors)
	le.PutUint16(b[4:6], uint16(m.Sensors))
	le.PutUint32(b[6:10], m.BoxFlags)
	b[10] = m.CurrentSetting
	return b
}

func (m *Status) Has(s Sensor) bool { return m.Sensors&s != 0 }

// BoxActive reports the activation bit for a box index from
// MSP_BOXNAMES order.
func (m *Status) BoxActive(index int) bool {
	if index < 0 || index > 31 {
		return false
	}
	return m.BoxFlags&(1<<uint(index)) != 0
}
