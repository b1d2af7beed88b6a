package msg

// ApiVersion (MSP_API_VERSION) exists on Cleanflight descendants only;
// MultiWii answers it with an error frame. The facade uses that to tell
// firmware families apart.
type ApiVersion struct {
	Protocol uint8
	Major    uint8
	Minor    uint8
}

func (m *ApiVersion) ID() uint8 { return IDApiVersion }

func (m *ApiVersion) Decode(b []byte) error {
	if len(b) < 3 {
		return short(m.ID(), b, 3)
	}
	m.Protocol = b[0]
	m.Major = b[1]
	m.Minor = b[2]
	return nil
}

func (m *ApiVersion) Encode() []byte { return []byte{m.Protocol, m.Major, m.Minor} }

// Analog (MSP_ANALOG): battery and link diagnostics.
type Analog struct {
	VbatDeciVolt  uint8
	PowerMeterSum uint16
	Rssi          uint16
	Amperage      uint16
}

func (m *Analog) ID() uint8 { return IDAnalog }

func (m *Analog) Decode(b []byte) error {
	if len(b) < 7 {
		return short(m.ID(), b, 7)
	}
	m.VbatDeciVolt = b[0]
	m.PowerMeterSum = le.Uint16(b[1:3])
	m.Rssi = le.Uint16(b[3:5])
	m.Amperage = le.Uint16(b[5:7])
	return nil
}

func (m *Analog) Encode() []byte {
	b := make([]byte, 7)
	b[0] = m.VbatDeciVolt
	le.PutUint16(b[1:3], m.PowerMeterSum)
	le.PutUint16(b[3:5], m.Rssi)
	le.PutUint16(b[5:7], m.Amperage)
	return b
}

// RawImu (MSP_RAW_IMU): accelerometer, gyroscope, magnetometer.
type RawImu struct {
	Acc  [3]int16
	Gyro [3]int16
	Mag  [3]int16
}

func (m *RawImu) ID() uint8 { return IDRawImu }

func (m *RawImu) Decode(b []byte) error {
	if len(b) < 18 {
		return short(m.ID(), b, 18)
	}
	for i := 0; i < 3; i++ {
		m.Acc[i] = int16(le.Uint16(b[2*i:]))
		m.Gyro[i] = int16(le.Uint16(b[6+2*i:]))
		m.Mag[i] = int16(le.Uint16(b[12+2*i:]))
	}
	return nil
}

// EepromWrite (MSP_EEPROM_WRITE) persists current settings to
// nonvolatile storage. Acked with an empty frame.
type EepromWrite struct{}

func (m *EepromWrite) ID() uint8             { return IDEepromWrite }
func (m *EepromWrite) Decode(b []byte) error { return nil }
func (m *EepromWrite) Encode() []byte        { return nil }

// Reboot (MSP_REBOOT) restarts the controller. The ack may race the
// restart; callers should use a short timeout.
type Reboot struct{}

func (m *Reboot) ID() uint8             { return IDReboot }
func (m *Reboot) Decode(b []byte) error { return nil }
func (m *Reboot) Encode() []byte        { return nil }
