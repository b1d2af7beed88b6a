package msg

// RxMap reports the channel order the firmware expects (MSP_RX_MAP):
// Map[function] = channel index, functions being roll, pitch, yaw,
// throttle, aux1..aux4.
type RxMap struct {
	Map []uint8
}

func (m *RxMap) ID() uint8 { return IDRxMap }

func (m *RxMap) Decode(b []byte) error {
	if len(b) < 4 {
		return short(m.ID(), b, 4)
	}
	m.Map = append(m.Map[:0], b...)
	return nil
}

func (m *RxMap) Encode() []byte { return append([]byte(nil), m.Map...) }

// Rc reads the current RC channel values (MSP_RC), 1000-2000 us.
type Rc struct {
	Channels []uint16
}

func (m *Rc) ID() uint8 { return IDRc }

func (m *Rc) Decode(b []byte) error {
	m.Channels = m.Channels[:0]
	for i := 0; i+1 < len(b); i += 2 {
		m.Channels = append(m.Channels, le.Uint16(b[i:i+2]))
	}
	return nil
}

func (m *Rc) Encode() []byte { return encodeU16s(m.Channels) }

// SetRawRc overrides RC input (MSP_SET_RAW_RC). Requires the RX_MSP
// feature.
type SetRawRc struct {
	Channels []uint16
}

func (m *SetRawRc) ID() uint8 { return IDSetRawRc }

func (m *SetRawRc) Encode() []byte { return encodeU16s(m.Channels) }

func (m *SetRawRc) Decode(b []byte) error {
	m.Channels = m.Channels[:0]
	for i := 0; i+1 < len(b); i += 2 {
		m.Channels = append(m.Channels, le.Uint16(b[i:i+2]))
	}
	return nil
}

func encodeU16s(vs []uint16) []byte {
	b := make([]byte, 2*len(vs))
	for i, v := range vs {
		le.PutUint16(b[2*i:], v)
	}
	return b
}
