package msg

const NMotor = 8

// Motor reads motor outputs (MSP_MOTOR).
type Motor struct {
	Values [NMotor]uint16
}

func (m *Motor) ID() uint8 { return IDMotor }

func (m *Motor) Decode(b []byte) error {
	if len(b) < 2*NMotor {
		return short(m.ID(), b, 2*NMotor)
	}
	for i := range m.Values {
		m.Values[i] = le.Uint16(b[2*i:])
	}
	return nil
}

func (m *Motor) Encode() []byte {
	b := make([]byte, 2*NMotor)
	for i, v := range m.Values {
		le.PutUint16(b[2*i:], v)
	}
	return b
}

// SetMotor commands motor outputs directly (MSP_SET_MOTOR).
type SetMotor struct {
	Values [NMotor]uint16
}

func (m *SetMotor) ID() uint8 { return IDSetMotor }

func (m *SetMotor) Encode() []byte {
	b := make([]byte, 2*NMotor)
	for i, v := range m.Values {
		le.PutUint16(b[2*i:], v)
	}
	return b
}

func (m *SetMotor) Decode(b []byte) error {
	if len(b) < 2*NMotor {
		return short(m.ID(), b, 2*NMotor)
	}
	for i := range m.Values {
		m.Values[i] = le.Uint16(b[2*i:])
	}
	return nil
}
