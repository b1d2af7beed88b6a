package msg

import "strings"

// BoxNames lists the flight mode boxes (MSP_BOXNAMES), semicolon
// separated on the wire. Position in the list is the activation bit
// index in Status.BoxFlags.
type BoxNames struct {
	Names []string
}

func (m *BoxNames) ID() uint8 { return IDBoxNames }

func (m *BoxNames) Decode(b []byte) error {
	m.Names = m.Names[:0]
	for _, s := range strings.Split(string(b), ";") {
		if s != "" {
			m.Names = append(m.Names, s)
		}
	}
	return nil
}

func (m *BoxNames) Encode() []byte {
	if len(m.Names) == 0 {
		return nil
	}
	return []byte(strings.Join(m.Names, ";") + ";")
}

// Box reads the activation bit mask of each box (MSP_BOX), one uint16
// per box in BoxNames order.
type Box struct {
	Items []uint16
}

func (m *Box) ID() uint8 { return IDBox }

func (m *Box) Decode(b []byte) error {
	m.Items = m.Items[:0]
	for i := 0; i+1 < len(b); i += 2 {
		m.Items = append(m.Items, le.Uint16(b[i:i+2]))
	}
	return nil
}

func (m *Box) Encode() []byte { return encodeU16s(m.Items) }

// SetBox writes box activation masks (MSP_SET_BOX).
type SetBox struct {
	Items []uint16
}

func (m *SetBox) ID() uint8 { return IDSetBox }

func (m *SetBox) Encode() []byte { return encodeU16s(m.Items) }

func (m *SetBox) Decode(b []byte) error {
	m.Items = m.Items[:0]
	for i := 0; i+1 < len(b); i += 2 {
		m.Items = append(m.Items, le.Uint16(b[i:i+2]))
	}
	return nil
}

// BoxIds carries the firmware-permanent id of each box (MSP_BOXIDS),
// same order as BoxNames.
type BoxIds struct {
	Ids []uint8
}

func (m *BoxIds) ID() uint8 { return IDBoxIds }

func (m *BoxIds) Decode(b []byte) error {
	m.Ids = append(m.Ids[:0], b...)
	return nil
}

func (m *BoxIds) Encode() []byte { return append([]byte(nil), m.Ids...) }
