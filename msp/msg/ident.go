package msg

type Capability uint32

const (
	CapBind   Capability = 1 << 0
	CapDynBal Capability = 1 << 2
	CapFlap   Capability = 1 << 3
)

// Ident is the identity/capability query (MSP_IDENT).
type Ident struct {
	Version      uint8
	MultiType    uint8
	MSPVersion   uint8
	Capabilities Capability
}

func (m *Ident) ID() uint8 { return IDIdent }

func (m *Ident) Decode(b []byte) error {
	if len(b) < 7 {
		return short(m.ID(), b, 7)
	}
	m.Version = b[0]
	m.MultiType = b[1]
	m.MSPVersion = b[2]
	m.Capabilities = Capability(le.Uint32(b[3:7]))
	return nil
}

func (m *Ident) Encode() []byte {
	b := make([]byte, 7)
	b[0] = m.Version
	b[1] = m.MultiType
	b[2] = m.MSPVersion
	le.PutUint32(b[3:7], uint32(m.Capabilities))
	return b
}

func (m *Ident) Has(c Capability) bool { return m.Capabilities&c != 0 }
