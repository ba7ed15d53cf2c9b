package obd

import "math/bits"

// ECU is a bit flag identifying the role of the electronic control unit
// that transmitted a Message. Roles are disjoint bits so callers can build
// OR filters (e.g. ECUEngine|ECUTransmission) without a separate set type.
type ECU uint8

const (
	ECUUnknown      ECU = 0b00000001
	ECUEngine       ECU = 0b00000010
	ECUTransmission ECU = 0b00000100

	// ECUAllKnown matches any tagged ECU except ECUUnknown.
	ECUAllKnown ECU = 0b11111110
	// ECUAll matches any ECU, known or not.
	ECUAll ECU = 0b11111111
)

func (e ECU) String() string {
	switch e {
	case ECUUnknown:
		return "UNKNOWN"
	case ECUEngine:
		return "ENGINE"
	case ECUTransmission:
		return "TRANSMISSION"
	case ECUAllKnown:
		return "ALL_KNOWN"
	case ECUAll:
		return "ALL"
	default:
		return "ECU(mixed)"
	}
}

// Matches reports whether filter accepts a message tagged with e, i.e.
// whether the two bit sets overlap.
func (filter ECU) Matches(e ECU) bool {
	return filter&e != 0
}

// ecuMap is a write-once, read-many mapping from a frame's synthesized
// transmitter id to its ECU role. It is populated exactly once, during
// protocol construction, from the response to the initial "0100" query;
// nothing after construction may mutate it.
type ecuMap struct {
	roles map[byte]ECU
}

func newECUMap() *ecuMap {
	return &ecuMap{roles: make(map[byte]ECU)}
}

func (m *ecuMap) lookup(tx byte) ECU {
	if role, ok := m.roles[tx]; ok {
		return role
	}
	return ECUUnknown
}

// populate implements the ECU Mapper algorithm: given the messages parsed
// from an initial "0100" round-trip, assign each responding tx_id a role.
//
// txIDEngine is the protocol-specific transmitter id the engine ECU is
// expected to use. It is modeled as an explicit optional (nil means "no ID
// is expected for this protocol") rather than overloading the zero byte,
// since 0 is itself a valid, meaningful tx_id for the CAN variants.
func (m *ecuMap) populate(messages []*Message, txIDEngine *byte) {
	parsed := make([]*Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Parsed() {
			parsed = append(parsed, msg)
		}
	}

	switch len(parsed) {
	case 0:
		return
	case 1:
		tx, _ := parsed[0].TxID()
		m.roles[tx] = ECUEngine
		return
	}

	foundEngine := false
	if txIDEngine != nil {
		for _, msg := range parsed {
			tx, _ := msg.TxID()
			if tx == *txIDEngine {
				m.roles[tx] = ECUEngine
				foundEngine = true
			}
		}
	}

	if !foundEngine {
		// Last resort: the responder advertising the most supported PIDs
		// (greatest population count across its data bytes) is the engine.
		// Ties go to whichever message was seen first.
		best := -1
		var bestTx byte
		haveBest := false
		for _, msg := range parsed {
			n := popcount(msg.Data)
			if n > best {
				best = n
				bestTx, _ = msg.TxID()
				haveBest = true
			}
		}
		if haveBest {
			m.roles[bestTx] = ECUEngine
		}
	}

	for _, msg := range parsed {
		tx, _ := msg.TxID()
		if _, ok := m.roles[tx]; !ok {
			m.roles[tx] = ECUUnknown
		}
	}
}

func popcount(data []byte) int {
	n := 0
	for _, b := range data {
		n += bits.OnesCount8(b)
	}
	return n
}
