package obd

import (
	"fmt"
	"strings"
)

// Protocol is the sum type over every OBD transport-layer variant this
// tool can speak: a handful of CAN bus widths/bitrates, SAE J1939, and the
// legacy non-CAN buses carried only as inert tagged variants. A caller
// picks a concrete Protocol by the ELM327 protocol number reported after
// "ATDPN", then drives it with Call for every subsequent batch of adapter
// lines.
type Protocol interface {
	// ELMName is the human-readable protocol name ELM327 reports.
	ELMName() string
	// ELMID is the single-character protocol number ELM327 reports.
	ELMID() string
	// Call decodes one batch of raw adapter lines into Messages. It never
	// fails the whole batch: malformed frames/messages are dropped, and
	// adapter status lines are preserved as UNKNOWN-tagged messages.
	Call(lines []string) []*Message
	// LookupECU returns the role assigned to tx, or ECUUnknown if tx was
	// never seen in the initial "0100" round-trip.
	LookupECU(tx byte) ECU
}

// Variant is the static metadata distinguishing one CAN protocol from
// another; every behavioral difference between them is just which of these
// three fields is set.
type Variant struct {
	ELMName string
	ELMID   string
	IDBits  int // 11 or 29
}

var (
	VariantISO15765_4_11bit500k = Variant{"ISO 15765-4 (CAN 11/500)", "6", 11}
	VariantISO15765_4_29bit500k = Variant{"ISO 15765-4 (CAN 29/500)", "7", 29}
	VariantISO15765_4_11bit250k = Variant{"ISO 15765-4 (CAN 11/250)", "8", 11}
	VariantISO15765_4_29bit250k = Variant{"ISO 15765-4 (CAN 29/250)", "9", 29}
	// VariantSAEJ1939 is a 29-bit variant decoded with the exact same
	// frame/message logic as the other CAN variants; J1939's PGN-level
	// semantics live above this package, in the command catalog.
	VariantSAEJ1939 = Variant{"SAE J1939 (CAN 29/250)", "A", 29}
)

// txIDEngineCAN is the engine transmitter id every CAN variant expects.
// It is a real, meaningful tx_id (0), not a sentinel for "absent" — see
// CANProtocol's use of *byte to model the "no expectation" case explicitly.
var txIDEngineCAN = byte(0)

// CANProtocol implements Protocol for the ISO 15765-4 / SAE J1939 family.
type CANProtocol struct {
	variant Variant
	ecus    *ecuMap
}

// NewCANProtocol constructs a CANProtocol and populates its ECU map from
// lines0100, the raw adapter response to the "0100" (supported PIDs 01-20)
// query. Construction runs the full decode/assemble pipeline over
// lines0100 with ECU tagging disabled, then runs the ECU-mapping algorithm
// over the result.
func NewCANProtocol(variant Variant, lines0100 []string) *CANProtocol {
	p := &CANProtocol{variant: variant, ecus: newECUMap()}
	messages := p.call(lines0100, false)
	p.ecus.populate(messages, &txIDEngineCAN)
	return p
}

func (p *CANProtocol) ELMName() string { return p.variant.ELMName }
func (p *CANProtocol) ELMID() string   { return p.variant.ELMID }

func (p *CANProtocol) LookupECU(tx byte) ECU {
	return p.ecus.lookup(tx)
}

func (p *CANProtocol) Call(lines []string) []*Message {
	return p.call(lines, true)
}

// call is the shared implementation behind both construction and Call;
// tagECUs is false only during the construction round-trip, since the ECU
// map doesn't exist yet at that point.
func (p *CANProtocol) call(lines []string, tagECUs bool) []*Message {
	var obdLines []string
	var adapterLines []string

	for _, line := range lines {
		stripped := strings.ReplaceAll(line, " ", "")
		if isHexLine(stripped) {
			obdLines = append(obdLines, stripped)
		} else {
			adapterLines = append(adapterLines, line) // pass the original, un-scrubbed line
		}
	}

	frames := make([]*Frame, 0, len(obdLines))
	for _, line := range obdLines {
		frame, ok := decodeFrame(line, p.variant.IDBits)
		if !ok {
			defaultDebug.Printf("%s: dropping unparsable frame %q", p.variant.ELMName, line)
			continue
		}
		frames = append(frames, frame)
	}

	order, groups := groupFramesByTxID(frames)

	messages := make([]*Message, 0, len(order)+len(adapterLines))
	for _, tx := range order {
		msg, ok := assembleMessage(groups[tx])
		if !ok {
			defaultDebug.Printf("%s: dropping unassemblable message from tx_id 0x%02X", p.variant.ELMName, tx)
			continue
		}
		if tagECUs {
			msg.ECU = p.LookupECU(tx)
		}
		messages = append(messages, msg)
	}

	for _, line := range adapterLines {
		messages = append(messages, &Message{Frames: []*Frame{{Raw: line}}, ECU: ECUUnknown})
	}

	return messages
}

// groupFramesByTxID partitions frames by transmitter id, returning the
// ids in first-seen order alongside the grouping itself, so that Call's
// output is deterministic across runs with the same input.
func groupFramesByTxID(frames []*Frame) ([]byte, map[byte][]*Frame) {
	groups := make(map[byte][]*Frame)
	order := make([]byte, 0, len(frames))
	for _, f := range frames {
		if _, ok := groups[f.TxID]; !ok {
			order = append(order, f.TxID)
		}
		groups[f.TxID] = append(groups[f.TxID], f)
	}
	return order, groups
}

// legacyFamily names the non-CAN bus a LegacyProtocol variant belongs to.
// It carries no decoding behavior of its own; it exists so the sum type
// has a tagged slot for each legacy bus without pretending to speak it.
type legacyFamily int

const (
	legacyJ1850 legacyFamily = iota
	legacyISO9141
	legacyKWP
)

// LegacyProtocol is the inert tagged variant for the non-CAN buses this
// tool doesn't decode (SAE J1850, ISO 9141-2, ISO 14230-4/KWP2000). It
// satisfies Protocol so the driver can still be selected by ELM protocol
// number; Call passes every line through untouched as an UNKNOWN message,
// since there is no frame/PCI format here to parse.
type LegacyProtocol struct {
	family  legacyFamily
	elmName string
	elmID   string
}

func (p *LegacyProtocol) ELMName() string      { return p.elmName }
func (p *LegacyProtocol) ELMID() string        { return p.elmID }
func (p *LegacyProtocol) LookupECU(byte) ECU   { return ECUUnknown }
func (p *LegacyProtocol) Call(lines []string) []*Message {
	messages := make([]*Message, 0, len(lines))
	for _, line := range lines {
		messages = append(messages, &Message{Frames: []*Frame{{Raw: line}}, ECU: ECUUnknown})
	}
	return messages
}

// NewProtocol selects and constructs the Protocol matching an ELM327
// protocol number (as reported by "ATDPN"). lines0100 is only consulted
// for the CAN variants, to populate their ECU map.
func NewProtocol(elmID string, lines0100 []string) (Protocol, error) {
	switch elmID {
	case "6":
		return NewCANProtocol(VariantISO15765_4_11bit500k, lines0100), nil
	case "7":
		return NewCANProtocol(VariantISO15765_4_29bit500k, lines0100), nil
	case "8":
		return NewCANProtocol(VariantISO15765_4_11bit250k, lines0100), nil
	case "9":
		return NewCANProtocol(VariantISO15765_4_29bit250k, lines0100), nil
	case "A":
		return NewCANProtocol(VariantSAEJ1939, lines0100), nil
	case "1":
		return &LegacyProtocol{legacyJ1850, "SAE J1850 PWM", "1"}, nil
	case "2":
		return &LegacyProtocol{legacyJ1850, "SAE J1850 VPW", "2"}, nil
	case "3":
		return &LegacyProtocol{legacyISO9141, "ISO 9141-2", "3"}, nil
	case "4":
		return &LegacyProtocol{legacyKWP, "ISO 14230-4 (KWP 5BAUD)", "4"}, nil
	case "5":
		return &LegacyProtocol{legacyKWP, "ISO 14230-4 (KWP FAST)", "5"}, nil
	default:
		return nil, fmt.Errorf("obd: unknown ELM protocol id %q", elmID)
	}
}
