package obd

import "sort"

// Message is one fully assembled OBD response: either a single frame or a
// reassembled ISO-TP multi-frame transfer, with PCI and mode/PID bytes
// already stripped from Data.
type Message struct {
	// Frames are the frames this message was built from. A Message
	// exclusively owns its Frames; nothing else may reference them once
	// the message is returned.
	Frames []*Frame
	ECU    ECU
	Data   []byte
}

// TxID returns the transmitter id shared by all of the message's frames.
func (m *Message) TxID() (byte, bool) {
	if len(m.Frames) == 0 {
		return 0, false
	}
	return m.Frames[0].TxID, true
}

// Parsed reports whether assembly produced a non-empty payload.
func (m *Message) Parsed() bool {
	return len(m.Data) > 0
}

// assembleMessage groups a single ECU's frames into a Message, reassembling
// an ISO-TP multi-frame transfer if necessary, then strips the mode/PID (or
// DTC-count) prefix from the result. ok is false if the group is malformed
// beyond recovery, in which case the caller drops the whole message.
func assembleMessage(frames []*Frame) (*Message, bool) {
	msg := &Message{Frames: frames, ECU: ECUUnknown}

	var data []byte
	if len(frames) == 1 {
		frame := frames[0]
		if frame.Type != FrameTypeSF {
			return nil, false
		}

		// extract data, ignoring the PCI byte and anything past the
		// declared length (adapter padding)
		//             [      Frame       ]
		//                [     Data      ]
		// 00 00 07 E8 06 41 00 BE 7F B8 13 xx xx xx xx
		end := 1 + frame.DataLen
		if end > len(frame.Data) {
			end = len(frame.Data)
		}
		if end < 1 {
			end = 1
		}
		data = append([]byte(nil), frame.Data[1:end]...)
	} else {
		var ff *Frame
		var cf []*Frame
		for _, f := range frames {
			switch f.Type {
			case FrameTypeFF:
				if ff != nil {
					return nil, false
				}
				ff = f
			case FrameTypeCF:
				cf = append(cf, f)
			default:
				// not part of this reassembly; ignored
			}
		}
		if ff == nil || len(cf) == 0 {
			return nil, false
		}

		// Reconstruct the full sequence index from the 4-bit wire value
		// and the previous frame's already-reconstructed index: take the
		// high order bits from the previous index and the low order bits
		// from this frame, then detect rollover (a low nibble that
		// appears to have decreased by more than 7 means it wrapped
		// forward past 0xF, not jumped backward).
		for i := 1; i < len(cf); i++ {
			prev, curr := cf[i-1], cf[i]
			seq := (prev.SeqIndex &^ 0x0F) | (curr.SeqIndex & 0x0F)
			if seq < prev.SeqIndex-7 {
				seq += 0x10
			}
			curr.SeqIndex = seq
		}

		sort.Slice(cf, func(i, j int) bool { return cf[i].SeqIndex < cf[j].SeqIndex })

		for i, f := range cf {
			if f.SeqIndex != i+1 {
				return nil, false
			}
		}

		// first frame: 2-byte PCI (type nibble + 12-bit length), then data
		// consecutive frame: 1-byte PCI (type nibble + 4-bit sequence), then data
		data = append([]byte(nil), ff.Data[2:]...)
		for _, f := range cf {
			data = append(data, f.Data[1:]...)
		}
		if ff.DataLen < len(data) {
			data = data[:ff.DataLen]
		}
	}

	msg.Data = stripModePID(data)
	return msg, true
}

// stripModePID removes the response-mode prefix from an assembled payload.
// Mode 0x43 (stored DTCs) carries its own length code (a DTC count) instead
// of a PID byte, so it is handled specially; every other mode is a plain
// mode+PID pair.
func stripModePID(data []byte) []byte {
	if len(data) == 0 {
		return data
	}

	mode := data[0]
	if mode == 0x43 {
		if len(data) < 2 {
			return nil
		}
		// TODO: confirm against real hardware; this mirrors the
		// original implementation, which flagged it as untested.
		n := int(data[1]) * 2
		rest := data[2:]
		if n > len(rest) {
			n = len(rest)
		}
		return append([]byte(nil), rest[:n]...)
	}

	if len(data) < 2 {
		return nil
	}
	return append([]byte(nil), data[2:]...)
}
