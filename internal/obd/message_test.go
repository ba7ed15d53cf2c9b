package obd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func sf(txID byte, pciAndPayload ...byte) *Frame {
	return &Frame{
		TxID:    txID,
		Type:    FrameTypeSF,
		Data:    pciAndPayload,
		DataLen: int(pciAndPayload[0] & 0x0F),
	}
}

func ff(txID byte, dataLen int, pci0 byte, payload ...byte) *Frame {
	data := append([]byte{pci0, byte(dataLen)}, payload...)
	return &Frame{TxID: txID, Type: FrameTypeFF, DataLen: dataLen, Data: data}
}

func cf(txID byte, seq int, payload ...byte) *Frame {
	data := append([]byte{byte(0x20 | (seq & 0x0F))}, payload...)
	return &Frame{TxID: txID, Type: FrameTypeCF, SeqIndex: seq, Data: data}
}

func TestAssembleMessageSingleFrame(t *testing.T) {
	// mode 0x41, pid 0x0C, data [0x1A, 0xF8]
	f := sf(0, 0x04, 0x41, 0x0C, 0x1A, 0xF8)
	msg, ok := assembleMessage([]*Frame{f})
	require.True(t, ok)
	assert.Equal(t, []byte{0x1A, 0xF8}, msg.Data)
}

func TestAssembleMessageVINMultiFrame(t *testing.T) {
	// mode 0x49 (vehicle info), pid 0x02, VIN bytes split across FF + 2 CFs
	first := ff(0, 20, 0x10, 0x49, 0x02, 0x01, 'W', 'V', 'W')
	second := cf(0, 1, 'Z', 'Z', 'Z', '1', 'K', 'J', 'Z')
	third := cf(0, 2, 'W', 'X', '1', '2', '3', '4', '5')
	msg, ok := assembleMessage([]*Frame{first, second, third})
	require.True(t, ok)
	// stripModePID only removes the generic 2-byte mode+pid prefix; the
	// mode-0x49 message index byte (0x01 here) passes through as data.
	assert.Equal(t, append([]byte{0x01}, []byte("WVWZZZ1KJZWX12345")...), msg.Data)
}

func TestAssembleMessageSequenceRollover(t *testing.T) {
	// CF indices arrive as 1,2,...,15,0,1 and must reconstruct to
	// 1,2,...,15,16,17.
	frames := []*Frame{ff(0, 100, 0x10, 0xAA)}
	for i := 1; i <= 15; i++ {
		frames = append(frames, cf(0, i, byte(i)))
	}
	frames = append(frames, cf(0, 0, 0x10)) // wire nibble 0 -> reconstructed 16
	frames = append(frames, cf(0, 1, 0x11)) // wire nibble 1 -> reconstructed 17

	msg, ok := assembleMessage(frames)
	require.True(t, ok)
	// ff.DataLen=100 clamps nothing here since payload is short; just check
	// ordering survived the rollover by checking the trailing bytes landed
	// in the right place. stripModePID removes the first two bytes of the
	// assembled payload (0xAA, 0x01), so the last two bytes of Data are
	// still 0x10, 0x11.
	assert.Equal(t, []byte{0x10, 0x11}, msg.Data[len(msg.Data)-2:])
}

func TestAssembleMessageNonContiguousSequenceDropped(t *testing.T) {
	frames := []*Frame{
		ff(0, 10, 0x10, 0xAA),
		cf(0, 1, 0x01),
		cf(0, 3, 0x03), // gap: index 2 never arrived
	}
	_, ok := assembleMessage(frames)
	assert.False(t, ok)
}

func TestAssembleMessageTwoFirstFramesDropped(t *testing.T) {
	frames := []*Frame{
		ff(0, 10, 0x10, 0xAA),
		ff(0, 10, 0x10, 0xBB),
		cf(0, 1, 0x01),
	}
	_, ok := assembleMessage(frames)
	assert.False(t, ok)
}

func TestAssembleMessageNoFirstFrameDropped(t *testing.T) {
	frames := []*Frame{
		cf(0, 1, 0x01),
		cf(0, 2, 0x02),
	}
	_, ok := assembleMessage(frames)
	assert.False(t, ok)
}

func TestAssembleMessageMultiFrameNonSFType(t *testing.T) {
	// a lone frame whose type isn't SF can't be assembled as a single frame
	frame := &Frame{TxID: 0, Type: FrameTypeFF, Data: []byte{0x10, 0x05, 0x41}, DataLen: 5}
	_, ok := assembleMessage([]*Frame{frame})
	assert.False(t, ok)
}

func TestStripModePIDStandardMode(t *testing.T) {
	assert.Equal(t, []byte{0xBE, 0xEF}, stripModePID([]byte{0x41, 0x0C, 0xBE, 0xEF}))
}

func TestStripModePIDDTCCount(t *testing.T) {
	// mode 0x43, count byte says "2 DTCs" -> 4 bytes of DTC data follow
	data := stripModePID([]byte{0x43, 0x02, 0x01, 0x02, 0x03, 0x04, 0x05})
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, data)
}

func TestStripModePIDDTCCountClampsToAvailable(t *testing.T) {
	data := stripModePID([]byte{0x43, 0x05, 0x01, 0x02})
	assert.Equal(t, []byte{0x01, 0x02}, data)
}

func TestStripModePIDEmpty(t *testing.T) {
	assert.Nil(t, stripModePID(nil))
	assert.Nil(t, stripModePID([]byte{0x41}))
}

// TestAssembleMessagePropertyDataLenBound checks the invariant that a
// reassembled single-frame message's data is never longer than 7 bytes once
// the PCI byte is accounted for, across arbitrary declared lengths.
func TestAssembleMessagePropertyDataLenBound(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		declaredLen := rapid.IntRange(0, 7).Draw(rt, "declaredLen")
		payload := rapid.SliceOfN(rapid.Byte(), 7, 7).Draw(rt, "payload")
		pci := byte(declaredLen) & 0x0F
		frame := &Frame{TxID: 0, Type: FrameTypeSF, DataLen: declaredLen, Data: append([]byte{pci}, payload...)}

		msg, ok := assembleMessage([]*Frame{frame})
		if !ok {
			rt.Fatalf("assembleMessage rejected a well-formed single frame: %+v", frame)
		}
		assert.LessOrEqual(rt, len(msg.Data), 7)
	})
}
