package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEEC1(t *testing.T) {
	c, ok := LookupJ1939(PGNEEC1)
	require.True(t, ok)
	out, err := c.Decode([]byte{0x00, 0x00, 0x7D, 0x40, 0x1F})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, out["EngineLoad"], 0.01) // byte 125 -> 0
	assert.InDelta(t, float64(0x1F40)*0.125, out["EngineRPM"], 0.01)
}

func TestDecodeEEC1NotAvailable(t *testing.T) {
	c, _ := LookupJ1939(PGNEEC1)
	out, err := c.Decode([]byte{0x00, 0x00, 0xFF, 0xFF, 0xFF})
	require.NoError(t, err)
	_, hasLoad := out["EngineLoad"]
	_, hasRPM := out["EngineRPM"]
	assert.False(t, hasLoad)
	assert.False(t, hasRPM)
}

func TestLookupUnknownPGN(t *testing.T) {
	_, ok := LookupJ1939(0x1234)
	assert.False(t, ok)
}

func TestDecodeDM1SingleDTC(t *testing.T) {
	// lamp status (2 bytes) + one DTC record: SPN=190, FMI=3, OC=5
	data := []byte{0x00, 0xFF, 0xBE, 0x00, 0x03, 0x05}
	dtcs, err := DecodeDM(data)
	require.NoError(t, err)
	require.Len(t, dtcs, 1)
	assert.Equal(t, uint32(190), dtcs[0].SPN)
	assert.Equal(t, byte(3), dtcs[0].FMI)
	assert.Equal(t, byte(5), dtcs[0].OC)
}

func TestDecodeDMTooShort(t *testing.T) {
	_, err := DecodeDM([]byte{0x00, 0xFF})
	assert.Error(t, err)
}

func TestDecodeDMMultipleRecords(t *testing.T) {
	data := []byte{
		0x00, 0xFF,
		0xBE, 0x00, 0x60, 0x05, // SPN 190 | 3<<16 = 196798, FMI 0, OC 5
		0x5E, 0x00, 0x03, 0x01, // SPN 94, FMI 3, OC 1
	}
	dtcs, err := DecodeDM(data)
	require.NoError(t, err)
	require.Len(t, dtcs, 2)
	assert.Equal(t, uint32(94), dtcs[1].SPN)
}
