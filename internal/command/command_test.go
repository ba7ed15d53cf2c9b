package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEngineRPM(t *testing.T) {
	r := NewRegistry()
	cmd, ok := r.Lookup(0x01, 0x0C)
	require.True(t, ok)
	v, err := cmd.Decode([]byte{0x1A, 0xF8})
	require.NoError(t, err)
	assert.InDelta(t, 1726.0, v, 0.01)
}

func TestDecodeVehicleSpeed(t *testing.T) {
	r := NewRegistry()
	cmd, ok := r.Lookup(0x01, 0x0D)
	require.True(t, ok)
	v, err := cmd.Decode([]byte{0x32})
	require.NoError(t, err)
	assert.Equal(t, 50, v)
}

func TestDecodeSupportedPIDs(t *testing.T) {
	r := NewRegistry()
	cmd, ok := r.Lookup(0x01, 0x00)
	require.True(t, ok)
	v, err := cmd.Decode([]byte{0xBE, 0x3F, 0xA8, 0x13})
	require.NoError(t, err)
	assert.Equal(t, uint32(0xBE3FA813), v)
}

func TestDecodeVIN(t *testing.T) {
	r := NewRegistry()
	cmd, ok := r.Lookup(0x09, 0x02)
	require.True(t, ok)
	v, err := cmd.Decode([]byte{0x01, 'W', 'V', 'W', 'Z', 'Z', 'Z'})
	require.NoError(t, err)
	assert.Equal(t, "WVWZZZ", v)
}

func TestDecodeDTCs(t *testing.T) {
	codes, err := DecodeDTCs([]byte{0x03, 0x01, 0x00, 0x00, 0x41, 0x23})
	require.NoError(t, err)
	assert.Equal(t, []string{"P0301", "C0123"}, codes)
}

func TestDecodeDTCsOddLength(t *testing.T) {
	_, err := DecodeDTCs([]byte{0x03})
	assert.Error(t, err)
}

func TestLookupUnknownPID(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup(0x01, 0xFF)
	assert.False(t, ok)
}

func TestCachingRegistryReturnsSameValueOnRepeat(t *testing.T) {
	r, err := NewCachingRegistry(16)
	require.NoError(t, err)

	name, v1, err := r.Decode(0x01, 0x0C, []byte{0x1A, 0xF8})
	require.NoError(t, err)
	assert.Equal(t, "ENGINE_RPM", name)

	_, v2, err := r.Decode(0x01, 0x0C, []byte{0x1A, 0xF8})
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestCachingRegistryUnknownCommand(t *testing.T) {
	r, err := NewCachingRegistry(16)
	require.NoError(t, err)
	_, _, err = r.Decode(0x01, 0xFE, []byte{0x01})
	assert.Error(t, err)
}

func TestFormatDTCFamilies(t *testing.T) {
	assert.Equal(t, "P0301", formatDTC(0x03, 0x01))
	assert.Equal(t, "C0123", formatDTC(0x41, 0x23))
	assert.Equal(t, "B0001", formatDTC(0x80, 0x01))
	assert.Equal(t, "U0001", formatDTC(0xC0, 0x01))
}
