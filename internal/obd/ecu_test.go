package obd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestECUBitmaskInvariants(t *testing.T) {
	assert.False(t, ECUAllKnown.Matches(ECUUnknown))
	assert.True(t, ECUAllKnown.Matches(ECUEngine))
	assert.True(t, ECUAllKnown.Matches(ECUTransmission))
	assert.True(t, ECUAll.Matches(ECUUnknown))
	assert.True(t, ECUAll.Matches(ECUEngine))
	assert.Equal(t, ECUUnknown|ECUAllKnown, ECUAll)
}

func TestECUStringNames(t *testing.T) {
	assert.Equal(t, "UNKNOWN", ECUUnknown.String())
	assert.Equal(t, "ENGINE", ECUEngine.String())
	assert.Equal(t, "TRANSMISSION", ECUTransmission.String())
	assert.Equal(t, "ALL_KNOWN", ECUAllKnown.String())
	assert.Equal(t, "ALL", ECUAll.String())
}

func TestLookupUnpopulatedDefaultsToUnknown(t *testing.T) {
	m := newECUMap()
	assert.Equal(t, ECUUnknown, m.lookup(0x10))
}

func TestPopulateNoParsedMessages(t *testing.T) {
	m := newECUMap()
	m.populate([]*Message{{Frames: []*Frame{{TxID: 0}}, Data: nil}}, &txIDEngineCAN)
	assert.Equal(t, ECUUnknown, m.lookup(0))
}

func TestPopulateSingleResponderIsEngine(t *testing.T) {
	m := newECUMap()
	msg := &Message{Frames: []*Frame{{TxID: 0x00}}, Data: []byte{0xBE, 0x3F, 0xA8, 0x13}}
	m.populate([]*Message{msg}, &txIDEngineCAN)
	assert.Equal(t, ECUEngine, m.lookup(0x00))
}

func TestPopulateKnownEngineTxID(t *testing.T) {
	m := newECUMap()
	engine := &Message{Frames: []*Frame{{TxID: 0x00}}, Data: []byte{0x01}}
	other := &Message{Frames: []*Frame{{TxID: 0x01}}, Data: []byte{0xFF}}
	m.populate([]*Message{engine, other}, &txIDEngineCAN)
	assert.Equal(t, ECUEngine, m.lookup(0x00))
	assert.Equal(t, ECUUnknown, m.lookup(0x01))
}

// TestPopulatePopcountDisambiguation covers the "no expected engine tx_id
// responded" fallback: among responders, the one advertising the most
// supported PIDs (highest population count across its data bytes) is
// assigned the engine role, with ties broken by first-seen order.
func TestPopulatePopcountDisambiguation(t *testing.T) {
	m := newECUMap()
	// neither responder uses tx_id 0, so the expected-id path never fires
	low := &Message{Frames: []*Frame{{TxID: 0x01}}, Data: []byte{0x01}}        // popcount 1
	high := &Message{Frames: []*Frame{{TxID: 0x02}}, Data: []byte{0xFF, 0xFF}} // popcount 16
	m.populate([]*Message{low, high}, &txIDEngineCAN)
	assert.Equal(t, ECUEngine, m.lookup(0x02))
	assert.Equal(t, ECUUnknown, m.lookup(0x01))
}

func TestPopulatePopcountTieBreaksFirstSeen(t *testing.T) {
	m := newECUMap()
	first := &Message{Frames: []*Frame{{TxID: 0x01}}, Data: []byte{0x0F}}
	second := &Message{Frames: []*Frame{{TxID: 0x02}}, Data: []byte{0xF0}}
	m.populate([]*Message{first, second}, &txIDEngineCAN)
	assert.Equal(t, ECUEngine, m.lookup(0x01))
	assert.Equal(t, ECUUnknown, m.lookup(0x02))
}

func TestPopulateNoExpectedTxIDForLegacyLikeVariant(t *testing.T) {
	m := newECUMap()
	only := &Message{Frames: []*Frame{{TxID: 0x21}}, Data: []byte{0x01}}
	second := &Message{Frames: []*Frame{{TxID: 0x22}}, Data: []byte{0x03}}
	m.populate([]*Message{only, second}, nil)
	// with no expected tx_id at all, popcount disambiguation still applies
	assert.Equal(t, ECUEngine, m.lookup(0x22))
}

func TestPopcountHelper(t *testing.T) {
	assert.Equal(t, 0, popcount(nil))
	assert.Equal(t, 8, popcount([]byte{0xFF}))
	assert.Equal(t, 4, popcount([]byte{0x0F, 0x00}))
}
