package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadTopology(t *testing.T) {
	db := openTestDB(t)
	roles := []ECURecord{
		{TxID: 0x00, Role: "ENGINE"},
		{TxID: 0x01, Role: "TRANSMISSION"},
	}
	require.NoError(t, SaveTopology(db, roles))

	loaded, err := LoadTopology(db)
	require.NoError(t, err)
	assert.ElementsMatch(t, roles, loaded)
}

func TestLoadTopologyEmptyByDefault(t *testing.T) {
	db := openTestDB(t)
	loaded, err := LoadTopology(db)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSaveTopologyOverwritesPrevious(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, SaveTopology(db, []ECURecord{{TxID: 0x00, Role: "ENGINE"}}))
	require.NoError(t, SaveTopology(db, []ECURecord{{TxID: 0x01, Role: "TRANSMISSION"}}))

	loaded, err := LoadTopology(db)
	require.NoError(t, err)
	assert.Equal(t, []ECURecord{{TxID: 0x01, Role: "TRANSMISSION"}}, loaded)
}
