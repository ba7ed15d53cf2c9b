package storage

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// ECURecord is the persisted form of one tx_id -> role mapping, named
// generically so it survives round-tripping independent of the obd
// package's ECU bit-flag representation.
type ECURecord struct {
	TxID byte   `json:"tx_id"`
	Role string `json:"role"`
}

// SaveTopology overwrites the stored ECU map with roles. Persisting it
// lets a future run skip the brief "0100" discovery window's ambiguity
// (e.g. a one-off dropped frame) by falling back to the last known-good
// mapping if discovery comes up empty.
func SaveTopology(db *bolt.DB, roles []ECURecord) error {
	return db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(topologyBucket)); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		b, err := tx.CreateBucket([]byte(topologyBucket))
		if err != nil {
			return err
		}
		for _, r := range roles {
			data, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("storage: marshaling ECU record for tx_id 0x%02X: %w", r.TxID, err)
			}
			if err := b.Put([]byte{r.TxID}, data); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadTopology returns the last persisted ECU map, empty if none was ever
// saved.
func LoadTopology(db *bolt.DB) ([]ECURecord, error) {
	var roles []ECURecord
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(topologyBucket))
		return b.ForEach(func(k, v []byte) error {
			var r ECURecord
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("storage: unmarshaling ECU record for key %X: %w", k, err)
			}
			roles = append(roles, r)
			return nil
		})
	})
	return roles, err
}
