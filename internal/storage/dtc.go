// Package storage persists diagnostic trouble codes and ECU topology
// across process restarts with an embedded bbolt database, so a restart
// doesn't cause the publisher to re-announce every already-known DTC.
package storage

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	dtcBucket      = "active_dtcs"
	topologyBucket = "ecu_topology"
)

// Open opens (or creates) a bbolt database at path and ensures both
// buckets this package uses exist.
func Open(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("storage: opening %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(dtcBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(topologyBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: initializing buckets: %w", err)
	}
	return db, nil
}

// IsNewDTC reports whether code is new (not seen before), recording it if
// so.
func IsNewDTC(db *bolt.DB, code string) (bool, error) {
	key := []byte(code)
	var isNew bool
	err := db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(dtcBucket))
		if b.Get(key) == nil {
			isNew = true
			return b.Put(key, []byte{1})
		}
		isNew = false
		return nil
	})
	return isNew, err
}

// RemoveDTC deletes a single stored code (e.g. once a pending-code PID
// reports it has cleared).
func RemoveDTC(db *bolt.DB, code string) error {
	return db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(dtcBucket)).Delete([]byte(code))
	})
}

// ClearAllDTCs resets the dedup set, matching an OBD-II mode 04 clear.
func ClearAllDTCs(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(dtcBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(dtcBucket))
		return err
	})
}
