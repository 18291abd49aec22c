package export

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const archiveBucketName = "exports"

// Record is an archived export
type Record struct {
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Data        []byte    `json:"data"`
	SavedAt     time.Time `json:"saved_at"`
}

// BoltArchive implements Saver by keeping every export in a bbolt file,
// keyed by export name
type BoltArchive struct {
	db  *bbolt.DB
	now func() time.Time
}

// NewBoltArchive opens (or creates) the archive at path
func NewBoltArchive(path string) (*BoltArchive, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(archiveBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltArchive{db: db, now: time.Now}, nil
}

// Save stores the artifact, replacing an earlier export with the same name
func (b *BoltArchive) Save(artifact Artifact) (string, error) {
	record := Record{
		Name:        artifact.Name,
		ContentType: artifact.ContentType,
		Data:        artifact.Data,
		SavedAt:     b.now().UTC(),
	}
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(archiveBucketName))
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshaling export: %w", err)
		}
		return bucket.Put([]byte(record.Name), data)
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s#%s", b.db.Path(), record.Name), nil
}

// Get retrieves an archived export by name
func (b *BoltArchive) Get(name string) (*Record, error) {
	var record *Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(archiveBucketName))
		data := bucket.Get([]byte(name))
		if data == nil {
			return fmt.Errorf("export not found: %s", name)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List returns every archived export ordered by name
func (b *BoltArchive) List() ([]*Record, error) {
	records := make([]*Record, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(archiveBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("unmarshaling export: %w", err)
			}
			records = append(records, &record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Close closes the database
func (b *BoltArchive) Close() error {
	return b.db.Close()
}
