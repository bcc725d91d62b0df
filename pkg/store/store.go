// Package store persists scenes in a bbolt database, one snapshot per
// scene name.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/chazu/elfin/pkg/assembly"
	"github.com/chazu/elfin/pkg/xdb"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const bucketScenes = "scenes"

// ErrNotFound is returned by Load and Delete for an unknown scene name.
var ErrNotFound = errors.New("store: scene not found")

// Store is an open scene database.
type Store struct {
	db  *bolt.DB
	log *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Open opens or creates the database at path. It fails after a second if
// another process holds the file.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketScenes))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: initialize %s: %w", path, err)
	}
	s := &Store{db: db, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes the snapshot of scene under name, replacing any earlier one.
func (s *Store) Save(name string, scene *assembly.Scene) error {
	var buf bytes.Buffer
	if err := scene.Snapshot().Encode(&buf); err != nil {
		return fmt.Errorf("store: encode %s: %w", name, err)
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketScenes)).Put([]byte(name), buf.Bytes())
	})
	if err != nil {
		return fmt.Errorf("store: save %s: %w", name, err)
	}
	s.log.Debug("saved scene", zap.String("scene", name), zap.Int("objects", scene.Len()), zap.Int("bytes", buf.Len()))
	return nil
}

// Load rebuilds the scene saved under name against db.
func (s *Store) Load(name string, db *xdb.DB, opts ...assembly.Option) (*assembly.Scene, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketScenes)).Get([]byte(name))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid inside the transaction.
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", name, err)
	}
	snap, err := assembly.DecodeSnapshot(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", name, err)
	}
	scene, err := assembly.Restore(db, snap, opts...)
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", name, err)
	}
	s.log.Debug("loaded scene", zap.String("scene", name), zap.Int("objects", scene.Len()))
	return scene, nil
}

// LoadOrNew is Load, except that an unknown name yields an empty scene.
func (s *Store) LoadOrNew(name string, db *xdb.DB, opts ...assembly.Option) (*assembly.Scene, error) {
	scene, err := s.Load(name, db, opts...)
	if errors.Is(err, ErrNotFound) {
		return assembly.New(db, opts...), nil
	}
	return scene, err
}

// Names lists the saved scenes in key order.
func (s *Store) Names() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketScenes)).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

// Delete removes the scene saved under name.
func (s *Store) Delete(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketScenes))
		if b.Get([]byte(name)) == nil {
			return fmt.Errorf("store: delete %s: %w", name, ErrNotFound)
		}
		return b.Delete([]byte(name))
	})
}
