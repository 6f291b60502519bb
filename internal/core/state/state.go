// Package state manages the fmutools run history using BoltDB.
// All writes are transactional; reads use read-only transactions to minimise contention.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	v1 "github.com/f9-o/fmutools/api/v1"
	"github.com/f9-o/fmutools/pkg/errs"
)

// Bucket names
var (
	bucketDesigns = []byte("designs")
	bucketTornado = []byte("tornado")
)

// DB wraps a BoltDB instance with typed accessor methods.
type DB struct {
	bolt *bbolt.DB
}

// Open opens (or creates) the state database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, errs.New(errs.ErrStateWrite, "state.open", err).WithResource(path)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errs.New(errs.ErrStateRead, "state.open", err).WithResource(path).
			WithAdvice("another fmutools process may hold the state database")
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketDesigns, bucketTornado} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %q: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errs.New(errs.ErrStateWrite, "state.init_buckets", err).WithResource(path)
	}

	return &DB{bolt: db}, nil
}

// Close closes the underlying BoltDB file.
func (db *DB) Close() error {
	return db.bolt.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// Design runs
// ─────────────────────────────────────────────────────────────────────────────

// PutDesign stores rec, assigning an ID and timestamp when missing.
func (db *DB) PutDesign(rec *v1.DesignRecord) error {
	stamp(&rec.ID, &rec.CreatedAt)
	return db.putJSON(bucketDesigns, rec.ID, rec)
}

// GetDesign retrieves a design record. Returns nil, nil if not found.
func (db *DB) GetDesign(id string) (*v1.DesignRecord, error) {
	var rec v1.DesignRecord
	found, err := db.getJSON(bucketDesigns, id, &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// ListDesigns returns all design records, newest first.
func (db *DB) ListDesigns() ([]v1.DesignRecord, error) {
	var recs []v1.DesignRecord
	err := db.forEach(bucketDesigns, func() any { return &v1.DesignRecord{} }, func(v any) {
		recs = append(recs, *v.(*v1.DesignRecord))
	})
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
	return recs, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Tornado runs
// ─────────────────────────────────────────────────────────────────────────────

// PutTornado stores rec, assigning an ID and timestamp when missing.
func (db *DB) PutTornado(rec *v1.TornadoRecord) error {
	stamp(&rec.ID, &rec.CreatedAt)
	return db.putJSON(bucketTornado, rec.ID, rec)
}

// GetTornado retrieves a tornado record. Returns nil, nil if not found.
func (db *DB) GetTornado(id string) (*v1.TornadoRecord, error) {
	var rec v1.TornadoRecord
	found, err := db.getJSON(bucketTornado, id, &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// ListTornado returns tornado records, newest first. A non-empty response
// keeps only records for that response.
func (db *DB) ListTornado(response string) ([]v1.TornadoRecord, error) {
	var recs []v1.TornadoRecord
	err := db.forEach(bucketTornado, func() any { return &v1.TornadoRecord{} }, func(v any) {
		r := v.(*v1.TornadoRecord)
		if response == "" || r.Response == response {
			recs = append(recs, *r)
		}
	})
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
	return recs, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Generic helpers
// ─────────────────────────────────────────────────────────────────────────────

func stamp(id *string, at *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if at.IsZero() {
		*at = time.Now().UTC()
	}
}

func (db *DB) putJSON(bucket []byte, key string, val any) error {
	data, err := json.Marshal(val)
	if err != nil {
		return errs.New(errs.ErrStateWrite, "state.put", fmt.Errorf("marshal: %w", err))
	}
	if err := db.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	}); err != nil {
		return errs.New(errs.ErrStateWrite, "state.put", err).WithResource(string(bucket) + "/" + key)
	}
	return nil
}

func (db *DB) getJSON(bucket []byte, key string, out any) (bool, error) {
	var found bool
	err := db.bolt.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, out)
	})
	if err != nil {
		return false, errs.New(errs.ErrStateRead, "state.get", err).WithResource(string(bucket) + "/" + key)
	}
	return found, nil
}

func (db *DB) forEach(bucket []byte, alloc func() any, visit func(any)) error {
	err := db.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, v []byte) error {
			rec := alloc()
			if err := json.Unmarshal(v, rec); err != nil {
				return fmt.Errorf("unmarshal %q: %w", k, err)
			}
			visit(rec)
			return nil
		})
	})
	if err != nil {
		return errs.New(errs.ErrStateRead, "state.list", err).WithResource(string(bucket))
	}
	return nil
}
