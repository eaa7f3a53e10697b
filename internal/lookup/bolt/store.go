// Package bolt stores rsids in a bbolt file with one bucket per chromosome.
// Keys are big-endian uint32 positions; values are msgpack maps from
// "ref/alt" to rsid.
package bolt

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"go.etcd.io/bbolt"
	"gopkg.in/vmihailenco/msgpack.v2"
)

// Entry is one variant with its rsid.
type Entry struct {
	Chrom string
	Pos   int64
	Ref   string
	Alt   string
	Rsid  string
}

// Store is a bbolt-backed rsid store.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing store without taking the write lock.
func OpenReadOnly(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the file.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(pos int64) ([]byte, bool) {
	if pos < 0 || pos > math.MaxUint32 {
		return nil, false
	}
	k := make([]byte, 4)
	binary.BigEndian.PutUint32(k, uint32(pos))
	return k, true
}

// Put merges entries into the store in a single transaction.
func (s *Store) Put(entries []Entry) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, e := range entries {
			k, ok := key(e.Pos)
			if !ok {
				return fmt.Errorf("position %d does not fit a 32-bit key", e.Pos)
			}
			b, err := tx.CreateBucketIfNotExists([]byte(e.Chrom))
			if err != nil {
				return fmt.Errorf("create bucket %s: %w", e.Chrom, err)
			}
			alleles := make(map[string]string)
			if v := b.Get(k); v != nil {
				if err := msgpack.Unmarshal(v, &alleles); err != nil {
					return fmt.Errorf("decode %s:%d: %w", e.Chrom, e.Pos, err)
				}
			}
			alleles[e.Ref+"/"+e.Alt] = e.Rsid
			data, err := msgpack.Marshal(alleles)
			if err != nil {
				return err
			}
			if err := b.Put(k, data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Lookup returns the rsid stored for a variant.
func (s *Store) Lookup(chrom string, pos int64, ref, alt string) (string, bool, error) {
	k, ok := key(pos)
	if !ok {
		return "", false, nil
	}
	var data []byte
	if err := s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket([]byte(chrom)); b != nil {
			if v := b.Get(k); v != nil {
				data = append([]byte(nil), v...)
			}
		}
		return nil
	}); err != nil {
		return "", false, err
	}
	if data == nil {
		return "", false, nil
	}
	var alleles map[string]string
	if err := msgpack.Unmarshal(data, &alleles); err != nil {
		return "", false, fmt.Errorf("decode %s:%d: %w", chrom, pos, err)
	}
	rsid, ok := alleles[ref+"/"+alt]
	return rsid, ok, nil
}

// KnownChroms lists the chromosome buckets.
func (s *Store) KnownChroms() ([]string, error) {
	var chroms []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			chroms = append(chroms, string(name))
			return nil
		})
	})
	return chroms, err
}
