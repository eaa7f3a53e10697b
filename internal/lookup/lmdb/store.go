// Package lmdb reads rsids from an LMDB environment with one named database
// per chromosome. Keys are native-endian uint32 positions and values are
// msgpack maps from "ref/alt" to the numeric part of the rsid.
package lmdb

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/bmatsuo/lmdb-go/lmdb"
	"gopkg.in/vmihailenco/msgpack.v2"
)

// DefaultMaxDBs covers 22 autosomes, X, Y and MT.
const DefaultMaxDBs = 25

// integerKey is MDB_INTEGERKEY, which lmdb-go does not export.
const integerKey uint = 0x08

// Store is a read-only rsid environment.
type Store struct {
	env *lmdb.Env
}

// Open opens the single-file environment at path for reading.
func Open(path string) (*Store, error) {
	return OpenWithMaxDBs(path, DefaultMaxDBs)
}

// OpenWithMaxDBs opens path allowing up to maxDBs chromosome databases.
func OpenWithMaxDBs(path string, maxDBs int) (*Store, error) {
	env, err := lmdb.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("create lmdb env: %w", err)
	}
	if err := env.SetMaxDBs(maxDBs); err != nil {
		env.Close()
		return nil, fmt.Errorf("set max dbs: %w", err)
	}
	if err := env.Open(path, lmdb.NoSubdir|lmdb.Readonly, 0644); err != nil {
		env.Close()
		return nil, fmt.Errorf("open lmdb %s: %w", path, err)
	}
	return &Store{env: env}, nil
}

// Close releases the environment.
func (s *Store) Close() error {
	return s.env.Close()
}

// Key encodes a position the way the chromosome databases store it.
func Key(pos int64) ([]byte, error) {
	if pos < 0 || pos > math.MaxUint32 {
		return nil, fmt.Errorf("position %d does not fit a 32-bit key", pos)
	}
	key := make([]byte, 4)
	binary.NativeEndian.PutUint32(key, uint32(pos))
	return key, nil
}

// Lookup returns "rs" followed by the stored id. Unknown chromosomes and
// positions are misses.
func (s *Store) Lookup(chrom string, pos int64, ref, alt string) (string, bool, error) {
	key, err := Key(pos)
	if err != nil {
		return "", false, nil
	}

	var raw []byte
	err = s.env.View(func(txn *lmdb.Txn) error {
		dbi, err := txn.OpenDBI(chrom, integerKey)
		if err != nil {
			return err
		}
		v, err := txn.Get(dbi, key)
		if err != nil {
			return err
		}
		raw = append([]byte(nil), v...)
		return nil
	})
	if lmdb.IsNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup %s:%d: %w", chrom, pos, err)
	}

	var alleles map[string]interface{}
	if err := msgpack.Unmarshal(raw, &alleles); err != nil {
		return "", false, fmt.Errorf("decode %s:%d: %w", chrom, pos, err)
	}
	id, ok := rsidNumber(alleles[ref+"/"+alt])
	if !ok {
		return "", false, nil
	}
	return "rs" + strconv.FormatUint(id, 10), true, nil
}

// KnownChroms lists the chromosome databases, which are the keys of the
// unnamed root database.
func (s *Store) KnownChroms() ([]string, error) {
	var chroms []string
	err := s.env.View(func(txn *lmdb.Txn) error {
		dbi, err := txn.OpenRoot(0)
		if err != nil {
			return err
		}
		cur, err := txn.OpenCursor(dbi)
		if err != nil {
			return err
		}
		defer cur.Close()

		for {
			k, _, err := cur.Get(nil, nil, lmdb.Next)
			if lmdb.IsNotFound(err) {
				return nil
			}
			if err != nil {
				return err
			}
			chroms = append(chroms, string(k))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("list chroms: %w", err)
	}
	return chroms, nil
}

// rsidNumber accepts whichever integer width the encoder chose. Zero is
// not an id.
func rsidNumber(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case int8:
		return signed(int64(n))
	case int16:
		return signed(int64(n))
	case int32:
		return signed(int64(n))
	case int64:
		return signed(n)
	case int:
		return signed(int64(n))
	case uint8:
		return uint64(n), n > 0
	case uint16:
		return uint64(n), n > 0
	case uint32:
		return uint64(n), n > 0
	case uint64:
		return n, n > 0
	case uint:
		return uint64(n), n > 0
	}
	return 0, false
}

func signed(n int64) (uint64, bool) {
	if n <= 0 {
		return 0, false
	}
	return uint64(n), true
}
