package main

import (
	"fmt"
	"strings"

	"github.com/inodb/gwasnorm/internal/lookup"
	lookupbolt "github.com/inodb/gwasnorm/internal/lookup/bolt"
	lookupduckdb "github.com/inodb/gwasnorm/internal/lookup/duckdb"
	lookuplmdb "github.com/inodb/gwasnorm/internal/lookup/lmdb"
)

// rsidStore is a lookup backend that holds an open file.
type rsidStore interface {
	lookup.Lookup
	Close() error
}

// openLookup opens the reference store at path with the named backend.
func openLookup(backend, path string) (rsidStore, error) {
	switch strings.ToLower(backend) {
	case "lmdb":
		s, err := lookuplmdb.Open(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "bolt", "bbolt":
		s, err := lookupbolt.OpenReadOnly(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "duckdb":
		s, err := lookupduckdb.Open(path)
		if err != nil {
			return nil, err
		}
		if !s.Loaded() {
			s.Close()
			return nil, fmt.Errorf("duckdb store %s has no rsids", path)
		}
		return s, nil
	}
	return nil, &usageError{fmt.Errorf("unknown lookup backend %q; must be one of lmdb, bolt, duckdb", backend)}
}
