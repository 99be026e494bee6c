// Package registry tracks spent nullifier hashes. Registration is the
// protocol's double-spend guard: each nullifier hash can be registered at
// most once for the lifetime of the registry, under any interleaving of
// concurrent attempts.
package registry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/tetsuo-ai/privacy-pool/pkg/field"
)

// ErrNullifierSpent indicates an attempt to register a nullifier hash that
// is already registered.
var ErrNullifierSpent = errors.New("nullifier already spent")

// Record is one spent nullifier and when it was registered.
type Record struct {
	NullifierHash [32]byte
	SpentAt       int64 // unix seconds
}

// Registry is a linearizable set of spent nullifier hashes. A single mutex
// guards the map, so overlapping TryRegister calls observe a total order.
type Registry struct {
	mu    sync.Mutex
	spent map[[32]byte]Record
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{spent: make(map[[32]byte]Record)}
}

// TryRegister atomically registers a nullifier hash. Exactly one call per
// hash succeeds; all later or concurrent attempts fail with
// ErrNullifierSpent. There is no way to unregister.
func (r *Registry) TryRegister(nullifierHash *big.Int) error {
	key, err := field.ToBytes32(nullifierHash)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.spent[key]; ok {
		return ErrNullifierSpent
	}
	r.spent[key] = Record{NullifierHash: key, SpentAt: time.Now().Unix()}
	return nil
}

// Has reports whether the nullifier hash is registered.
func (r *Registry) Has(nullifierHash *big.Int) bool {
	key, err := field.ToBytes32(nullifierHash)
	if err != nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.spent[key]
	return ok
}

// Len returns the number of registered nullifier hashes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.spent)
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------
//
// Format:
//   uint32(count)
//   For each record (sorted by hash for deterministic output):
//     [32]byte(nullifierHash) | int64(spentAt, big-endian)

// Save writes the registry contents to w.
func (r *Registry) Save(w io.Writer) error {
	r.mu.Lock()
	records := make([]Record, 0, len(r.spent))
	for _, rec := range r.spent {
		records = append(records, rec)
	}
	r.mu.Unlock()

	sortRecords(records)

	if err := binary.Write(w, binary.BigEndian, uint32(len(records))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, rec := range records {
		if _, err := w.Write(rec.NullifierHash[:]); err != nil {
			return fmt.Errorf("write nullifier hash: %w", err)
		}
		if err := binary.Write(w, binary.BigEndian, rec.SpentAt); err != nil {
			return fmt.Errorf("write spent-at: %w", err)
		}
	}
	return nil
}

// Load reads a registry written by Save.
func Load(rd io.Reader) (*Registry, error) {
	var count uint32
	if err := binary.Read(rd, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}

	spent := make(map[[32]byte]Record, int(count))
	for i := 0; i < int(count); i++ {
		var rec Record
		if _, err := io.ReadFull(rd, rec.NullifierHash[:]); err != nil {
			return nil, fmt.Errorf("read nullifier hash: %w", err)
		}
		if err := binary.Read(rd, binary.BigEndian, &rec.SpentAt); err != nil {
			return nil, fmt.Errorf("read spent-at: %w", err)
		}
		spent[rec.NullifierHash] = rec
	}

	return &Registry{spent: spent}, nil
}

// sortRecords sorts records by nullifier hash ascending (insertion sort,
// registry snapshots are small).
func sortRecords(s []Record) {
	for i := 1; i < len(s); i++ {
		key := s[i]
		j := i - 1
		for j >= 0 && compare32(s[j].NullifierHash, key.NullifierHash) > 0 {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = key
	}
}

func compare32(a, b [32]byte) int {
	for i := 0; i < 32; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
