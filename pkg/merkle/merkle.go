// Package merkle implements the fixed-depth append-only accumulator that
// holds deposit commitments. Only real leaves are stored; missing positions
// use precomputed zero-subtree hashes, with the empty leaf fixed at 0.
package merkle

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
)

var (
	// ErrTreeFull indicates an append to an accumulator with all 2^depth
	// slots occupied.
	ErrTreeFull = errors.New("accumulator is full")

	// ErrIndexOutOfRange indicates a proof request for a leaf index outside
	// [0, 2^depth).
	ErrIndexOutOfRange = errors.New("leaf index out of range")

	// ErrDepthMismatch indicates an authentication path whose length differs
	// from the accumulator depth.
	ErrDepthMismatch = errors.New("authentication path depth mismatch")
)

// HashNodes hashes two child hashes into their parent with Poseidon2.
// Inputs are converted to canonical 32-byte fr.Element encoding so that a
// zero value writes 32 zero bytes (matching the circuit) instead of the
// empty slice returned by big.Int.Bytes().
func HashNodes(left, right *big.Int) *big.Int {
	h := poseidon2.NewMerkleDamgardHasher()

	var lFr, rFr fr.Element
	lFr.SetBigInt(left)
	rFr.SetBigInt(right)

	lBytes := lFr.Bytes()
	rBytes := rFr.Bytes()
	h.Write(lBytes[:])
	h.Write(rBytes[:])

	return new(big.Int).SetBytes(h.Sum(nil))
}

// PrecomputeZeroHashes builds the zero-subtree hash chain:
//
//	zeroHashes[0] = 0 (the empty leaf)
//	zeroHashes[i] = HashNodes(zeroHashes[i-1], zeroHashes[i-1])
//
// The returned slice has length depth+1 (indices 0..depth).
func PrecomputeZeroHashes(depth int) []*big.Int {
	zh := make([]*big.Int, depth+1)
	zh[0] = big.NewInt(0)
	for i := 1; i <= depth; i++ {
		zh[i] = HashNodes(zh[i-1], zh[i-1])
	}
	return zh
}

// Path is a fixed-depth authentication path from a leaf to the root.
// Siblings[i] is the sibling hash at level i. Directions[i] is the circuit
// format direction:
//
//	0 = current node is the left child  (sibling on the right)
//	1 = current node is the right child (sibling on the left)
type Path struct {
	Siblings   []*big.Int
	Directions []int
}

// Accumulator is a fixed-depth sparse Merkle tree storing only real leaves.
// It is append-only: leaves fill indices 0, 1, 2, ... and are never removed
// or updated. Not safe for concurrent mutation; the owning pool serializes
// access.
type Accumulator struct {
	depth      int
	numLeaves  int
	levels     []map[int]*big.Int // levels[0] = leaves, levels[depth] has the root
	zeroHashes []*big.Int
}

// NewAccumulator creates an empty accumulator of the given depth. The empty
// root equals the depth-level zero-subtree hash.
func NewAccumulator(depth int) *Accumulator {
	levels := make([]map[int]*big.Int, depth+1)
	for i := range levels {
		levels[i] = make(map[int]*big.Int)
	}
	return &Accumulator{
		depth:      depth,
		levels:     levels,
		zeroHashes: PrecomputeZeroHashes(depth),
	}
}

// Depth returns the fixed tree depth.
func (a *Accumulator) Depth() int { return a.depth }

// Size returns the number of real leaves inserted so far.
func (a *Accumulator) Size() int { return a.numLeaves }

// Root returns the current root hash.
func (a *Accumulator) Root() *big.Int {
	if r, ok := a.levels[a.depth][0]; ok {
		return r
	}
	return a.zeroHashes[a.depth]
}

// Append inserts a leaf at the next free index and recomputes the path to
// the root. Returns the index the leaf landed on.
func (a *Accumulator) Append(leaf *big.Int) (int, error) {
	if a.numLeaves >= 1<<a.depth {
		return 0, ErrTreeFull
	}
	index := a.numLeaves
	a.levels[0][index] = new(big.Int).Set(leaf)
	a.numLeaves++

	// Recompute the root path.
	idx := index
	for lvl := 0; lvl < a.depth; lvl++ {
		parentIdx := idx / 2
		left := a.node(lvl, parentIdx*2)
		right := a.node(lvl, parentIdx*2+1)
		a.levels[lvl+1][parentIdx] = HashNodes(left, right)
		idx = parentIdx
	}
	return index, nil
}

// Build replaces the accumulator contents with the given leaves at indices
// 0..len(leaves)-1.
func (a *Accumulator) Build(leaves []*big.Int) error {
	if len(leaves) > 1<<a.depth {
		return ErrTreeFull
	}

	levels := make([]map[int]*big.Int, a.depth+1)
	for i := range levels {
		levels[i] = make(map[int]*big.Int)
	}
	for i, leaf := range leaves {
		levels[0][i] = new(big.Int).Set(leaf)
	}

	// Bottom-up over parents that have at least one real child.
	for lvl := 0; lvl < a.depth; lvl++ {
		parentIndices := make(map[int]bool)
		for idx := range levels[lvl] {
			parentIndices[idx/2] = true
		}
		for parentIdx := range parentIndices {
			left, ok := levels[lvl][parentIdx*2]
			if !ok {
				left = a.zeroHashes[lvl]
			}
			right, ok := levels[lvl][parentIdx*2+1]
			if !ok {
				right = a.zeroHashes[lvl]
			}
			levels[lvl+1][parentIdx] = HashNodes(left, right)
		}
	}

	a.levels = levels
	a.numLeaves = len(leaves)
	return nil
}

// Leaf returns the leaf hash at the given index, the zero leaf for empty
// positions.
func (a *Accumulator) Leaf(index int) *big.Int {
	return a.node(0, index)
}

// ProveInclusion returns the fixed-depth authentication path for the leaf
// at the given index. Paths for empty positions are valid paths for the
// zero leaf; callers decide whether that is meaningful.
func (a *Accumulator) ProveInclusion(index int) (*Path, error) {
	if index < 0 || index >= 1<<a.depth {
		return nil, fmt.Errorf("%w: %d (depth %d)", ErrIndexOutOfRange, index, a.depth)
	}

	siblings := make([]*big.Int, a.depth)
	directions := make([]int, a.depth)

	idx := index
	for lvl := 0; lvl < a.depth; lvl++ {
		if idx%2 == 0 {
			// Current is left child; sibling is right.
			siblings[lvl] = a.node(lvl, idx+1)
			directions[lvl] = 0
		} else {
			// Current is right child; sibling is left.
			siblings[lvl] = a.node(lvl, idx-1)
			directions[lvl] = 1
		}
		idx /= 2 // move to parent
	}

	return &Path{Siblings: siblings, Directions: directions}, nil
}

// VerifyPath recomputes the root from a leaf and its authentication path
// and compares it against the expected root. The path must span exactly
// depth levels.
func (a *Accumulator) VerifyPath(leaf *big.Int, path *Path, root *big.Int) (bool, error) {
	if len(path.Siblings) != a.depth || len(path.Directions) != a.depth {
		return false, fmt.Errorf("%w: got %d siblings, want %d", ErrDepthMismatch, len(path.Siblings), a.depth)
	}

	current := leaf
	for i := 0; i < a.depth; i++ {
		if path.Directions[i] == 0 {
			current = HashNodes(current, path.Siblings[i])
		} else {
			current = HashNodes(path.Siblings[i], current)
		}
	}
	return current.Cmp(root) == 0, nil
}

func (a *Accumulator) node(lvl, idx int) *big.Int {
	if h, ok := a.levels[lvl][idx]; ok {
		return h
	}
	return a.zeroHashes[lvl]
}

// ---------------------------------------------------------------------------
// Serialization (binary format for persistence)
// ---------------------------------------------------------------------------
//
// Format:
//   uint32(depth) | uint32(numLeaves)
//   For each level 0..depth:
//     uint32(count)
//     For each entry:
//       uint32(index) | [32]byte(hash as big-endian fr.Element)
//
// Zero hashes are NOT stored — they are recomputed on load.

// Save writes the accumulator to w in a deterministic binary format.
func (a *Accumulator) Save(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, uint32(a.depth)); err != nil {
		return fmt.Errorf("write depth: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, uint32(a.numLeaves)); err != nil {
		return fmt.Errorf("write numLeaves: %w", err)
	}

	for lvl := 0; lvl <= a.depth; lvl++ {
		m := a.levels[lvl]
		if err := binary.Write(w, binary.BigEndian, uint32(len(m))); err != nil {
			return fmt.Errorf("write level %d count: %w", lvl, err)
		}

		// Sort indices for deterministic output.
		indices := make([]int, 0, len(m))
		for idx := range m {
			indices = append(indices, idx)
		}
		sortInts(indices)

		for _, idx := range indices {
			if err := binary.Write(w, binary.BigEndian, uint32(idx)); err != nil {
				return fmt.Errorf("write level %d index %d: %w", lvl, idx, err)
			}
			var elem fr.Element
			elem.SetBigInt(m[idx])
			b := elem.Bytes() // canonical 32-byte big-endian
			if _, err := w.Write(b[:]); err != nil {
				return fmt.Errorf("write level %d hash %d: %w", lvl, idx, err)
			}
		}
	}

	return nil
}

// Load reads an accumulator from r that was written by Save.
func Load(r io.Reader) (*Accumulator, error) {
	var depth, numLeaves uint32
	if err := binary.Read(r, binary.BigEndian, &depth); err != nil {
		return nil, fmt.Errorf("read depth: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &numLeaves); err != nil {
		return nil, fmt.Errorf("read numLeaves: %w", err)
	}

	levels := make([]map[int]*big.Int, depth+1)
	for lvl := 0; lvl <= int(depth); lvl++ {
		var count uint32
		if err := binary.Read(r, binary.BigEndian, &count); err != nil {
			return nil, fmt.Errorf("read level %d count: %w", lvl, err)
		}

		m := make(map[int]*big.Int, int(count))
		var hashBuf [32]byte
		for j := 0; j < int(count); j++ {
			var idx uint32
			if err := binary.Read(r, binary.BigEndian, &idx); err != nil {
				return nil, fmt.Errorf("read level %d index: %w", lvl, err)
			}
			if _, err := io.ReadFull(r, hashBuf[:]); err != nil {
				return nil, fmt.Errorf("read level %d hash: %w", lvl, err)
			}
			var elem fr.Element
			elem.SetBytes(hashBuf[:])
			m[int(idx)] = new(big.Int)
			elem.BigInt(m[int(idx)])
		}
		levels[lvl] = m
	}

	return &Accumulator{
		depth:      int(depth),
		numLeaves:  int(numLeaves),
		levels:     levels,
		zeroHashes: PrecomputeZeroHashes(int(depth)),
	}, nil
}

// sortInts sorts a slice of ints in ascending order (insertion sort,
// suitable for the typically small per-level entry counts).
func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		key := s[i]
		j := i - 1
		for j >= 0 && s[j] > key {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = key
	}
}
