package merkle

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

const testDepth = 10

// testLeaves returns n distinct deterministic leaf values.
func testLeaves(n int) []*big.Int {
	leaves := make([]*big.Int, n)
	for i := range leaves {
		leaves[i] = big.NewInt(int64(1000 + i))
	}
	return leaves
}

func TestEmptyRootIsZeroSubtree(t *testing.T) {
	acc := NewAccumulator(testDepth)
	zh := PrecomputeZeroHashes(testDepth)
	require.Zero(t, acc.Root().Cmp(zh[testDepth]))
	require.Equal(t, 0, acc.Size())
}

func TestAppendMatchesBuild(t *testing.T) {
	leaves := testLeaves(7)

	built := NewAccumulator(testDepth)
	require.NoError(t, built.Build(leaves))

	appended := NewAccumulator(testDepth)
	for i, leaf := range leaves {
		idx, err := appended.Append(leaf)
		require.NoError(t, err)
		require.Equal(t, i, idx)
	}

	require.Zero(t, built.Root().Cmp(appended.Root()))
}

func TestProveAndVerifyEveryIndex(t *testing.T) {
	acc := NewAccumulator(testDepth)
	leaves := testLeaves(13)
	require.NoError(t, acc.Build(leaves))
	root := acc.Root()

	for i, leaf := range leaves {
		path, err := acc.ProveInclusion(i)
		require.NoError(t, err)
		require.Len(t, path.Siblings, testDepth)
		require.Len(t, path.Directions, testDepth)

		ok, err := acc.VerifyPath(leaf, path, root)
		require.NoError(t, err)
		require.True(t, ok, "leaf %d", i)
	}
}

func TestPaddedIndexProvesZeroLeaf(t *testing.T) {
	acc := NewAccumulator(testDepth)
	require.NoError(t, acc.Build(testLeaves(3)))
	root := acc.Root()

	// An empty slot has a valid path, but only for the zero leaf.
	path, err := acc.ProveInclusion(500)
	require.NoError(t, err)

	ok, err := acc.VerifyPath(big.NewInt(0), path, root)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = acc.VerifyPath(big.NewInt(1), path, root)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyPathRejectsTamper(t *testing.T) {
	acc := NewAccumulator(testDepth)
	leaves := testLeaves(5)
	require.NoError(t, acc.Build(leaves))
	root := acc.Root()

	path, err := acc.ProveInclusion(2)
	require.NoError(t, err)

	// Wrong leaf.
	ok, err := acc.VerifyPath(big.NewInt(9999), path, root)
	require.NoError(t, err)
	require.False(t, ok)

	// Tampered sibling.
	path.Siblings[0] = new(big.Int).Add(path.Siblings[0], big.NewInt(1))
	ok, err = acc.VerifyPath(leaves[2], path, root)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyPathRejectsDepthMismatch(t *testing.T) {
	acc := NewAccumulator(testDepth)
	require.NoError(t, acc.Build(testLeaves(4)))

	path, err := acc.ProveInclusion(0)
	require.NoError(t, err)

	short := &Path{Siblings: path.Siblings[:testDepth-1], Directions: path.Directions[:testDepth-1]}
	_, err = acc.VerifyPath(acc.Leaf(0), short, acc.Root())
	require.ErrorIs(t, err, ErrDepthMismatch)
}

func TestProveInclusionIndexBounds(t *testing.T) {
	acc := NewAccumulator(testDepth)
	_, err := acc.ProveInclusion(-1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = acc.ProveInclusion(1 << testDepth)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestDepthBoundary(t *testing.T) {
	const depth = 4
	acc := NewAccumulator(depth)

	// 2^depth - 1 leaves: one slot left.
	for i := 0; i < (1<<depth)-1; i++ {
		_, err := acc.Append(big.NewInt(int64(i + 1)))
		require.NoError(t, err)
	}
	rootBefore := acc.Root()

	// Filling the last slot still works and changes the root.
	idx, err := acc.Append(big.NewInt(999))
	require.NoError(t, err)
	require.Equal(t, (1<<depth)-1, idx)
	require.NotZero(t, acc.Root().Cmp(rootBefore))

	// Every leaf of the full tree remains provable.
	root := acc.Root()
	for i := 0; i < 1<<depth; i++ {
		path, err := acc.ProveInclusion(i)
		require.NoError(t, err)
		ok, err := acc.VerifyPath(acc.Leaf(i), path, root)
		require.NoError(t, err)
		require.True(t, ok, "leaf %d", i)
	}

	// 2^depth + 1st append fails.
	_, err = acc.Append(big.NewInt(1))
	require.ErrorIs(t, err, ErrTreeFull)
}

func TestAppendChangesRoot(t *testing.T) {
	acc := NewAccumulator(testDepth)
	prev := acc.Root()
	for i := 0; i < 8; i++ {
		_, err := acc.Append(big.NewInt(int64(100 + i)))
		require.NoError(t, err)
		require.NotZero(t, acc.Root().Cmp(prev))
		prev = acc.Root()
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	acc := NewAccumulator(testDepth)
	leaves := testLeaves(9)
	require.NoError(t, acc.Build(leaves))

	var buf bytes.Buffer
	require.NoError(t, acc.Save(&buf))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	require.Equal(t, acc.Depth(), loaded.Depth())
	require.Equal(t, acc.Size(), loaded.Size())
	require.Zero(t, acc.Root().Cmp(loaded.Root()))

	// Proofs from the loaded tree verify against the original root.
	path, err := loaded.ProveInclusion(4)
	require.NoError(t, err)
	ok, err := loaded.VerifyPath(leaves[4], path, acc.Root())
	require.NoError(t, err)
	require.True(t, ok)

	// And appends continue where the original left off.
	idx, err := loaded.Append(big.NewInt(424242))
	require.NoError(t, err)
	require.Equal(t, len(leaves), idx)
}

func TestRootHistoryWindow(t *testing.T) {
	h := NewRootHistory(4)
	require.False(t, h.Contains(big.NewInt(1)))
	require.Nil(t, h.Latest())

	for i := 1; i <= 6; i++ {
		h.Record(big.NewInt(int64(i)))
	}

	// Window holds the 4 most recent.
	require.False(t, h.Contains(big.NewInt(1)))
	require.False(t, h.Contains(big.NewInt(2)))
	for i := 3; i <= 6; i++ {
		require.True(t, h.Contains(big.NewInt(int64(i))), "root %d", i)
	}
	require.Zero(t, h.Latest().Cmp(big.NewInt(6)))

	roots := h.Roots()
	require.Len(t, roots, 4)
	require.Zero(t, roots[0].Cmp(big.NewInt(3)))
	require.Zero(t, roots[3].Cmp(big.NewInt(6)))
}

func TestHashNodesZeroEncoding(t *testing.T) {
	// HashNodes(0, 0) must be stable and equal to the level-1 zero hash.
	zh := PrecomputeZeroHashes(2)
	got := HashNodes(big.NewInt(0), big.NewInt(0))
	require.Zero(t, got.Cmp(zh[1]))
}
