package merkle

import "math/big"

// RootHistory is a fixed-size ring of recent accumulator roots. Verifiers
// accept proofs against any root in the window, so concurrent deposits do
// not invalidate in-flight withdrawal proofs. Not safe for concurrent use;
// the owning pool serializes access.
type RootHistory struct {
	roots []*big.Int
	next  int
	count int
}

// NewRootHistory creates an empty history holding at most size roots.
func NewRootHistory(size int) *RootHistory {
	return &RootHistory{roots: make([]*big.Int, size)}
}

// Record adds a root to the window, evicting the oldest once full.
func (h *RootHistory) Record(root *big.Int) {
	h.roots[h.next] = new(big.Int).Set(root)
	h.next = (h.next + 1) % len(h.roots)
	if h.count < len(h.roots) {
		h.count++
	}
}

// Contains reports whether root is inside the current window.
func (h *RootHistory) Contains(root *big.Int) bool {
	for i := 0; i < h.count; i++ {
		if h.roots[i] != nil && h.roots[i].Cmp(root) == 0 {
			return true
		}
	}
	return false
}

// Latest returns the most recently recorded root, or nil if empty.
func (h *RootHistory) Latest() *big.Int {
	if h.count == 0 {
		return nil
	}
	return h.roots[(h.next-1+len(h.roots))%len(h.roots)]
}

// Roots returns the recorded roots, oldest first.
func (h *RootHistory) Roots() []*big.Int {
	out := make([]*big.Int, 0, h.count)
	start := 0
	if h.count == len(h.roots) {
		start = h.next
	}
	for i := 0; i < h.count; i++ {
		out = append(out, h.roots[(start+i)%len(h.roots)])
	}
	return out
}
