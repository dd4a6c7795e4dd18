// Package ia implements interference alignment for multi-user MIMO
// channels: a block-structured multi-user channel matrix and the
// alternating-minimization solver that derives per-user precoders,
// interference-subspace bases and zero-forcing receive filters from it.
package ia

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/wirelab/go-interference-alignment/cmatrix"
)

// MultiUserChannelMatrix stores the fast-fading channel of a K-user
// scenario as a single (ΣNr)×(ΣNt) complex matrix, logically
// partitioned into a K×K grid of blocks. Block (k, l) has shape
// Nr[k]×Nt[l] and is the channel from transmitter l to receiver k.
//
// In a 3-user scenario with Nr = [2, 4, 6] and Nt = [2, 3, 5] the full
// matrix is 12×10 and block (1, 0) is the 4×2 sub-matrix at rows [2, 6)
// and columns [0, 2).
//
// The matrix is populated either from a given full matrix with
// InitFromMatrix or synthetically with Randomize; both replace all
// state atomically, and neither commits anything on validation failure.
type MultiUserChannelMatrix struct {
	h      *mat.CDense
	nr, nt []int
	k      int

	// Zero-prefixed cumulative antenna sums, rebuilt on every
	// (re)initialization so block offsets can never go stale.
	cumNr, cumNt []int
}

// NewMultiUserChannelMatrix returns an empty channel model.
func NewMultiUserChannelMatrix() *MultiUserChannelMatrix {
	return &MultiUserChannelMatrix{}
}

// K returns the number of users, 0 before initialization.
func (m *MultiUserChannelMatrix) K() int { return m.k }

// Nr returns a copy of the per-user receive antenna counts.
func (m *MultiUserChannelMatrix) Nr() []int { return append([]int(nil), m.nr...) }

// Nt returns a copy of the per-user transmit antenna counts.
func (m *MultiUserChannelMatrix) Nt() []int { return append([]int(nil), m.nt...) }

// H returns the full concatenated channel matrix, nil before
// initialization. The returned matrix must be treated as read-only.
func (m *MultiUserChannelMatrix) H() *mat.CDense { return m.h }

// InitFromMatrix initializes the multi-user channel from the given full
// channel matrix. It validates that nr and nt have k elements and that
// h has shape (Σnr)×(Σnt); on failure it returns an error wrapping
// ErrShapeMismatch and leaves the receiver untouched.
func (m *MultiUserChannelMatrix) InitFromMatrix(h *mat.CDense, nr, nt []int, k int) error {
	if err := validateAntennaCounts(nr, nt, k); err != nil {
		return err
	}
	r, c := h.Dims()
	if r != sumInts(nr) || c != sumInts(nt) {
		return fmt.Errorf("%w: channel matrix is %d×%d, want %d×%d from Nr and Nt",
			ErrShapeMismatch, r, c, sumInts(nr), sumInts(nt))
	}

	m.h = h
	m.nr = append([]int(nil), nr...)
	m.nt = append([]int(nil), nt...)
	m.k = k
	m.cumNr = cumSum(m.nr)
	m.cumNt = cumSum(m.nt)
	return nil
}

// Randomize generates a fresh channel matrix with i.i.d. unit-variance
// circularly-symmetric complex Gaussian entries drawn from src. nr and
// nt follow the broadcast convention: a single-element slice applies
// the same antenna count to all k users.
func (m *MultiUserChannelMatrix) Randomize(nr, nt []int, k int, src rand.Source) error {
	nrFull, err := broadcast(nr, k, "Nr")
	if err != nil {
		return err
	}
	ntFull, err := broadcast(nt, k, "Nt")
	if err != nil {
		return err
	}
	if err := validateAntennaCounts(nrFull, ntFull, k); err != nil {
		return err
	}

	m.h = cmatrix.RandNC(sumInts(nrFull), sumInts(ntFull), src)
	m.nr = nrFull
	m.nt = ntFull
	m.k = k
	m.cumNr = cumSum(m.nr)
	m.cumNt = cumSum(m.nt)
	return nil
}

// GetChannel returns the channel block from transmitter l to receiver k
// as a fresh matrix, so callers can hold onto it across a later
// re-initialization of the full channel.
func (m *MultiUserChannelMatrix) GetChannel(k, l int) (*mat.CDense, error) {
	if m.h == nil {
		return nil, fmt.Errorf("%w: channel matrix is empty", ErrNotInitialized)
	}
	if k < 0 || k >= m.k || l < 0 || l >= m.k {
		return nil, fmt.Errorf("%w: block (%d, %d) of a %d-user channel",
			ErrIndexOutOfRange, k, l, m.k)
	}

	rows := m.nr[k]
	cols := m.nt[l]
	block := mat.NewCDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			block.Set(i, j, m.h.At(m.cumNr[k]+i, m.cumNt[l]+j))
		}
	}
	return block, nil
}

// broadcast expands v to length k: a single-element slice is repeated
// for all users, a length-k slice is copied. Anything else is a shape
// error.
func broadcast(v []int, k int, name string) ([]int, error) {
	switch {
	case k > 0 && len(v) == 1:
		out := make([]int, k)
		for i := range out {
			out[i] = v[0]
		}
		return out, nil
	case len(v) == k:
		return append([]int(nil), v...), nil
	default:
		return nil, fmt.Errorf("%w: %s has %d elements, want 1 or K=%d",
			ErrShapeMismatch, name, len(v), k)
	}
}

func validateAntennaCounts(nr, nt []int, k int) error {
	if k <= 0 {
		return fmt.Errorf("%w: number of users must be positive, got %d", ErrShapeMismatch, k)
	}
	if len(nr) != k || len(nt) != k {
		return fmt.Errorf("%w: len(Nr)=%d and len(Nt)=%d must both equal K=%d",
			ErrShapeMismatch, len(nr), len(nt), k)
	}
	for i := 0; i < k; i++ {
		if nr[i] < 1 || nt[i] < 1 {
			return fmt.Errorf("%w: antenna counts must be positive, got Nr[%d]=%d Nt[%d]=%d",
				ErrShapeMismatch, i, nr[i], i, nt[i])
		}
	}
	return nil
}

func sumInts(v []int) int {
	var s int
	for _, x := range v {
		s += x
	}
	return s
}

// cumSum returns the zero-prefixed cumulative sum of v, length len(v)+1.
func cumSum(v []int) []int {
	out := make([]int, len(v)+1)
	for i, x := range v {
		out[i+1] = out[i] + x
	}
	return out
}
