package ia

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/wirelab/go-interference-alignment/cmatrix"
)

// AlternatingMinIASolver implements interference alignment via
// alternating minimization. Each Step performs one cycle of
//
//	UpdateC -> UpdateF -> UpdateW
//
// against the attached multi-user channel: the interference-subspace
// bases C are the dominant eigenvectors of the per-receiver interference
// covariance, the precoders F are the least-dominant eigenvectors of the
// projected leakage, and the receive filters W zero-force the desired
// streams against the current C estimate.
//
// The solver has no internal notion of convergence; a caller monitors
// Cost between steps and decides when to stop. Cost is not guaranteed to
// decrease monotonically, since F and C are optimized against coupled
// objectives.
type AlternatingMinIASolver struct {
	channel *MultiUserChannelMatrix
	src     rand.Source

	ns []int
	f  []*mat.CDense // precoders, Nt[k]×Ns[k]
	c  []*mat.CDense // interference subspace bases, Nr[k]×(Nr[k]-Ns[k])
	w  []*mat.CDense // receive filters, Ns[k]×Nr[k]
}

// Option configures an AlternatingMinIASolver.
type Option func(*AlternatingMinIASolver)

// WithRandomSeed sets the seed of the solver's random source, used for
// channel and precoder randomization. A zero seed falls back to the
// current time.
func WithRandomSeed(seed uint64) Option {
	return func(s *AlternatingMinIASolver) {
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		s.src = rand.NewSource(seed)
	}
}

// WithRandomSource sets the random source directly.
func WithRandomSource(src rand.Source) Option {
	return func(s *AlternatingMinIASolver) {
		s.src = src
	}
}

// NewAlternatingMinIASolver returns a solver with an empty channel
// model attached. Initialize the channel with RandomizeH or
// InitFromChannelMatrix and the precoders with RandomizeF before
// stepping.
func NewAlternatingMinIASolver(opts ...Option) *AlternatingMinIASolver {
	s := &AlternatingMinIASolver{
		channel: NewMultiUserChannelMatrix(),
		src:     rand.NewSource(uint64(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Channel returns the attached channel model.
func (s *AlternatingMinIASolver) Channel() *MultiUserChannelMatrix { return s.channel }

// K returns the number of users of the attached channel.
func (s *AlternatingMinIASolver) K() int { return s.channel.K() }

// Nr returns the per-user receive antenna counts of the attached channel.
func (s *AlternatingMinIASolver) Nr() []int { return s.channel.Nr() }

// Nt returns the per-user transmit antenna counts of the attached channel.
func (s *AlternatingMinIASolver) Nt() []int { return s.channel.Nt() }

// Ns returns a copy of the per-user stream counts, nil before RandomizeF.
func (s *AlternatingMinIASolver) Ns() []int { return append([]int(nil), s.ns...) }

// F returns the per-user precoder matrices. Read-only for callers.
func (s *AlternatingMinIASolver) F() []*mat.CDense { return append([]*mat.CDense(nil), s.f...) }

// C returns the per-user interference-subspace bases. Read-only for callers.
func (s *AlternatingMinIASolver) C() []*mat.CDense { return append([]*mat.CDense(nil), s.c...) }

// W returns the per-user receive filters. Read-only for callers.
func (s *AlternatingMinIASolver) W() []*mat.CDense { return append([]*mat.CDense(nil), s.w...) }

// RandomizeH generates a random channel matrix for all users,
// delegating to the attached channel model. It does not resize existing
// precoders; call RandomizeF again if Nr or Nt changed.
func (s *AlternatingMinIASolver) RandomizeH(nr, nt []int, k int) error {
	return s.channel.Randomize(nr, nt, k, s.src)
}

// InitFromChannelMatrix initializes the attached channel model from the
// given full channel matrix.
func (s *AlternatingMinIASolver) InitFromChannelMatrix(h *mat.CDense, nr, nt []int, k int) error {
	return s.channel.InitFromMatrix(h, nr, nt, k)
}

// GetChannel returns the channel block from transmitter l to receiver k.
func (s *AlternatingMinIASolver) GetChannel(k, l int) (*mat.CDense, error) {
	return s.channel.GetChannel(k, l)
}

// RandomizeF generates a random unit-Frobenius-norm precoder for each
// user: F[k] is Nt[k]×Ns[k] with circularly-symmetric complex Gaussian
// entries, rescaled to ‖F[k]‖_F = 1. nt and ns follow the broadcast
// convention (a single-element slice applies to all k users).
//
// The update methods additionally require Ns[k] < Nr[k] for every
// user, interferer-free ones included, since C[k] always carries
// Nr[k]-Ns[k] columns.
//
// Previously computed C and W are discarded, since they were derived
// from the replaced precoders.
func (s *AlternatingMinIASolver) RandomizeF(nt, ns []int, k int) error {
	ntFull, err := broadcast(nt, k, "Nt")
	if err != nil {
		return err
	}
	nsFull, err := broadcast(ns, k, "Ns")
	if err != nil {
		return err
	}
	for i := 0; i < k; i++ {
		if nsFull[i] < 1 || nsFull[i] > ntFull[i] {
			return fmt.Errorf("%w: Ns[%d]=%d must be in [1, Nt[%d]=%d]",
				ErrShapeMismatch, i, nsFull[i], i, ntFull[i])
		}
	}

	newF := make([]*mat.CDense, k)
	for i := 0; i < k; i++ {
		f := cmatrix.RandNC(ntFull[i], nsFull[i], s.src)
		newF[i] = cmatrix.Scale(complex(1/cmatrix.FrobNorm(f), 0), f)
	}

	s.ns = nsFull
	s.f = newF
	s.c = nil
	s.w = nil
	return nil
}

// checkReady verifies that the channel and the precoders are
// initialized and still consistent with each other. The channel model
// may have been re-initialized after the precoders were sized; that is
// reported as ErrDimensionMismatch rather than silently resizing.
func (s *AlternatingMinIASolver) checkReady() error {
	if s.channel.H() == nil {
		return fmt.Errorf("%w: channel matrix is empty, call RandomizeH or InitFromChannelMatrix", ErrNotInitialized)
	}
	if s.f == nil {
		return fmt.Errorf("%w: precoders are empty, call RandomizeF", ErrNotInitialized)
	}
	k := s.channel.K()
	if len(s.f) != k || len(s.ns) != k {
		return fmt.Errorf("%w: precoders sized for %d users, channel has %d",
			ErrDimensionMismatch, len(s.f), k)
	}
	nr := s.channel.nr
	nt := s.channel.nt
	for i := 0; i < k; i++ {
		fr, fc := s.f[i].Dims()
		if fr != nt[i] || fc != s.ns[i] {
			return fmt.Errorf("%w: F[%d] is %d×%d, want %d×%d",
				ErrDimensionMismatch, i, fr, fc, nt[i], s.ns[i])
		}
		if s.ns[i] >= nr[i] {
			return fmt.Errorf("%w: Ns[%d]=%d leaves no interference dimension at receiver with Nr[%d]=%d",
				ErrDimensionMismatch, i, s.ns[i], i, nr[i])
		}
	}
	return nil
}

// checkAligned verifies that the interference subspaces have been
// computed for the current precoders.
func (s *AlternatingMinIASolver) checkAligned() error {
	if s.c == nil {
		return fmt.Errorf("%w: interference subspaces are empty, call UpdateC", ErrNotInitialized)
	}
	return nil
}

// Step performs one full iteration of the algorithm: UpdateC, UpdateF,
// UpdateW, in that order. Repeated calls continue the iteration.
func (s *AlternatingMinIASolver) Step() error {
	if err := s.UpdateC(); err != nil {
		return err
	}
	if err := s.UpdateF(); err != nil {
		return err
	}
	return s.UpdateW()
}

// UpdateC recomputes the interference-subspace basis of every user. For
// user k it accumulates the Hermitian interference covariance
//
//	Qk = Σ_{l≠k} (Hkl·Fl)·(Hkl·Fl)ᴴ
//
// and takes the Nr[k]-Ns[k] dominant eigenvectors as the orthonormal
// columns of C[k], ordered by descending eigenvalue. With a single user
// Qk is the zero matrix and any orthonormal basis is equally valid; the
// degenerate case is allowed, not an error. Ns[k] must still be below
// Nr[k] for every user, so that C[k] has at least one column.
func (s *AlternatingMinIASolver) UpdateC() error {
	if err := s.checkReady(); err != nil {
		return err
	}
	k := s.channel.K()
	nr := s.channel.nr

	newC := make([]*mat.CDense, k)
	for rx := 0; rx < k; rx++ {
		q := mat.NewCDense(nr[rx], nr[rx], nil)
		for tx := 0; tx < k; tx++ {
			if tx == rx {
				continue
			}
			hkl, err := s.channel.GetChannel(rx, tx)
			if err != nil {
				return err
			}
			hf := cmatrix.Mul(hkl, s.f[tx])
			q = cmatrix.Add(q, cmatrix.MulH(hf, hf))
		}

		ni := nr[rx] - s.ns[rx]
		c, _, err := cmatrix.Peig(q, ni)
		if err != nil {
			return fmt.Errorf("ia: interference subspace of user %d: %w", rx, err)
		}
		newC[rx] = c
	}

	s.c = newC
	return nil
}

// UpdateF recomputes the precoder of every user. For user l it
// accumulates the projected leakage
//
//	Ql = Σ_{k≠l} Hklᴴ·(I - Ck·Ckᴴ)·Hkl
//
// and takes the Ns[l] least-dominant eigenvectors as F[l]: the transmit
// directions sending the least energy outside the other users'
// interference subspaces. This invalidates the C estimate, which is why
// Step always recomputes C first.
func (s *AlternatingMinIASolver) UpdateF() error {
	if err := s.checkReady(); err != nil {
		return err
	}
	if err := s.checkAligned(); err != nil {
		return err
	}
	k := s.channel.K()
	nr := s.channel.nr
	nt := s.channel.nt

	// Interference-nulling projectors Y[k] = I - Ck·Ckᴴ.
	y := make([]*mat.CDense, k)
	for rx := 0; rx < k; rx++ {
		y[rx] = cmatrix.Sub(cmatrix.Eye(nr[rx]), cmatrix.MulH(s.c[rx], s.c[rx]))
	}

	newF := make([]*mat.CDense, k)
	for tx := 0; tx < k; tx++ {
		q := mat.NewCDense(nt[tx], nt[tx], nil)
		for rx := 0; rx < k; rx++ {
			if rx == tx {
				continue
			}
			hkl, err := s.channel.GetChannel(rx, tx)
			if err != nil {
				return err
			}
			q = cmatrix.Add(q, cmatrix.HMul(hkl, cmatrix.Mul(y[rx], hkl)))
		}

		f, _, err := cmatrix.Leig(q, s.ns[tx])
		if err != nil {
			return fmt.Errorf("ia: precoder of user %d: %w", tx, err)
		}
		newF[tx] = f
	}

	s.f = newF
	return nil
}

// UpdateW recomputes the zero-forcing receive filter of every user:
// W[k] is the first Ns[k] rows of [Hkk·Fk | Ck]⁻¹, recovering the
// desired streams while nulling the interference subspace. A singular
// or severely ill-conditioned [Hkk·Fk | Ck], as when Fk and Ck span
// overlapping directions for a degenerate channel realization, is
// reported as ErrSingularMatrix so a caller can retry with a fresh
// random draw.
func (s *AlternatingMinIASolver) UpdateW() error {
	if err := s.checkReady(); err != nil {
		return err
	}
	if err := s.checkAligned(); err != nil {
		return err
	}
	k := s.channel.K()
	nr := s.channel.nr

	newW := make([]*mat.CDense, k)
	for rx := 0; rx < k; rx++ {
		hkk, err := s.channel.GetChannel(rx, rx)
		if err != nil {
			return err
		}
		tk := cmatrix.HStack(cmatrix.Mul(hkk, s.f[rx]), s.c[rx])
		inv, err := cmatrix.Inverse(tk)
		if err != nil {
			return fmt.Errorf("%w: user %d: %w", ErrSingularMatrix, rx, err)
		}

		w := mat.NewCDense(s.ns[rx], nr[rx], nil)
		for i := 0; i < s.ns[rx]; i++ {
			for j := 0; j < nr[rx]; j++ {
				w.Set(i, j, inv.At(i, j))
			}
		}
		newW[rx] = w
	}

	s.w = newW
	return nil
}

// Cost returns the interference leakage of the current F and C
// estimates:
//
//	Σ_k Σ_{l≠k} ‖Hkl·Fl − Ck·Ckᴴ·Hkl·Fl‖²_F
//
// the total interference energy escaping the interference-subspace
// projections. Always non-negative; zero when alignment is perfect or
// no interfering pair exists.
func (s *AlternatingMinIASolver) Cost() (float64, error) {
	if err := s.checkReady(); err != nil {
		return 0, err
	}
	if err := s.checkAligned(); err != nil {
		return 0, err
	}
	k := s.channel.K()

	var cost float64
	for rx := 0; rx < k; rx++ {
		for tx := 0; tx < k; tx++ {
			if tx == rx {
				continue
			}
			hkl, err := s.channel.GetChannel(rx, tx)
			if err != nil {
				return 0, err
			}
			hf := cmatrix.Mul(hkl, s.f[tx])
			leak := cmatrix.Sub(hf, cmatrix.Mul(s.c[rx], cmatrix.HMul(s.c[rx], hf)))
			n := cmatrix.FrobNorm(leak)
			cost += n * n
		}
	}
	return cost, nil
}
