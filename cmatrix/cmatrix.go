// Package cmatrix provides dense complex-matrix primitives on top of
// gonum: circularly-symmetric complex Gaussian generation, products via
// cblas128, Hermitian eigendecomposition and inversion through the real
// symmetric embedding of a complex matrix.
package cmatrix

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrNonSquare is returned when a square matrix is required.
	ErrNonSquare = errors.New("cmatrix: matrix is not square")

	// ErrDimensionMismatch is returned when a requested decomposition size
	// is incompatible with the matrix dimensions.
	ErrDimensionMismatch = errors.New("cmatrix: dimension mismatch")

	// ErrSingular is returned when a matrix is singular or too
	// ill-conditioned to invert at working precision.
	ErrSingular = errors.New("cmatrix: matrix is singular to working precision")

	// ErrEigenFailed is returned when the eigendecomposition does not
	// converge or cannot produce the requested number of eigenvectors.
	ErrEigenFailed = errors.New("cmatrix: eigendecomposition failed")
)

// RandNC returns an r×c matrix with i.i.d. circularly-symmetric complex
// Gaussian entries of unit variance: real and imaginary parts are
// independent N(0, 0.5) samples drawn from src.
func RandNC(r, c int, src rand.Source) *mat.CDense {
	norm := distuv.Normal{Mu: 0, Sigma: math.Sqrt(0.5), Src: src}
	data := make([]complex128, r*c)
	for i := range data {
		data[i] = complex(norm.Rand(), norm.Rand())
	}
	return mat.NewCDense(r, c, data)
}

// gemm multiplies op(a)·op(b) where op is the identity or the conjugate
// transpose. Panics with mat.ErrShape on incompatible dimensions, same
// as the gonum arithmetic it wraps.
func gemm(tA, tB blas.Transpose, a, b *mat.CDense) *mat.CDense {
	ar, ac := a.Dims()
	if tA == blas.ConjTrans {
		ar, ac = ac, ar
	}
	br, bc := b.Dims()
	if tB == blas.ConjTrans {
		br, bc = bc, br
	}
	if ac != br {
		panic(mat.ErrShape)
	}
	c := mat.NewCDense(ar, bc, nil)
	cblas128.Gemm(tA, tB, 1, a.RawCMatrix(), b.RawCMatrix(), 0, c.RawCMatrix())
	return c
}

// Mul returns a·b.
func Mul(a, b *mat.CDense) *mat.CDense {
	return gemm(blas.NoTrans, blas.NoTrans, a, b)
}

// MulH returns a·bᴴ.
func MulH(a, b *mat.CDense) *mat.CDense {
	return gemm(blas.NoTrans, blas.ConjTrans, a, b)
}

// HMul returns aᴴ·b.
func HMul(a, b *mat.CDense) *mat.CDense {
	return gemm(blas.ConjTrans, blas.NoTrans, a, b)
}

// Add returns a + b. Panics with mat.ErrShape on mismatched dimensions.
func Add(a, b *mat.CDense) *mat.CDense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		panic(mat.ErrShape)
	}
	c := mat.NewCDense(ar, ac, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			c.Set(i, j, a.At(i, j)+b.At(i, j))
		}
	}
	return c
}

// Sub returns a - b. Panics with mat.ErrShape on mismatched dimensions.
func Sub(a, b *mat.CDense) *mat.CDense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		panic(mat.ErrShape)
	}
	c := mat.NewCDense(ar, ac, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			c.Set(i, j, a.At(i, j)-b.At(i, j))
		}
	}
	return c
}

// Scale returns f·a.
func Scale(f complex128, a *mat.CDense) *mat.CDense {
	r, c := a.Dims()
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, f*a.At(i, j))
		}
	}
	return out
}

// Eye returns the n×n identity matrix.
func Eye(n int) *mat.CDense {
	out := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		out.Set(i, i, 1)
	}
	return out
}

// HStack returns the horizontal concatenation [a | b]. Panics with
// mat.ErrShape if the row counts differ.
func HStack(a, b *mat.CDense) *mat.CDense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br {
		panic(mat.ErrShape)
	}
	out := mat.NewCDense(ar, ac+bc, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			out.Set(i, j, a.At(i, j))
		}
		for j := 0; j < bc; j++ {
			out.Set(i, ac+j, b.At(i, j))
		}
	}
	return out
}

// FrobNorm returns the Frobenius norm of a.
func FrobNorm(a *mat.CDense) float64 {
	r, c := a.Dims()
	var sum float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := a.At(i, j)
			sum += real(v)*real(v) + imag(v)*imag(v)
		}
	}
	return math.Sqrt(sum)
}

// realEmbedding returns the real representation [[X, -Y], [Y, X]] of
// the complex matrix a = X + iY. The embedding of a Hermitian matrix is
// symmetric, and the embedding of an inverse is the inverse of the
// embedding, which is what the eigen and inversion routines below rely
// on.
func realEmbedding(a *mat.CDense) *mat.Dense {
	r, c := a.Dims()
	e := mat.NewDense(2*r, 2*c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := a.At(i, j)
			e.Set(i, j, real(v))
			e.Set(i, c+j, -imag(v))
			e.Set(r+i, j, imag(v))
			e.Set(r+i, c+j, real(v))
		}
	}
	return e
}

// Inverse returns a⁻¹, computed on the real embedding of a. It returns
// ErrSingular when a is singular or so ill-conditioned that the result
// would be meaningless; callers that invert randomly generated matrices
// should treat that as a retryable condition.
func Inverse(a *mat.CDense) (*mat.CDense, error) {
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("cmatrix: cannot invert %d×%d matrix: %w", r, c, ErrNonSquare)
	}
	var inv mat.Dense
	if err := inv.Inverse(realEmbedding(a)); err != nil {
		return nil, fmt.Errorf("cmatrix: %v: %w", err, ErrSingular)
	}
	out := mat.NewCDense(r, r, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < r; j++ {
			out.Set(i, j, complex(inv.At(i, j), inv.At(r+i, j)))
		}
	}
	return out, nil
}

// Peig returns the n eigenvectors of the Hermitian matrix a associated
// with the largest eigenvalues, as the orthonormal columns of an m×n
// matrix ordered by descending eigenvalue, along with the eigenvalues.
//
// When eigenvalues repeat, the basis of the repeated eigenspace is
// whatever the underlying real symmetric eigensolver emits, kept in a
// deterministic first-come order. That affects reproducibility of the
// returned basis, not the spanned subspace.
func Peig(a *mat.CDense, n int) (*mat.CDense, []float64, error) {
	return hermEig(a, n, true)
}

// Leig returns the n eigenvectors of the Hermitian matrix a associated
// with the smallest eigenvalues, ordered by ascending eigenvalue. See
// Peig for the tie-break behavior on repeated eigenvalues.
func Leig(a *mat.CDense, n int) (*mat.CDense, []float64, error) {
	return hermEig(a, n, false)
}

// hermEig factorizes the 2m×2m real symmetric embedding of the m×m
// Hermitian matrix a. Every eigenvalue of a appears twice in the
// embedding with eigenvector pairs that map to the same complex
// direction, so the complex basis is recovered by walking the real
// eigenvectors in eigenvalue order and keeping a candidate only when it
// is not already spanned by the kept set.
func hermEig(a *mat.CDense, n int, dominant bool) (*mat.CDense, []float64, error) {
	m, mc := a.Dims()
	if m != mc {
		return nil, nil, fmt.Errorf("cmatrix: eigendecomposition of %d×%d matrix: %w", m, mc, ErrNonSquare)
	}
	if n < 1 || n > m {
		return nil, nil, fmt.Errorf("cmatrix: cannot extract %d eigenvectors from a %d×%d matrix: %w",
			n, m, m, ErrDimensionMismatch)
	}

	e := realEmbedding(a)
	sym := mat.NewSymDense(2*m, nil)
	for i := 0; i < 2*m; i++ {
		for j := i; j < 2*m; j++ {
			// Symmetrize away floating-point asymmetry in the input.
			sym.SetSym(i, j, 0.5*(e.At(i, j)+e.At(j, i)))
		}
	}

	var es mat.EigenSym
	if !es.Factorize(sym, true) {
		return nil, nil, fmt.Errorf("cmatrix: %w", ErrEigenFailed)
	}
	vals := es.Values(nil) // ascending
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	kept := make([][]complex128, 0, n)
	keptVals := make([]float64, 0, n)
	for idx := 0; idx < 2*m && len(kept) < n; idx++ {
		col := idx
		if dominant {
			col = 2*m - 1 - idx
		}
		x := make([]complex128, m)
		for i := 0; i < m; i++ {
			x[i] = complex(vecs.At(i, col), vecs.At(m+i, col))
		}
		// Project out the directions already kept. Candidates from the
		// duplicated spectrum collapse to (near) zero and are skipped.
		for _, u := range kept {
			var dot complex128
			for i := range u {
				dot += cmplx.Conj(u[i]) * x[i]
			}
			for i := range x {
				x[i] -= dot * u[i]
			}
		}
		var norm float64
		for _, v := range x {
			norm += real(v)*real(v) + imag(v)*imag(v)
		}
		norm = math.Sqrt(norm)
		if norm < 1e-8 {
			continue
		}
		for i := range x {
			x[i] /= complex(norm, 0)
		}
		kept = append(kept, x)
		keptVals = append(keptVals, vals[col])
	}
	if len(kept) < n {
		return nil, nil, fmt.Errorf("cmatrix: recovered only %d of %d eigenvectors: %w",
			len(kept), n, ErrEigenFailed)
	}

	out := mat.NewCDense(m, n, nil)
	for j, u := range kept {
		for i := 0; i < m; i++ {
			out.Set(i, j, u[i])
		}
	}
	return out, keptVals, nil
}
