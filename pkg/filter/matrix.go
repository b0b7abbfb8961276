package filter

import (
	"image"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a 4x5 color transformation matrix stored in row-major order as
// [R, G, B, A, translate] for each output channel:
//
//	R' = m[0]*R + m[1]*G + m[2]*B + m[3]*A + m[4]
//	G' = m[5]*R + m[6]*G + m[7]*B + m[8]*A + m[9]
//	B' = m[10]*R + m[11]*G + m[12]*B + m[13]*A + m[14]
//	A' = m[15]*R + m[16]*G + m[17]*B + m[18]*A + m[19]
//
// Channel values are in the range [0, 255]; the translate column (indices
// 4, 9, 14, 19) is added after multiplication
type Matrix [20]float64

// Identity returns the matrix that leaves every color unchanged
func Identity() Matrix {
	return Matrix{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// IsIdentity reports whether the matrix is exactly the identity
func (m Matrix) IsIdentity() bool {
	return m == Identity()
}

// Compose returns the matrix that applies inner first, then m. The product
// is computed on the homogeneous 5x5 lift so the translate column composes
// correctly
func (m Matrix) Compose(inner Matrix) Matrix {
	var out mat.Dense
	out.Mul(m.lift(), inner.lift())

	var result Matrix
	for row := 0; row < 4; row++ {
		for col := 0; col < 5; col++ {
			result[row*5+col] = out.At(row, col)
		}
	}
	return result
}

// Lerp blends the matrix toward the identity: amount 1 keeps the full
// effect, amount 0 disables it. Values outside [0, 1] extrapolate
func (m Matrix) Lerp(amount float64) Matrix {
	id := Identity()
	var result Matrix
	for i := range m {
		result[i] = id[i] + (m[i]-id[i])*amount
	}
	return result
}

// Apply runs the matrix over every pixel of img and returns the filtered
// copy. The input is left untouched
func (m Matrix) Apply(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	if m.IsIdentity() {
		return dst
	}

	for i := 0; i < len(dst.Pix); i += 4 {
		r := float64(dst.Pix[i])
		g := float64(dst.Pix[i+1])
		b := float64(dst.Pix[i+2])
		a := float64(dst.Pix[i+3])

		dst.Pix[i] = clampByte(m[0]*r + m[1]*g + m[2]*b + m[3]*a + m[4])
		dst.Pix[i+1] = clampByte(m[5]*r + m[6]*g + m[7]*b + m[8]*a + m[9])
		dst.Pix[i+2] = clampByte(m[10]*r + m[11]*g + m[12]*b + m[13]*a + m[14])
		dst.Pix[i+3] = clampByte(m[15]*r + m[16]*g + m[17]*b + m[18]*a + m[19])
	}
	return dst
}

// lift embeds the 4x5 matrix into a 5x5 homogeneous matrix with a constant
// bottom row so translation survives multiplication
func (m Matrix) lift() *mat.Dense {
	d := mat.NewDense(5, 5, nil)
	for row := 0; row < 4; row++ {
		for col := 0; col < 5; col++ {
			d.Set(row, col, m[row*5+col])
		}
	}
	d.Set(4, 4, 1)
	return d
}

// Chain is an ordered list of filters, applied first to last
type Chain []Matrix

// Compose folds the chain into a single equivalent matrix
func (c Chain) Compose() Matrix {
	result := Identity()
	for _, m := range c {
		result = m.Compose(result)
	}
	return result
}

// Apply runs the whole chain over img as one composed matrix, so a long
// chain costs the same per pixel as a single filter
func (c Chain) Apply(img image.Image) *image.NRGBA {
	return c.Compose().Apply(img)
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
