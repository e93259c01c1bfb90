package math3d

import (
	"fmt"
)

// Matrix3x3 is row-major, A1 A2 A3 being the first row.
type Matrix3x3 struct {
	A1, A2, A3 float32
	B1, B2, B3 float32
	C1, C2, C3 float32
}

// Matrix4x4 is row-major with translation in A4, B4, C4.
type Matrix4x4 struct {
	A1, A2, A3, A4 float32
	B1, B2, B3, B4 float32
	C1, C2, C3, C4 float32
	D1, D2, D3, D4 float32
}

func Identity3x3() Matrix3x3 {
	return Matrix3x3{A1: 1, B2: 1, C3: 1}
}

func Identity4x4() Matrix4x4 {
	return Matrix4x4{A1: 1, B2: 1, C3: 1, D4: 1}
}

func (m Matrix3x3) Mul(o Matrix3x3) Matrix3x3 {
	return Matrix3x3{
		A1: m.A1*o.A1 + m.A2*o.B1 + m.A3*o.C1,
		A2: m.A1*o.A2 + m.A2*o.B2 + m.A3*o.C2,
		A3: m.A1*o.A3 + m.A2*o.B3 + m.A3*o.C3,
		B1: m.B1*o.A1 + m.B2*o.B1 + m.B3*o.C1,
		B2: m.B1*o.A2 + m.B2*o.B2 + m.B3*o.C2,
		B3: m.B1*o.A3 + m.B2*o.B3 + m.B3*o.C3,
		C1: m.C1*o.A1 + m.C2*o.B1 + m.C3*o.C1,
		C2: m.C1*o.A2 + m.C2*o.B2 + m.C3*o.C2,
		C3: m.C1*o.A3 + m.C2*o.B3 + m.C3*o.C3,
	}
}

func (m Matrix3x3) Transpose() Matrix3x3 {
	return Matrix3x3{
		m.A1, m.B1, m.C1,
		m.A2, m.B2, m.C2,
		m.A3, m.B3, m.C3,
	}
}

func (m Matrix3x3) Determinant() float32 {
	return m.A1*m.B2*m.C3 - m.A1*m.B3*m.C2 + m.A2*m.B3*m.C1 -
		m.A2*m.B1*m.C3 + m.A3*m.B1*m.C2 - m.A3*m.B2*m.C1
}

func (m Matrix3x3) Transform(v Vector3D) Vector3D {
	return Vector3D{
		m.A1*v.X + m.A2*v.Y + m.A3*v.Z,
		m.B1*v.X + m.B2*v.Y + m.B3*v.Z,
		m.C1*v.X + m.C2*v.Y + m.C3*v.Z,
	}
}

func (m Matrix3x3) Matrix4x4() Matrix4x4 {
	return Matrix4x4{
		A1: m.A1, A2: m.A2, A3: m.A3,
		B1: m.B1, B2: m.B2, B3: m.B3,
		C1: m.C1, C2: m.C2, C3: m.C3,
		D4: 1,
	}
}

func (m Matrix3x3) String() string {
	return fmt.Sprintf("[%f %f %f; %f %f %f; %f %f %f]",
		m.A1, m.A2, m.A3, m.B1, m.B2, m.B3, m.C1, m.C2, m.C3)
}

func (m Matrix4x4) Mul(o Matrix4x4) Matrix4x4 {
	return Matrix4x4FromMgl(m.Mgl().Mul4(o.Mgl()))
}

func (m Matrix4x4) Transpose() Matrix4x4 {
	return Matrix4x4{
		m.A1, m.B1, m.C1, m.D1,
		m.A2, m.B2, m.C2, m.D2,
		m.A3, m.B3, m.C3, m.D3,
		m.A4, m.B4, m.C4, m.D4,
	}
}

func (m Matrix4x4) Determinant() float32 {
	return m.Mgl().Det()
}

// Inverse of a singular matrix is the zero matrix
func (m Matrix4x4) Inverse() Matrix4x4 {
	return Matrix4x4FromMgl(m.Mgl().Inv())
}

func (m Matrix4x4) Matrix3x3() Matrix3x3 {
	return Matrix3x3{
		m.A1, m.A2, m.A3,
		m.B1, m.B2, m.B3,
		m.C1, m.C2, m.C3,
	}
}

func (m Matrix4x4) TransformPoint(v Vector3D) Vector3D {
	return Vector3D{
		m.A1*v.X + m.A2*v.Y + m.A3*v.Z + m.A4,
		m.B1*v.X + m.B2*v.Y + m.B3*v.Z + m.B4,
		m.C1*v.X + m.C2*v.Y + m.C3*v.Z + m.C4,
	}
}

func (m Matrix4x4) Translation() Vector3D {
	return Vector3D{m.A4, m.B4, m.C4}
}

func (m Matrix4x4) IsIdentity() bool {
	return m == Identity4x4()
}

// FromTRS composes translation * rotation * scaling
func FromTRS(translation Vector3D, rotation Quaternion, scaling Vector3D) Matrix4x4 {
	r := rotation.Matrix()
	return Matrix4x4{
		A1: r.A1 * scaling.X, A2: r.A2 * scaling.Y, A3: r.A3 * scaling.Z, A4: translation.X,
		B1: r.B1 * scaling.X, B2: r.B2 * scaling.Y, B3: r.B3 * scaling.Z, B4: translation.Y,
		C1: r.C1 * scaling.X, C2: r.C2 * scaling.Y, C3: r.C3 * scaling.Z, C4: translation.Z,
		D4: 1,
	}
}

// Decompose assumes an affine matrix without shear.
// Negative determinant is attributed to all three scale axes.
func (m Matrix4x4) Decompose() (scaling Vector3D, rotation Quaternion, translation Vector3D) {
	translation = m.Translation()

	cols := [3]Vector3D{
		{m.A1, m.B1, m.C1},
		{m.A2, m.B2, m.C2},
		{m.A3, m.B3, m.C3},
	}
	scaling = Vector3D{cols[0].Length(), cols[1].Length(), cols[2].Length()}
	if m.Matrix3x3().Determinant() < 0 {
		scaling = scaling.Mul(-1)
	}

	s := [3]float32{scaling.X, scaling.Y, scaling.Z}
	for i := range cols {
		if s[i] != 0 {
			cols[i] = cols[i].Mul(1 / s[i])
		}
	}

	rotation = NewQuaternionFromMatrix(Matrix3x3{
		cols[0].X, cols[1].X, cols[2].X,
		cols[0].Y, cols[1].Y, cols[2].Y,
		cols[0].Z, cols[1].Z, cols[2].Z,
	}).Normalize()
	return
}

func (m Matrix4x4) ApproxEqual(o Matrix4x4, epsilon float32) bool {
	a, b := m.Array(), o.Array()
	for i := range a {
		if !approx(a[i], b[i], epsilon) {
			return false
		}
	}
	return true
}

// Array lists elements row by row
func (m Matrix4x4) Array() [16]float32 {
	return [16]float32{
		m.A1, m.A2, m.A3, m.A4,
		m.B1, m.B2, m.B3, m.B4,
		m.C1, m.C2, m.C3, m.C4,
		m.D1, m.D2, m.D3, m.D4,
	}
}

func (m Matrix4x4) String() string {
	return fmt.Sprintf("[%f %f %f %f; %f %f %f %f; %f %f %f %f; %f %f %f %f]",
		m.A1, m.A2, m.A3, m.A4, m.B1, m.B2, m.B3, m.B4,
		m.C1, m.C2, m.C3, m.C4, m.D1, m.D2, m.D3, m.D4)
}
