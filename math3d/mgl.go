package math3d

import (
	"github.com/go-gl/mathgl/mgl32"
)

// mgl32 matrices are column-major, ours are row-major.

func (q Quaternion) Mgl() mgl32.Quat {
	return mgl32.Quat{W: q.W, V: mgl32.Vec3{q.X, q.Y, q.Z}}
}

func QuaternionFromMgl(q mgl32.Quat) Quaternion {
	return Quaternion{W: q.W, X: q.V[0], Y: q.V[1], Z: q.V[2]}
}

func (v Vector3D) Mgl() mgl32.Vec3 {
	return mgl32.Vec3{v.X, v.Y, v.Z}
}

func Vector3DFromMgl(v mgl32.Vec3) Vector3D {
	return Vector3D{v[0], v[1], v[2]}
}

func (m Matrix3x3) Mgl() mgl32.Mat3 {
	return mgl32.Mat3{
		m.A1, m.B1, m.C1,
		m.A2, m.B2, m.C2,
		m.A3, m.B3, m.C3,
	}
}

func Matrix3x3FromMgl(m mgl32.Mat3) Matrix3x3 {
	return Matrix3x3{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}
}

func (m Matrix4x4) Mgl() mgl32.Mat4 {
	return mgl32.Mat4{
		m.A1, m.B1, m.C1, m.D1,
		m.A2, m.B2, m.C2, m.D2,
		m.A3, m.B3, m.C3, m.D3,
		m.A4, m.B4, m.C4, m.D4,
	}
}

func Matrix4x4FromMgl(m mgl32.Mat4) Matrix4x4 {
	return Matrix4x4{
		m[0], m[4], m[8], m[12],
		m[1], m[5], m[9], m[13],
		m[2], m[6], m[10], m[14],
		m[3], m[7], m[11], m[15],
	}
}

// Matrix4x4FromColumnMajor reads the layout used by glTF and OpenGL.
func Matrix4x4FromColumnMajor(a [16]float32) Matrix4x4 {
	return Matrix4x4FromMgl(mgl32.Mat4(a))
}

func (m Matrix4x4) ColumnMajor() [16]float32 {
	return [16]float32(m.Mgl())
}
