package math3d

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTRSDecompose(t *testing.T) {
	var tests = []struct {
		t Vector3D
		r Quaternion
		s Vector3D
	}{
		{Vector3D{}, Identity(), Vector3D{1, 1, 1}},
		{Vector3D{1, 2, 3}, NewQuaternionFromAxisAngle(Vector3D{0, 1, 0}, 0.5), Vector3D{2, 2, 2}},
		{Vector3D{-4, 0, 9}, NewQuaternionFromEuler(0.2, 1.1, -0.7), Vector3D{1, 3, 0.5}},
	}
	for _, test := range tests {
		m := FromTRS(test.t, test.r, test.s)
		s, r, tr := m.Decompose()
		assert.True(t, s.ApproxEqual(test.s, 1e-4), "scale %v != %v", s, test.s)
		assert.True(t, r.SameRotation(test.r, 1e-4), "rotation %v != %v", r, test.r)
		assert.True(t, tr.ApproxEqual(test.t, 1e-4), "translation %v != %v", tr, test.t)
	}
}

func TestTransformPoint(t *testing.T) {
	m := FromTRS(Vector3D{10, 0, 0}, NewQuaternionFromAxisAngle(Vector3D{0, 0, 1}, 3.14159265/2), Vector3D{2, 2, 2})
	p := m.TransformPoint(Vector3D{1, 0, 0})
	assert.True(t, p.ApproxEqual(Vector3D{10, 2, 0}, 1e-5), "%v", p)
}

func TestMatrixMulAndInverse(t *testing.T) {
	a := FromTRS(Vector3D{1, 2, 3}, NewQuaternionFromEuler(0.1, 0.2, 0.3), Vector3D{1, 2, 1})
	b := FromTRS(Vector3D{-3, 0, 1}, NewQuaternionFromEuler(1, 0, 0), Vector3D{1, 1, 1})

	p := Vector3D{4, 5, 6}
	expected := a.TransformPoint(b.TransformPoint(p))
	assert.True(t, a.Mul(b).TransformPoint(p).ApproxEqual(expected, 1e-4))

	assert.True(t, a.Mul(a.Inverse()).ApproxEqual(Identity4x4(), 1e-5))
	assert.True(t, Identity4x4().Mul(b).ApproxEqual(b, 0))
}

func TestMatrix3x3Basics(t *testing.T) {
	m := Matrix3x3{1, 2, 3, 4, 5, 6, 7, 8, 10}
	assert.InDelta(t, -3, m.Determinant(), 1e-6)
	assert.Equal(t, Matrix3x3{1, 4, 7, 2, 5, 8, 3, 6, 10}, m.Transpose())
	assert.Equal(t, m, m.Mul(Identity3x3()))
	assert.Equal(t, m, Matrix3x3FromMgl(m.Mgl()))
}

func TestColumnMajorConversion(t *testing.T) {
	m := FromTRS(Vector3D{7, 8, 9}, Identity(), Vector3D{1, 1, 1})
	cm := m.ColumnMajor()
	assert.Equal(t, [3]float32{7, 8, 9}, [3]float32{cm[12], cm[13], cm[14]})
	assert.Equal(t, m, Matrix4x4FromColumnMajor(cm))
	assert.Equal(t, m.Transpose().Array(), cm)
}
