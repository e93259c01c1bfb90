package math3d

import (
	"fmt"
	"math"
)

// Quaternion is a rotation stored in native order: W first, then X, Y, Z.
type Quaternion struct {
	W, X, Y, Z float32
}

// below this 1-cos(angle) slerp degrades to linear weights
const slerpEpsilon = 1e-6

func NewQuaternion(w, x, y, z float32) Quaternion {
	return Quaternion{W: w, X: x, Y: y, Z: z}
}

func Identity() Quaternion {
	return Quaternion{W: 1}
}

// NewQuaternionFromMatrix expects a pure rotation matrix.
func NewQuaternionFromMatrix(m Matrix3x3) (q Quaternion) {
	trace := m.A1 + m.B2 + m.C3

	switch {
	case trace > 0:
		s := sqrt32(trace+1) * 2
		q.W = 0.25 * s
		q.X = (m.C2 - m.B3) / s
		q.Y = (m.A3 - m.C1) / s
		q.Z = (m.B1 - m.A2) / s
	case m.A1 > m.B2 && m.A1 > m.C3:
		s := sqrt32(1+m.A1-m.B2-m.C3) * 2
		q.X = 0.25 * s
		q.Y = (m.B1 + m.A2) / s
		q.Z = (m.A3 + m.C1) / s
		q.W = (m.C2 - m.B3) / s
	case m.B2 > m.C3:
		s := sqrt32(1+m.B2-m.A1-m.C3) * 2
		q.X = (m.B1 + m.A2) / s
		q.Y = 0.25 * s
		q.Z = (m.C2 + m.B3) / s
		q.W = (m.A3 - m.C1) / s
	default:
		s := sqrt32(1+m.C3-m.A1-m.B2) * 2
		q.X = (m.A3 + m.C1) / s
		q.Y = (m.C2 + m.B3) / s
		q.Z = 0.25 * s
		q.W = (m.B1 - m.A2) / s
	}
	return q
}

// NewQuaternionFromEuler takes radians. X is applied first, then Y, then Z.
func NewQuaternionFromEuler(x, y, z float32) Quaternion {
	sr, cr := math.Sincos(float64(x) * 0.5)
	sp, cp := math.Sincos(float64(y) * 0.5)
	sy, cy := math.Sincos(float64(z) * 0.5)

	cpcy := cp * cy
	spsy := sp * sy

	return Quaternion{
		W: float32(cr*cpcy + sr*spsy),
		X: float32(sr*cpcy - cr*spsy),
		Y: float32(cr*sp*cy + sr*cp*sy),
		Z: float32(cr*cp*sy - sr*sp*cy),
	}
}

// NewQuaternionFromAxisAngle normalizes axis. Angle is in radians.
func NewQuaternionFromAxisAngle(axis Vector3D, angle float32) Quaternion {
	if axis.LengthSquared() == 0 {
		return Identity()
	}
	axis = axis.Normalize()

	s, c := math.Sincos(float64(angle) * 0.5)
	sin := float32(s)
	return Quaternion{
		W: float32(c),
		X: axis.X * sin,
		Y: axis.Y * sin,
		Z: axis.Z * sin,
	}
}

func (q Quaternion) LengthSquared() float32 {
	return q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z
}

func (q Quaternion) Length() float32 {
	return sqrt32(q.LengthSquared())
}

func (q Quaternion) Dot(o Quaternion) float32 {
	return q.W*o.W + q.X*o.X + q.Y*o.Y + q.Z*o.Z
}

func (q Quaternion) Scale(s float32) Quaternion {
	return Quaternion{q.W * s, q.X * s, q.Y * s, q.Z * s}
}

func (q Quaternion) Add(o Quaternion) Quaternion {
	return Quaternion{q.W + o.W, q.X + o.X, q.Y + o.Y, q.Z + o.Z}
}

func (q Quaternion) Negate() Quaternion {
	return Quaternion{-q.W, -q.X, -q.Y, -q.Z}
}

// Normalize divides by the magnitude. The zero quaternion is returned as is.
func (q Quaternion) Normalize() Quaternion {
	l := q.Length()
	if l == 0 {
		return q
	}
	return q.Scale(1 / l)
}

func (q Quaternion) Conjugate() Quaternion {
	return Quaternion{q.W, -q.X, -q.Y, -q.Z}
}

func (q Quaternion) Inverse() Quaternion {
	l := q.LengthSquared()
	if l == 0 {
		return q
	}
	return q.Conjugate().Scale(1 / l)
}

// Mul returns q*o. Applied to a vector, o rotates first.
func (q Quaternion) Mul(o Quaternion) Quaternion {
	return Quaternion{
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y + q.Y*o.W + q.Z*o.X - q.X*o.Z,
		Z: q.W*o.Z + q.Z*o.W + q.X*o.Y - q.Y*o.X,
	}
}

func (q Quaternion) Rotate(v Vector3D) Vector3D {
	r := q.Mul(Quaternion{0, v.X, v.Y, v.Z}).Mul(q.Conjugate())
	return Vector3D{r.X, r.Y, r.Z}
}

// Slerp interpolates along the shortest arc. factor is not clamped.
func Slerp(start, end Quaternion, factor float32) Quaternion {
	cosom := start.Dot(end)
	if cosom < 0 {
		cosom = -cosom
		end = end.Negate()
	}

	var sclp, sclq float32
	if 1-cosom > slerpEpsilon {
		omega := math.Acos(float64(cosom))
		sinom := math.Sin(omega)
		sclp = float32(math.Sin(float64(1-factor)*omega) / sinom)
		sclq = float32(math.Sin(float64(factor)*omega) / sinom)
	} else {
		sclp = 1 - factor
		sclq = factor
	}

	return start.Scale(sclp).Add(end.Scale(sclq))
}

func Nlerp(start, end Quaternion, factor float32) Quaternion {
	if start.Dot(end) < 0 {
		end = end.Negate()
	}
	return start.Scale(1 - factor).Add(end.Scale(factor)).Normalize()
}

func (q Quaternion) Matrix() Matrix3x3 {
	return Matrix3x3{
		A1: 1 - 2*(q.Y*q.Y+q.Z*q.Z),
		A2: 2 * (q.X*q.Y - q.Z*q.W),
		A3: 2 * (q.X*q.Z + q.Y*q.W),
		B1: 2 * (q.X*q.Y + q.Z*q.W),
		B2: 1 - 2*(q.X*q.X+q.Z*q.Z),
		B3: 2 * (q.Y*q.Z - q.X*q.W),
		C1: 2 * (q.X*q.Z - q.Y*q.W),
		C2: 2 * (q.Y*q.Z + q.X*q.W),
		C3: 1 - 2*(q.X*q.X+q.Y*q.Y),
	}
}

// ToAxisAngle returns a unit axis and an angle in radians.
// The identity rotation reports the X axis.
func (q Quaternion) ToAxisAngle() (Vector3D, float32) {
	q = q.Normalize()
	if q.W < 0 {
		q = q.Negate()
	}
	s := sqrt32(1 - q.W*q.W)
	angle := float32(2 * math.Acos(float64(clamp(q.W, -1, 1))))
	if s < 1e-6 {
		return Vector3D{X: 1}, angle
	}
	return Vector3D{q.X / s, q.Y / s, q.Z / s}, angle
}

func (q Quaternion) IsIdentity() bool {
	return q.W == 1 && q.X == 0 && q.Y == 0 && q.Z == 0
}

func (q Quaternion) Equal(o Quaternion) bool {
	return q == o
}

func (q Quaternion) ApproxEqual(o Quaternion, epsilon float32) bool {
	return approx(q.W, o.W, epsilon) && approx(q.X, o.X, epsilon) &&
		approx(q.Y, o.Y, epsilon) && approx(q.Z, o.Z, epsilon)
}

// SameRotation treats q and -q as equal
func (q Quaternion) SameRotation(o Quaternion, epsilon float32) bool {
	return q.ApproxEqual(o, epsilon) || q.ApproxEqual(o.Negate(), epsilon)
}

func (q Quaternion) String() string {
	return fmt.Sprintf("{W:%f X:%f Y:%f Z:%f}", q.W, q.X, q.Y, q.Z)
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
