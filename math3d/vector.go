package math3d

import (
	"fmt"
	"math"
)

// Vector3D has the memory layout of a native three component float vector.
type Vector3D struct {
	X, Y, Z float32
}

func NewVector3D(x, y, z float32) Vector3D {
	return Vector3D{X: x, Y: y, Z: z}
}

func (v Vector3D) Add(o Vector3D) Vector3D {
	return Vector3D{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vector3D) Sub(o Vector3D) Vector3D {
	return Vector3D{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vector3D) Mul(s float32) Vector3D {
	return Vector3D{v.X * s, v.Y * s, v.Z * s}
}

// component-wise product
func (v Vector3D) MulVec(o Vector3D) Vector3D {
	return Vector3D{v.X * o.X, v.Y * o.Y, v.Z * o.Z}
}

func (v Vector3D) Dot(o Vector3D) float32 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vector3D) Cross(o Vector3D) Vector3D {
	return Vector3D{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vector3D) LengthSquared() float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

func (v Vector3D) Length() float32 {
	return float32(math.Sqrt(float64(v.LengthSquared())))
}

// Normalize returns the zero vector unchanged.
func (v Vector3D) Normalize() Vector3D {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Mul(1 / l)
}

func (v Vector3D) Lerp(o Vector3D, t float32) Vector3D {
	return v.Add(o.Sub(v).Mul(t))
}

func (v Vector3D) ApproxEqual(o Vector3D, epsilon float32) bool {
	return approx(v.X, o.X, epsilon) && approx(v.Y, o.Y, epsilon) && approx(v.Z, o.Z, epsilon)
}

func (v Vector3D) Array() [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

func Vector3DFromArray(a [3]float32) Vector3D {
	return Vector3D{a[0], a[1], a[2]}
}

func (v Vector3D) String() string {
	return fmt.Sprintf("{X:%f Y:%f Z:%f}", v.X, v.Y, v.Z)
}

func approx(a, b, epsilon float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= epsilon
}
