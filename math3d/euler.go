package math3d

import (
	"math"
)

// ToEuler is the inverse of NewQuaternionFromEuler. Result in radians.
func (q Quaternion) ToEuler() (e Vector3D) {
	sinrCosp := float64(2 * (q.W*q.X + q.Y*q.Z))
	cosrCosp := float64(1 - 2*(q.X*q.X+q.Y*q.Y))
	e.X = float32(math.Atan2(sinrCosp, cosrCosp))

	sinp := float64(2 * (q.W*q.Y - q.Z*q.X))
	if math.Abs(sinp) >= 1 {
		e.Y = float32(math.Copysign(math.Pi/2, sinp))
	} else {
		e.Y = float32(math.Asin(sinp))
	}

	sinyCosp := float64(2 * (q.W*q.Z + q.X*q.Y))
	cosyCosp := float64(1 - 2*(q.Y*q.Y+q.Z*q.Z))
	e.Z = float32(math.Atan2(sinyCosp, cosyCosp))

	return e
}

func NewQuaternionFromEulerVector(v Vector3D) Quaternion {
	return NewQuaternionFromEuler(v.X, v.Y, v.Z)
}

func DegreesToRadians(v Vector3D) Vector3D {
	return v.Mul(math.Pi / 180.0)
}

func RadiansToDegrees(v Vector3D) Vector3D {
	return v.Mul(180.0 / math.Pi)
}

func Radians(deg float32) float32 {
	return deg * (math.Pi / 180.0)
}
