package rotscript

import (
	"github.com/pkg/errors"

	"github.com/mogaika/scene_interop/math3d"
)

type Step struct {
	Statement *Statement
	Rotation  math3d.Quaternion
	// set by rotate
	Vector *math3d.Vector3D `json:",omitempty"`
}

type Result struct {
	Rotation math3d.Quaternion
	Labels   map[string]math3d.Quaternion
	Trace    []Step
}

func (r *Result) lookup(st *Statement, i int) (math3d.Quaternion, error) {
	ref := st.Ref(i)
	q, ok := r.Labels[string(ref)]
	if !ok {
		return q, errors.Errorf("Unknown label %v on line %v", ref, st.Line)
	}
	return q, nil
}

func (r *Result) exec(st *Statement) (*math3d.Vector3D, error) {
	acc := r.Rotation
	switch st.Op {
	case "identity":
		acc = math3d.Identity()
	case "quat":
		acc = math3d.NewQuaternion(st.Number(0), st.Number(1), st.Number(2), st.Number(3))
	case "euler":
		acc = math3d.NewQuaternionFromEuler(
			math3d.Radians(st.Number(0)), math3d.Radians(st.Number(1)), math3d.Radians(st.Number(2)))
	case "axis":
		axis := math3d.NewVector3D(st.Number(0), st.Number(1), st.Number(2))
		acc = math3d.NewQuaternionFromAxisAngle(axis, math3d.Radians(st.Number(3)))
	case "matrix":
		acc = math3d.NewQuaternionFromMatrix(math3d.Matrix3x3{
			A1: st.Number(0), A2: st.Number(1), A3: st.Number(2),
			B1: st.Number(3), B2: st.Number(4), B3: st.Number(5),
			C1: st.Number(6), C2: st.Number(7), C3: st.Number(8),
		})
	case "mul", "premul", "load", "slerp":
		q, err := r.lookup(st, 0)
		if err != nil {
			return nil, err
		}
		switch st.Op {
		case "mul":
			acc = acc.Mul(q)
		case "premul":
			acc = q.Mul(acc)
		case "load":
			acc = q
		case "slerp":
			acc = math3d.Slerp(acc, q, st.Number(1))
		}
	case "normalize":
		acc = acc.Normalize()
	case "conjugate":
		acc = acc.Conjugate()
	case "inverse":
		acc = acc.Inverse()
	case "rotate":
		v := acc.Rotate(math3d.NewVector3D(st.Number(0), st.Number(1), st.Number(2)))
		return &v, nil
	default:
		return nil, errors.Errorf("Unknown operation %q on line %v", st.Op, st.Line)
	}
	r.Rotation = acc
	return nil, nil
}

// Run executes statements starting from the identity rotation.
func Run(statements []*Statement) (*Result, error) {
	r := &Result{
		Rotation: math3d.Identity(),
		Labels:   make(map[string]math3d.Quaternion),
		Trace:    make([]Step, 0, len(statements)),
	}
	for _, st := range statements {
		vector, err := r.exec(st)
		if err != nil {
			return r, err
		}
		if st.Label != "" {
			r.Labels[st.Label] = r.Rotation
		}
		r.Trace = append(r.Trace, Step{Statement: st, Rotation: r.Rotation, Vector: vector})
	}
	return r, nil
}

func Eval(text []byte) (*Result, error) {
	statements, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return Run(statements)
}
