// Package rotscript is a small line based language for composing rotations.
//
//	$base euler 0 90 0      // comment
//	axis 0 0 1 45
//	mul $base
//	rotate 1 0 0
//
// Every line runs one operation on the accumulator. A leading label stores
// the resulting rotation under that name.
package rotscript

import (
	"fmt"
	"strings"
)

// Ref is a label used as an argument.
type Ref string

func (r Ref) String() string {
	return "$" + string(r)
}

type Statement struct {
	Line    int
	Label   string
	Op      string
	Args    []interface{}
	Comment string
}

func (st *Statement) Number(i int) float32 {
	return st.Args[i].(float32)
}

func (st *Statement) Ref(i int) Ref {
	return st.Args[i].(Ref)
}

func (st *Statement) String() string {
	parts := make([]string, 0, len(st.Args)+3)
	if st.Label != "" {
		parts = append(parts, "$"+st.Label)
	}
	parts = append(parts, st.Op)
	for _, arg := range st.Args {
		parts = append(parts, fmt.Sprint(arg))
	}
	s := strings.Join(parts, " ")
	if st.Comment != "" {
		s += " // " + st.Comment
	}
	return s
}

func Render(statements []*Statement) string {
	var sb strings.Builder
	for _, st := range statements {
		sb.WriteString(st.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// signature letters: n is a number, l is a label
var signatures = map[string]string{
	"identity":  "",
	"quat":      "nnnn",
	"euler":     "nnn",
	"axis":      "nnnn",
	"matrix":    "nnnnnnnnn",
	"mul":       "l",
	"premul":    "l",
	"slerp":     "ln",
	"normalize": "",
	"conjugate": "",
	"inverse":   "",
	"load":      "l",
	"rotate":    "nnn",
}

func Ops() []string {
	return []string{"identity", "quat", "euler", "axis", "matrix", "mul", "premul",
		"slerp", "normalize", "conjugate", "inverse", "load", "rotate"}
}
