package rotscript

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

const (
	TOKEN_OP = iota
	TOKEN_LABEL
	TOKEN_NUMBER
	TOKEN_NEWLINE
	TOKEN_COMMENT
)

var lexer *lexmachine.Lexer

func init() {
	lexer = lexmachine.NewLexer()
	lexer.Add([]byte(`[a-z]+`), getToken(TOKEN_OP))
	lexer.Add([]byte(`\$[a-zA-Z_][a-zA-Z0-9_]*`), getToken(TOKEN_LABEL))
	lexer.Add([]byte(`[\+\-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][\+\-]?[0-9]+)?`), getToken(TOKEN_NUMBER))
	lexer.Add([]byte(`(\n|\r|\n\r)+`), getToken(TOKEN_NEWLINE))
	lexer.Add([]byte(`//[^\n]*`), getToken(TOKEN_COMMENT))
	lexer.Add([]byte(`( |\t)+`), skip)
	if err := lexer.Compile(); err != nil {
		panic(err)
	}
}

func getToken(tokenType int) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(tokenType, string(m.Bytes), m), nil
	}
}

func skip(scan *lexmachine.Scanner, match *machines.Match) (interface{}, error) {
	return nil, nil
}

func Parse(text []byte) ([]*Statement, error) {
	scanner, err := lexer.Scanner(text)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to create lexer scanner")
	}

	result := make([]*Statement, 0, 16)

	var current *Statement
	var label string
	var labelLine int
	finish := func() error {
		if current != nil {
			if err := check(current); err != nil {
				return err
			}
			result = append(result, current)
		} else if label != "" {
			return errors.Errorf("Label $%s without operation on line %v", label, labelLine)
		}
		current = nil
		label = ""
		return nil
	}

	for itok, err, eos := scanner.Next(); !eos; itok, err, eos = scanner.Next() {
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to parse token")
		}
		tok := itok.(*lexmachine.Token)
		lexeme := string(tok.Lexeme)

		switch tok.Type {
		case TOKEN_OP:
			if current != nil {
				return nil, errors.Errorf("Multiple operations on line %v (%q)", tok.StartLine, lexeme)
			}
			if _, known := signatures[lexeme]; !known {
				return nil, errors.Errorf("Unknown operation on line %v (%q)", tok.StartLine, lexeme)
			}
			current = &Statement{Line: tok.StartLine, Label: label, Op: lexeme}
		case TOKEN_LABEL:
			if current != nil {
				current.Args = append(current.Args, Ref(lexeme[1:]))
			} else if label == "" {
				label = lexeme[1:]
				labelLine = tok.StartLine
			} else {
				return nil, errors.Errorf("Multiple labels on line %v (%q)", tok.StartLine, lexeme)
			}
		case TOKEN_NUMBER:
			if current == nil {
				return nil, errors.Errorf("Missed operation on line %v (%q)", tok.StartLine, lexeme)
			}
			f, err := strconv.ParseFloat(lexeme, 32)
			if err != nil {
				return nil, errors.Errorf("Unknown number format on line %v (%q)", tok.StartLine, lexeme)
			}
			current.Args = append(current.Args, float32(f))
		case TOKEN_NEWLINE:
			if err := finish(); err != nil {
				return nil, err
			}
		case TOKEN_COMMENT:
			if current != nil {
				current.Comment = strings.TrimSpace(lexeme[2:])
			}
		}
	}

	if err := finish(); err != nil {
		return nil, err
	}
	return result, nil
}

func check(st *Statement) error {
	sig := signatures[st.Op]
	if len(st.Args) != len(sig) {
		return errors.Errorf("Operation %q on line %v takes %d arguments, got %d", st.Op, st.Line, len(sig), len(st.Args))
	}
	for i, kind := range sig {
		switch kind {
		case 'n':
			if _, ok := st.Args[i].(float32); !ok {
				return errors.Errorf("Operation %q on line %v: argument %d must be a number", st.Op, st.Line, i+1)
			}
		case 'l':
			if _, ok := st.Args[i].(Ref); !ok {
				return errors.Errorf("Operation %q on line %v: argument %d must be a label", st.Op, st.Line, i+1)
			}
		}
	}
	return nil
}
