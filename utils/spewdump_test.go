package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

type dumpNode struct {
	Name     string
	Children []*dumpNode
}

func TestDumpDepth(t *testing.T) {
	tree := &dumpNode{Name: "root", Children: []*dumpNode{{Name: "child", Children: []*dumpNode{{Name: "leaf"}}}}}

	var full, shallow bytes.Buffer
	Dump(&full, 0, tree)
	Dump(&shallow, 3, tree)

	assert.Contains(t, full.String(), "leaf")
	assert.Contains(t, shallow.String(), "child")
	assert.NotContains(t, shallow.String(), "leaf")
	assert.Contains(t, SDump(tree), "root")
}

func TestDumpToOneLineString(t *testing.T) {
	assert.Equal(t, `NIMG\x00\x01\x7f`, DumpToOneLineString([]byte{'N', 'I', 'M', 'G', 0, 1, 0x7f}))
}
