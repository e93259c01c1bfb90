package interop

import (
	"fmt"

	"github.com/pkg/errors"
)

// Cursor walks a buffer sequentially. The first failed access is kept in
// Err and every later access is a no-op returning zero values.
type Cursor struct {
	parent         *Cursor
	buf            []byte
	relativeOffset int
	absoluteOffset int
	pos            int
	kind           string
	err            error
}

func NewCursor(kind string, b []byte) *Cursor {
	return &Cursor{buf: b, kind: kind}
}

// Sub opens a child cursor at offset relative to c.
func (c *Cursor) Sub(kind string, offset int) *Cursor {
	child := &Cursor{
		parent:         c,
		relativeOffset: offset,
		absoluteOffset: c.absoluteOffset + offset,
		kind:           kind,
	}
	if err := checkRange(len(c.buf), offset, 0); err != nil {
		child.err = c.wrap(err)
	} else {
		child.buf = c.buf[offset:]
	}
	return child
}

func (c *Cursor) Pos() int         { return c.pos }
func (c *Cursor) Len() int         { return len(c.buf) }
func (c *Cursor) Remaining() int   { return len(c.buf) - c.pos }
func (c *Cursor) Err() error       { return c.err }
func (c *Cursor) Kind() string     { return c.kind }
func (c *Cursor) Parent() *Cursor  { return c.parent }
func (c *Cursor) AbsolutePos() int { return c.absoluteOffset + c.pos }

func (c *Cursor) String() string {
	return fmt.Sprintf("cursor<%v>[o:0x%x,p:0x%x,s:0x%x,ao:0x%x]",
		c.kind, c.relativeOffset, c.pos, len(c.buf), c.absoluteOffset)
}

func (c *Cursor) StringChain() string {
	s := c.String()
	if c.parent != nil {
		s += "::" + c.parent.StringChain()
	}
	return s
}

func (c *Cursor) wrap(err error) error {
	return errors.Wrapf(err, "%s", c.StringChain())
}

func (c *Cursor) fail(err error) {
	if c.err == nil {
		c.err = c.wrap(err)
	}
}

func (c *Cursor) Seek(pos int) {
	if c.err != nil {
		return
	}
	if err := checkRange(len(c.buf), pos, 0); err != nil {
		c.fail(err)
		return
	}
	c.pos = pos
}

func (c *Cursor) Skip(amount int) {
	c.Seek(c.pos + amount)
}

// Align moves forward to the next multiple of n relative to the buffer start.
func (c *Cursor) Align(n int) {
	if rem := c.pos % n; rem != 0 {
		c.Skip(n - rem)
	}
}

func (c *Cursor) Bytes(amount int) []byte {
	if c.err != nil {
		return nil
	}
	if err := checkRange(len(c.buf), c.pos, amount); err != nil {
		c.fail(err)
		return nil
	}
	b := c.buf[c.pos : c.pos+amount]
	c.pos += amount
	return b
}

// Next reads a T at the cursor position and advances past it.
func Next[T any](c *Cursor) T {
	var v T
	if c.err != nil {
		return v
	}
	v, err := Read[T](c.buf, c.pos)
	if err != nil {
		c.fail(err)
		return v
	}
	c.pos += SizeOf[T]()
	return v
}

// Put writes value at the cursor position and advances past it.
func Put[T any](c *Cursor, value T) {
	if c.err != nil {
		return
	}
	if err := Write(c.buf, c.pos, value); err != nil {
		c.fail(err)
		return
	}
	c.pos += SizeOf[T]()
}

func (c *Cursor) ReadU8() uint8    { return Next[uint8](c) }
func (c *Cursor) ReadU16() uint16  { return Next[uint16](c) }
func (c *Cursor) ReadU32() uint32  { return Next[uint32](c) }
func (c *Cursor) ReadU64() uint64  { return Next[uint64](c) }
func (c *Cursor) ReadI32() int32   { return Next[int32](c) }
func (c *Cursor) ReadF32() float32 { return Next[float32](c) }
func (c *Cursor) ReadF64() float64 { return Next[float64](c) }

func (c *Cursor) ReadNativeString() string {
	ns := Next[NativeString](c)
	if c.err != nil {
		return ""
	}
	s, err := ns.String()
	if err != nil {
		c.fail(err)
	}
	return s
}
