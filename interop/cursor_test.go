package interop

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/scene_interop/config"
)

func TestCursorSequential(t *testing.T) {
	buf := make([]byte, 32)
	w := NewCursor("out", buf)
	Put(w, uint8(9))
	Put(w, float32(1.5))
	w.Align(8)
	Put(w, float64(-3))
	Put(w, vec3{1, 2, 3})
	require.NoError(t, w.Err())
	assert.Equal(t, 28, w.Pos())

	r := NewCursor("in", buf)
	assert.Equal(t, uint8(9), r.ReadU8())
	assert.Equal(t, float32(1.5), r.ReadF32())
	r.Align(8)
	assert.Equal(t, -3.0, r.ReadF64())
	assert.Equal(t, vec3{1, 2, 3}, Next[vec3](r))
	assert.Equal(t, 4, r.Remaining())
	require.NoError(t, r.Err())
}

func TestCursorStickyError(t *testing.T) {
	c := NewCursor("short", []byte{1, 2, 3})
	assert.Equal(t, uint32(0), c.ReadU32())
	require.Error(t, c.Err())
	assert.True(t, errors.Is(c.Err(), ErrOutOfRange))
	assert.Contains(t, c.Err().Error(), "cursor<short>")

	// later reads do not advance or replace the error
	first := c.Err()
	assert.Equal(t, uint8(0), c.ReadU8())
	assert.Equal(t, 0, c.Pos())
	assert.Equal(t, first, c.Err())
}

func TestCursorSub(t *testing.T) {
	buf := []byte{0, 0, 0, 0, 5, 0, 0, 0}
	root := NewCursor("root", buf)
	sub := root.Sub("child", 4)
	assert.Equal(t, uint32(5), sub.ReadU32())
	assert.Equal(t, 8, sub.AbsolutePos())
	assert.Equal(t, root, sub.Parent())

	bad := root.Sub("bad", 9)
	require.Error(t, bad.Err())
	assert.Contains(t, bad.Err().Error(), "cursor<root>")
}

func TestNativeStringRoundTrip(t *testing.T) {
	buf := make([]byte, NativeStringSize+2)
	require.NoError(t, WriteNativeString(buf, 2, "Armature|Walk"))

	length, err := Read[uint32](buf, 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(13), length)
	assert.Equal(t, byte(0), buf[2+4+13])

	s, err := ReadNativeString(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, "Armature|Walk", s)

	c := NewCursor("str", buf[2:])
	assert.Equal(t, "Armature|Walk", c.ReadNativeString())
	assert.NoError(t, c.Err())
}

func TestNativeStringLimits(t *testing.T) {
	_, err := NewNativeString(string(bytes.Repeat([]byte{'a'}, MaxStringLength)))
	assert.Error(t, err)

	_, err = NewNativeString(string(bytes.Repeat([]byte{'a'}, MaxStringLength-1)))
	assert.NoError(t, err)

	ns := NativeString{Length: MaxStringLength}
	_, err = ns.String()
	assert.Error(t, err)
}

func TestNativeStringEncoding(t *testing.T) {
	require.NoError(t, config.SetEncoding("Windows 1252"))
	defer config.SetEncoding(config.DefaultEncoding)

	ns, err := NewNativeString("café")
	require.NoError(t, err)
	assert.Equal(t, uint32(4), ns.Length)
	assert.Equal(t, byte(0xe9), ns.Data[3])

	s, err := ns.String()
	require.NoError(t, err)
	assert.Equal(t, "café", s)
}

func TestImage(t *testing.T) {
	img := NewImage(0)
	assert.Equal(t, uint64(DefaultImageBase), img.Base)

	a, err := Store(img, 1, uint8(1))
	require.NoError(t, err)
	b, err := Store(img, 8, float64(2), float64(3))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), b%8)
	assert.True(t, b > a)

	values, err := Load[float64](img, b, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, values)

	null, err := Store[float64](img, 8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), null)

	empty, err := Load[float64](img, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = Load[float64](img, 0, 1)
	assert.True(t, errors.Is(err, ErrNullPointer))

	_, err = Load[float64](img, b, 3)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	_, err = img.Resolve(img.Base-1, 1)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	img.Root = b
	var out bytes.Buffer
	_, err = img.WriteTo(&out)
	require.NoError(t, err)

	back, err := ReadImage(&out)
	require.NoError(t, err)
	assert.Equal(t, img, back)
}

func TestImageHeaderLayout(t *testing.T) {
	img := NewImage(0x20000)
	img.Root = 0x20008
	img.Data = []byte{1, 2, 3}

	var out bytes.Buffer
	n, err := img.WriteTo(&out)
	require.NoError(t, err)
	assert.Equal(t, int64(imageHeaderSize+3), n)

	hb := out.Bytes()
	assert.Equal(t, []byte("NIMG"), hb[:4])
	assert.Equal(t, uint32(imageVersion), MustRead[uint32](hb, 4))
	assert.Equal(t, uint64(0x20000), MustRead[uint64](hb, 8))
	assert.Equal(t, uint64(0x20008), MustRead[uint64](hb, 16))
	assert.Equal(t, uint64(3), MustRead[uint64](hb, 24))

	// declared size larger than the stream
	binaryHeader := append([]byte{}, hb[:imageHeaderSize]...)
	require.NoError(t, Write(binaryHeader, 24, uint64(64)))
	_, err = ReadImage(bytes.NewReader(append(binaryHeader, 1, 2, 3)))
	assert.Error(t, err)
}

func TestLoadHugeCount(t *testing.T) {
	img := NewImage(0)
	addr, err := Store(img, 8, uint64(1))
	require.NoError(t, err)

	_, err = Load[uint64](img, addr, 1<<32-1)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestReadImageRejectsGarbage(t *testing.T) {
	_, err := ReadImage(bytes.NewReader([]byte("not an image at all, just text")))
	assert.Error(t, err)

	_, err = ReadImage(bytes.NewReader(nil))
	assert.Error(t, err)
}
