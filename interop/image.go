package interop

import (
	"io"

	"github.com/pkg/errors"
)

// Resolver maps native addresses to the bytes behind them.
type Resolver interface {
	Resolve(addr uint64, size int) ([]byte, error)
}

var ErrNullPointer = errors.New("null pointer")

const DefaultImageBase = 0x10000

// Image is a snapshot of a native memory region: Data holds the bytes that
// lived at Base. Pointers stored inside Data are native addresses.
type Image struct {
	Base uint64
	Root uint64
	Data []byte
}

// header: magic, u32 version, u64 base, u64 root, u64 data size
const imageHeaderSize = 32

var imageMagic = [4]byte{'N', 'I', 'M', 'G'}

const imageVersion = 1

// images larger than this are refused when reading from a stream
const maxImageSize = 1 << 30

func NewImage(base uint64) *Image {
	if base == 0 {
		base = DefaultImageBase
	}
	return &Image{Base: base}
}

func (img *Image) Resolve(addr uint64, size int) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	if addr == 0 {
		return nil, errors.Wrapf(ErrNullPointer, "dereference of %d bytes", size)
	}
	if addr < img.Base || addr-img.Base > uint64(len(img.Data)) {
		return nil, errors.Wrapf(ErrOutOfRange, "address 0x%x outside image [0x%x, 0x%x)",
			addr, img.Base, img.Base+uint64(len(img.Data)))
	}
	offset := int(addr - img.Base)
	if err := checkRange(len(img.Data), offset, size); err != nil {
		return nil, errors.Wrapf(err, "address 0x%x", addr)
	}
	return img.Data[offset : offset+size], nil
}

// Alloc reserves zeroed space and returns its native address.
// Slices obtained from Resolve before Alloc must not be written afterwards.
func (img *Image) Alloc(size int, align int) uint64 {
	if align <= 0 {
		align = 1
	}
	start := len(img.Data)
	if rem := (img.Base + uint64(start)) % uint64(align); rem != 0 {
		start += align - int(rem)
	}
	img.Data = append(img.Data, make([]byte, start+size-len(img.Data))...)
	return img.Base + uint64(start)
}

// Store allocates room for values, writes them and returns the address.
// An empty slice stores nothing and yields a null pointer.
func Store[T any](img *Image, align int, values ...T) (uint64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	data, err := AsBytes(values...)
	if err != nil {
		return 0, err
	}
	addr := img.Alloc(len(data), align)
	copy(img.Data[addr-img.Base:], data)
	return addr, nil
}

// Load reads count values from a resolver. A null pointer with zero count
// yields an empty slice.
func Load[T any](r Resolver, addr uint64, count int) ([]T, error) {
	size, err := fixedSize[T]()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return []T{}, nil
	}
	span, err := arraySpan(count, size, size)
	if err != nil {
		return nil, err
	}
	buf, err := r.Resolve(addr, span)
	if err != nil {
		return nil, err
	}
	return ReadArray[T](buf, 0, count)
}

func (img *Image) WriteTo(w io.Writer) (int64, error) {
	hb := make([]byte, imageHeaderSize)
	c := NewCursor("image header", hb)
	Put(c, imageMagic)
	Put(c, uint32(imageVersion))
	Put(c, img.Base)
	Put(c, img.Root)
	Put(c, uint64(len(img.Data)))
	if err := c.Err(); err != nil {
		return 0, err
	}

	n, err := w.Write(hb)
	if err != nil {
		return int64(n), errors.Wrapf(err, "Failed to write image header")
	}
	m, err := w.Write(img.Data)
	return int64(n + m), errors.Wrapf(err, "Failed to write image data")
}

func ReadImage(r io.Reader) (*Image, error) {
	hb := make([]byte, imageHeaderSize)
	if _, err := io.ReadFull(r, hb); err != nil {
		return nil, errors.Wrapf(err, "Failed to read image header")
	}
	c := NewCursor("image header", hb)
	magic := Next[[4]byte](c)
	version := c.ReadU32()
	base := c.ReadU64()
	root := c.ReadU64()
	size := c.ReadU64()
	if err := c.Err(); err != nil {
		return nil, err
	}

	if magic != imageMagic {
		return nil, errors.Errorf("Invalid image magic %q", magic[:])
	}
	if version != imageVersion {
		return nil, errors.Errorf("Unsupported image version %d", version)
	}
	if base == 0 {
		return nil, errors.Errorf("Image base can not be null")
	}
	if size > maxImageSize {
		return nil, errors.Errorf("Image size 0x%x is too big", size)
	}

	img := &Image{Base: base, Root: root, Data: make([]byte, size)}
	if _, err := io.ReadFull(r, img.Data); err != nil {
		return nil, errors.Wrapf(err, "Failed to read image data")
	}
	return img, nil
}
