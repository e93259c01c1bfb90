// Package interop reads and writes typed values at arbitrary byte offsets of
// buffers laid out by native code. Values are always little-endian and no
// alignment is assumed.
package interop

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

var ErrOutOfRange = errors.New("access out of range")
var ErrNotFixedSize = errors.New("type has no fixed size")

// SizeOf returns the encoded size of T, or -1 if T has no fixed size.
func SizeOf[T any]() int {
	var v T
	return binary.Size(v)
}

func checkRange(bufLen, offset, size int) error {
	if offset < 0 || size < 0 || offset > bufLen || size > bufLen-offset {
		return errors.Wrapf(ErrOutOfRange, "offset 0x%x size 0x%x buffer 0x%x", offset, size, bufLen)
	}
	return nil
}

// arraySpan is the byte length of count elements spaced stride bytes apart.
func arraySpan(count, stride, size int) (int, error) {
	if count == 0 {
		return 0, nil
	}
	if stride > 0 && count-1 > (math.MaxInt-size)/stride {
		return 0, errors.Wrapf(ErrOutOfRange, "%d elements of stride 0x%x", count, stride)
	}
	return stride*(count-1) + size, nil
}

func fixedSize[T any]() (int, error) {
	size := SizeOf[T]()
	if size < 0 {
		var v T
		return 0, errors.Wrapf(ErrNotFixedSize, "%T", v)
	}
	return size, nil
}

func Read[T any](buf []byte, offset int) (T, error) {
	var v T
	size, err := fixedSize[T]()
	if err != nil {
		return v, err
	}
	if err := checkRange(len(buf), offset, size); err != nil {
		return v, err
	}
	decode(buf[offset:offset+size], &v)
	return v, nil
}

func MustRead[T any](buf []byte, offset int) T {
	v, err := Read[T](buf, offset)
	if err != nil {
		panic(err)
	}
	return v
}

func Write[T any](buf []byte, offset int, value T) error {
	size, err := fixedSize[T]()
	if err != nil {
		return err
	}
	if err := checkRange(len(buf), offset, size); err != nil {
		return err
	}
	encode(buf[offset:offset+size], &value)
	return nil
}

func ReadArray[T any](buf []byte, offset int, count int) ([]T, error) {
	return ReadStridedArray[T](buf, offset, 0, count)
}

// ReadStridedArray reads count elements spaced stride bytes apart.
// Zero stride means tightly packed.
func ReadStridedArray[T any](buf []byte, offset int, stride int, count int) ([]T, error) {
	size, err := fixedSize[T]()
	if err != nil {
		return nil, err
	}
	if stride == 0 {
		stride = size
	}
	if count < 0 || stride < size {
		return nil, errors.Errorf("invalid array layout: count %d stride %d element size %d", count, stride, size)
	}
	if count == 0 {
		return []T{}, nil
	}
	span, err := arraySpan(count, stride, size)
	if err != nil {
		return nil, err
	}
	if err := checkRange(len(buf), offset, span); err != nil {
		return nil, err
	}

	result := make([]T, count)
	for i := range result {
		start := offset + i*stride
		decode(buf[start:start+size], &result[i])
	}
	return result, nil
}

func WriteArray[T any](buf []byte, offset int, values []T) error {
	size, err := fixedSize[T]()
	if err != nil {
		return err
	}
	span, err := arraySpan(len(values), size, size)
	if err != nil {
		return err
	}
	if err := checkRange(len(buf), offset, span); err != nil {
		return err
	}
	for i := range values {
		start := offset + i*size
		encode(buf[start:start+size], &values[i])
	}
	return nil
}

// AsBytes encodes values into a new tightly packed buffer.
func AsBytes[T any](values ...T) ([]byte, error) {
	size, err := fixedSize[T]()
	if err != nil {
		return nil, err
	}
	span, err := arraySpan(len(values), size, size)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, span)
	return buf, WriteArray(buf, 0, values)
}

// Copy moves count bytes. Overlapping regions are handled like memmove.
func Copy(dst []byte, dstOffset int, src []byte, srcOffset int, count int) error {
	if err := checkRange(len(src), srcOffset, count); err != nil {
		return errors.Wrap(err, "source")
	}
	if err := checkRange(len(dst), dstOffset, count); err != nil {
		return errors.Wrap(err, "destination")
	}
	copy(dst[dstOffset:dstOffset+count], src[srcOffset:srcOffset+count])
	return nil
}

func Fill(buf []byte, offset int, count int, value byte) error {
	if err := checkRange(len(buf), offset, count); err != nil {
		return err
	}
	region := buf[offset : offset+count]
	for i := range region {
		region[i] = value
	}
	return nil
}

func Clear(buf []byte, offset int, count int) error {
	return Fill(buf, offset, count, 0)
}

// decode and encode expect b to be exactly the encoded size of *v
func decode[T any](b []byte, v *T) {
	switch p := any(v).(type) {
	case *uint8:
		*p = b[0]
	case *int8:
		*p = int8(b[0])
	case *uint16:
		*p = binary.LittleEndian.Uint16(b)
	case *int16:
		*p = int16(binary.LittleEndian.Uint16(b))
	case *uint32:
		*p = binary.LittleEndian.Uint32(b)
	case *int32:
		*p = int32(binary.LittleEndian.Uint32(b))
	case *uint64:
		*p = binary.LittleEndian.Uint64(b)
	case *int64:
		*p = int64(binary.LittleEndian.Uint64(b))
	case *float32:
		*p = math.Float32frombits(binary.LittleEndian.Uint32(b))
	case *float64:
		*p = math.Float64frombits(binary.LittleEndian.Uint64(b))
	default:
		if _, err := binary.Decode(b, binary.LittleEndian, v); err != nil {
			panic(err)
		}
	}
}

func encode[T any](b []byte, v *T) {
	switch p := any(v).(type) {
	case *uint8:
		b[0] = *p
	case *int8:
		b[0] = byte(*p)
	case *uint16:
		binary.LittleEndian.PutUint16(b, *p)
	case *int16:
		binary.LittleEndian.PutUint16(b, uint16(*p))
	case *uint32:
		binary.LittleEndian.PutUint32(b, *p)
	case *int32:
		binary.LittleEndian.PutUint32(b, uint32(*p))
	case *uint64:
		binary.LittleEndian.PutUint64(b, *p)
	case *int64:
		binary.LittleEndian.PutUint64(b, uint64(*p))
	case *float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(*p))
	case *float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(*p))
	default:
		if _, err := binary.Encode(b, binary.LittleEndian, v); err != nil {
			panic(err)
		}
	}
}
