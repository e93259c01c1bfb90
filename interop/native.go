package interop

import (
	"unsafe"
)

// NativeBytes views size bytes of foreign memory starting at ptr.
// The caller keeps the memory alive and unmodified while the slice is used.
func NativeBytes(ptr unsafe.Pointer, size int) []byte {
	if ptr == nil || size <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(ptr), size)
}

func Offset(ptr unsafe.Pointer, n int) unsafe.Pointer {
	return unsafe.Add(ptr, n)
}

// RawBytes views the in-memory representation of *v in host byte order
// and host layout, padding included.
func RawBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

// ReadNative reads a T from foreign memory at ptr+offset.
func ReadNative[T any](ptr unsafe.Pointer, offset int) (T, error) {
	size, err := fixedSize[T]()
	if err != nil {
		var v T
		return v, err
	}
	return Read[T](NativeBytes(Offset(ptr, offset), size), 0)
}

// WriteNative writes value to foreign memory at ptr+offset.
func WriteNative[T any](ptr unsafe.Pointer, offset int, value T) error {
	size, err := fixedSize[T]()
	if err != nil {
		return err
	}
	return Write(NativeBytes(Offset(ptr, offset), size), 0, value)
}
