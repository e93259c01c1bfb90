package interop

import (
	"bytes"

	"github.com/pkg/errors"
	"golang.org/x/text/transform"

	"github.com/mogaika/scene_interop/config"
)

// MaxStringLength is the payload capacity of a native fixed string,
// including its NUL terminator.
const MaxStringLength = 1024

// NativeString is the native fixed string layout: byte length followed by
// a NUL terminated payload.
type NativeString struct {
	Length uint32
	Data   [MaxStringLength]byte
}

var NativeStringSize = SizeOf[NativeString]()

func (ns *NativeString) String() (string, error) {
	if ns.Length >= MaxStringLength {
		return "", errors.Errorf("native string length %d exceeds %d", ns.Length, MaxStringLength-1)
	}
	return BytesToString(ns.Data[:ns.Length])
}

func NewNativeString(s string) (NativeString, error) {
	var ns NativeString
	bs, err := StringToBytes(s)
	if err != nil {
		return ns, err
	}
	if len(bs) >= MaxStringLength {
		return ns, errors.Errorf("string of %d bytes does not fit native string", len(bs))
	}
	ns.Length = uint32(len(bs))
	copy(ns.Data[:], bs)
	return ns, nil
}

func ReadNativeString(buf []byte, offset int) (string, error) {
	ns, err := Read[NativeString](buf, offset)
	if err != nil {
		return "", err
	}
	return ns.String()
}

func WriteNativeString(buf []byte, offset int, s string) error {
	ns, err := NewNativeString(s)
	if err != nil {
		return err
	}
	return Write(buf, offset, ns)
}

// BytesToString decodes up to the first NUL with the configured encoding.
func BytesToString(bs []byte) (string, error) {
	if n := bytes.IndexByte(bs, 0); n >= 0 {
		bs = bs[:n]
	}
	s, _, err := transform.Bytes(config.GetEncoding().NewDecoder(), bs)
	if err != nil {
		return "", errors.Wrapf(err, "Failed to decode string")
	}
	return string(s), nil
}

func StringToBytes(s string) ([]byte, error) {
	bs, _, err := transform.Bytes(config.GetEncoding().NewEncoder(), []byte(s))
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to encode %q", s)
	}
	return bs, nil
}
