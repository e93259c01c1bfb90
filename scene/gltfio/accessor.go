package gltfio

import (
	"math"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/scene_interop/interop"
)

func componentSize(ct gltf.ComponentType) int {
	switch ct {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		return 1
	case gltf.ComponentShort, gltf.ComponentUshort:
		return 2
	default:
		return 4
	}
}

func componentCount(at gltf.AccessorType) int {
	switch at {
	case gltf.AccessorScalar:
		return 1
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4, gltf.AccessorMat2:
		return 4
	case gltf.AccessorMat3:
		return 9
	case gltf.AccessorMat4:
		return 16
	default:
		return 0
	}
}

// MaxUnbackedCount limits accessors without a buffer view, which read as zeros.
var MaxUnbackedCount = 1 << 20

// accessorView resolves the bytes an accessor reads from. A nil view means
// the accessor has no buffer view and reads as zeros.
type accessorView struct {
	acc        *gltf.Accessor
	view       []byte
	offset     int
	stride     int
	components int
	compSize   int
}

func resolveAccessor(doc *gltf.Document, index uint32) (*accessorView, error) {
	if int(index) >= len(doc.Accessors) {
		return nil, errors.Errorf("accessor %d out of %d", index, len(doc.Accessors))
	}
	acc := doc.Accessors[index]
	if acc.Sparse != nil {
		return nil, errors.Errorf("accessor %d: sparse accessors are not supported", index)
	}

	av := &accessorView{
		acc:        acc,
		components: componentCount(acc.Type),
		compSize:   componentSize(acc.ComponentType),
		offset:     int(acc.ByteOffset),
	}
	if av.components == 0 {
		return nil, errors.Errorf("accessor %d: unknown type %v", index, acc.Type)
	}
	av.stride = av.components * av.compSize

	if acc.BufferView == nil {
		if int(acc.Count) > MaxUnbackedCount {
			return nil, errors.Wrapf(interop.ErrOutOfRange, "accessor %d: %d elements without a buffer view", index, acc.Count)
		}
		return av, nil
	}
	if int(*acc.BufferView) >= len(doc.BufferViews) {
		return nil, errors.Errorf("accessor %d: buffer view %d out of %d", index, *acc.BufferView, len(doc.BufferViews))
	}
	bv := doc.BufferViews[*acc.BufferView]
	if int(bv.Buffer) >= len(doc.Buffers) {
		return nil, errors.Errorf("buffer view %d: buffer %d out of %d", *acc.BufferView, bv.Buffer, len(doc.Buffers))
	}
	data := doc.Buffers[bv.Buffer].Data
	end := int(bv.ByteOffset) + int(bv.ByteLength)
	if end > len(data) {
		return nil, errors.Wrapf(interop.ErrOutOfRange, "buffer view %d [0x%x:0x%x] of buffer with 0x%x bytes",
			*acc.BufferView, bv.ByteOffset, end, len(data))
	}
	av.view = data[bv.ByteOffset:end]
	if bv.ByteStride != 0 {
		av.stride = int(bv.ByteStride)
	}
	if err := av.checkBacked(); err != nil {
		return nil, errors.Wrapf(err, "accessor %d", index)
	}
	return av, nil
}

// checkBacked verifies the view holds every element before anything is sized by Count.
func (av *accessorView) checkBacked() error {
	count := int(av.acc.Count)
	if count == 0 {
		return nil
	}
	element := av.components * av.compSize
	if av.stride < element {
		return errors.Errorf("stride %d is smaller than element size %d", av.stride, element)
	}
	room := len(av.view) - av.offset - element
	if room < 0 || count-1 > room/av.stride {
		return errors.Wrapf(interop.ErrOutOfRange, "%d elements of stride %d at 0x%x in view of 0x%x bytes",
			count, av.stride, av.offset, len(av.view))
	}
	return nil
}

// readComponent divides values by divisor when it is not zero.
func readComponent[T int8 | uint8 | int16 | uint16 | uint32 | float32](av *accessorView, component int, divisor float32, signed bool) ([]float32, error) {
	raw, err := interop.ReadStridedArray[T](av.view, av.offset+component*av.compSize, av.stride, int(av.acc.Count))
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(raw))
	for i, v := range raw {
		f := float32(v)
		if divisor != 0 {
			f /= divisor
		}
		if signed && f < -1 {
			f = -1
		}
		out[i] = f
	}
	return out, nil
}

// readFloats returns Count*components values, element major.
// Normalized integer components are mapped to [0,1] or [-1,1].
func readFloats(doc *gltf.Document, index uint32) ([]float32, int, error) {
	av, err := resolveAccessor(doc, index)
	if err != nil {
		return nil, 0, err
	}
	count := int(av.acc.Count)
	out := make([]float32, count*av.components)
	if av.view == nil {
		return out, av.components, nil
	}

	norm := av.acc.Normalized
	scale := func(max float32) float32 {
		if norm {
			return max
		}
		return 0
	}

	for c := 0; c < av.components; c++ {
		var values []float32
		switch av.acc.ComponentType {
		case gltf.ComponentFloat:
			values, err = readComponent[float32](av, c, 0, false)
		case gltf.ComponentByte:
			values, err = readComponent[int8](av, c, scale(math.MaxInt8), norm)
		case gltf.ComponentUbyte:
			values, err = readComponent[uint8](av, c, scale(math.MaxUint8), false)
		case gltf.ComponentShort:
			values, err = readComponent[int16](av, c, scale(math.MaxInt16), norm)
		case gltf.ComponentUshort:
			values, err = readComponent[uint16](av, c, scale(math.MaxUint16), false)
		case gltf.ComponentUint:
			values, err = readComponent[uint32](av, c, 0, false)
		default:
			err = errors.Errorf("unknown component type %v", av.acc.ComponentType)
		}
		if err != nil {
			return nil, 0, errors.Wrapf(err, "accessor %d component %d", index, c)
		}
		for i, v := range values {
			out[i*av.components+c] = v
		}
	}
	return out, av.components, nil
}

func readIndices(doc *gltf.Document, index uint32) ([]uint32, error) {
	av, err := resolveAccessor(doc, index)
	if err != nil {
		return nil, err
	}
	if av.components != 1 {
		return nil, errors.Errorf("index accessor %d is not scalar", index)
	}
	count := int(av.acc.Count)
	if av.view == nil {
		return make([]uint32, count), nil
	}

	out := make([]uint32, count)
	switch av.acc.ComponentType {
	case gltf.ComponentUbyte:
		raw, err := interop.ReadStridedArray[uint8](av.view, av.offset, av.stride, count)
		if err != nil {
			return nil, err
		}
		for i, v := range raw {
			out[i] = uint32(v)
		}
	case gltf.ComponentUshort:
		raw, err := interop.ReadStridedArray[uint16](av.view, av.offset, av.stride, count)
		if err != nil {
			return nil, err
		}
		for i, v := range raw {
			out[i] = uint32(v)
		}
	case gltf.ComponentUint:
		return interop.ReadStridedArray[uint32](av.view, av.offset, av.stride, count)
	default:
		return nil, errors.Errorf("index accessor %d has component type %v", index, av.acc.ComponentType)
	}
	return out, nil
}

// appendAccessor stores float data in the last buffer of doc and returns
// the new accessor index.
func appendAccessor[T any](doc *gltf.Document, values []T, at gltf.AccessorType) (uint32, error) {
	size := interop.SizeOf[T]()
	data := make([]byte, size*len(values))
	if err := interop.WriteArray(data, 0, values); err != nil {
		return 0, err
	}

	if len(doc.Buffers) == 0 {
		doc.Buffers = append(doc.Buffers, &gltf.Buffer{})
	}
	bufferIndex := len(doc.Buffers) - 1
	buffer := doc.Buffers[bufferIndex]
	for len(buffer.Data)%4 != 0 {
		buffer.Data = append(buffer.Data, 0)
	}
	offset := len(buffer.Data)
	buffer.Data = append(buffer.Data, data...)
	buffer.ByteLength = uint32(len(buffer.Data))

	doc.BufferViews = append(doc.BufferViews, &gltf.BufferView{
		Buffer:     uint32(bufferIndex),
		ByteOffset: uint32(offset),
		ByteLength: uint32(len(data)),
	})
	doc.Accessors = append(doc.Accessors, &gltf.Accessor{
		BufferView:    gltf.Index(uint32(len(doc.BufferViews) - 1)),
		ComponentType: gltf.ComponentFloat,
		Count:         uint32(len(values)),
		Type:          at,
	})
	return uint32(len(doc.Accessors) - 1), nil
}
