package scene

import (
	"github.com/pkg/errors"

	"github.com/mogaika/scene_interop/interop"
	"github.com/mogaika/scene_interop/math3d"
)

// Native layouts of animation data. Sizes and offsets are fixed, pointers
// are 64 bit addresses resolved through interop.Resolver.

type nativeQuaternionKey struct {
	Time          float64
	Value         math3d.Quaternion
	Interpolation Interpolation
	_             [4]byte
}

type nativeNodeAnim struct {
	NodeName        interop.NativeString
	NumPositionKeys uint32
	PositionKeys    uint64
	NumRotationKeys uint32
	_               [4]byte
	RotationKeys    uint64
	NumScalingKeys  uint32
	_               [4]byte
	ScalingKeys     uint64
	PreState        AnimationBehaviour
	PostState       AnimationBehaviour
}

type nativeAnimation struct {
	Name           interop.NativeString
	_              [4]byte
	Duration       float64
	TicksPerSecond float64
	NumChannels    uint32
	_              [4]byte
	Channels       uint64
	// mesh and morph channels are always empty
	NumMeshChannels      uint32
	_                    [4]byte
	MeshChannels         uint64
	NumMorphMeshChannels uint32
	_                    [4]byte
	MorphMeshChannels    uint64
}

// nativeAnimationTable is the image root
type nativeAnimationTable struct {
	NumAnimations uint32
	_             [4]byte
	Animations    uint64
}

const (
	VectorKeySize     = 24
	QuaternionKeySize = 32
	NodeAnimSize      = 1080
	AnimationSize     = 1096
)

const pointerAlign = 8

func (k QuaternionKey) native() nativeQuaternionKey {
	return nativeQuaternionKey{Time: k.Time, Value: k.Value, Interpolation: k.Interpolation}
}

func (k nativeQuaternionKey) key() QuaternionKey {
	return QuaternionKey{Time: k.Time, Value: k.Value, Interpolation: k.Interpolation}
}

func MarshalVectorKeys(keys []VectorKey) ([]byte, error) {
	return interop.AsBytes(keys...)
}

func UnmarshalVectorKeys(buf []byte, count int) ([]VectorKey, error) {
	return interop.ReadArray[VectorKey](buf, 0, count)
}

func MarshalQuaternionKeys(keys []QuaternionKey) ([]byte, error) {
	native := make([]nativeQuaternionKey, len(keys))
	for i, k := range keys {
		native[i] = k.native()
	}
	return interop.AsBytes(native...)
}

func UnmarshalQuaternionKeys(buf []byte, count int) ([]QuaternionKey, error) {
	native, err := interop.ReadArray[nativeQuaternionKey](buf, 0, count)
	if err != nil {
		return nil, err
	}
	keys := make([]QuaternionKey, len(native))
	for i, k := range native {
		keys[i] = k.key()
	}
	return keys, nil
}

// MarshalAnimations lays animations out in a fresh image whose root points
// to the animation table.
func MarshalAnimations(anims []*Animation, base uint64) (*interop.Image, error) {
	img := interop.NewImage(base)

	ptrs := make([]uint64, len(anims))
	for i, anim := range anims {
		addr, err := storeAnimation(img, anim)
		if err != nil {
			return nil, errors.Wrapf(err, "animation %d %q", i, anim.Name)
		}
		ptrs[i] = addr
	}

	list, err := interop.Store(img, pointerAlign, ptrs...)
	if err != nil {
		return nil, err
	}
	root, err := interop.Store(img, pointerAlign, nativeAnimationTable{
		NumAnimations: uint32(len(anims)),
		Animations:    list,
	})
	if err != nil {
		return nil, err
	}
	img.Root = root
	return img, nil
}

func storeAnimation(img *interop.Image, anim *Animation) (uint64, error) {
	name, err := interop.NewNativeString(anim.Name)
	if err != nil {
		return 0, err
	}

	ptrs := make([]uint64, len(anim.Channels))
	for i, ch := range anim.Channels {
		addr, err := storeNodeAnim(img, ch)
		if err != nil {
			return 0, errors.Wrapf(err, "channel %d %q", i, ch.NodeName)
		}
		ptrs[i] = addr
	}
	channels, err := interop.Store(img, pointerAlign, ptrs...)
	if err != nil {
		return 0, err
	}

	return interop.Store(img, pointerAlign, nativeAnimation{
		Name:           name,
		Duration:       anim.Duration,
		TicksPerSecond: anim.TicksPerSecond,
		NumChannels:    uint32(len(anim.Channels)),
		Channels:       channels,
	})
}

func storeNodeAnim(img *interop.Image, ch *NodeAnimationChannel) (uint64, error) {
	name, err := interop.NewNativeString(ch.NodeName)
	if err != nil {
		return 0, err
	}

	positions, err := interop.Store(img, pointerAlign, ch.PositionKeys...)
	if err != nil {
		return 0, err
	}
	rotKeys := make([]nativeQuaternionKey, len(ch.RotationKeys))
	for i, k := range ch.RotationKeys {
		rotKeys[i] = k.native()
	}
	rotations, err := interop.Store(img, pointerAlign, rotKeys...)
	if err != nil {
		return 0, err
	}
	scalings, err := interop.Store(img, pointerAlign, ch.ScalingKeys...)
	if err != nil {
		return 0, err
	}

	return interop.Store(img, pointerAlign, nativeNodeAnim{
		NodeName:        name,
		NumPositionKeys: uint32(len(ch.PositionKeys)),
		PositionKeys:    positions,
		NumRotationKeys: uint32(len(ch.RotationKeys)),
		RotationKeys:    rotations,
		NumScalingKeys:  uint32(len(ch.ScalingKeys)),
		ScalingKeys:     scalings,
		PreState:        ch.PreState,
		PostState:       ch.PostState,
	})
}

// UnmarshalAnimations follows the animation table at root.
func UnmarshalAnimations(r interop.Resolver, root uint64) ([]*Animation, error) {
	tables, err := interop.Load[nativeAnimationTable](r, root, 1)
	if err != nil {
		return nil, errors.Wrapf(err, "animation table at 0x%x", root)
	}
	table := tables[0]

	ptrs, err := interop.Load[uint64](r, table.Animations, int(table.NumAnimations))
	if err != nil {
		return nil, errors.Wrapf(err, "animation list at 0x%x", table.Animations)
	}

	anims := make([]*Animation, len(ptrs))
	for i, ptr := range ptrs {
		if anims[i], err = LoadAnimation(r, ptr); err != nil {
			return nil, errors.Wrapf(err, "animation %d", i)
		}
	}
	return anims, nil
}

// LoadAnimation reads one native animation at addr.
func LoadAnimation(r interop.Resolver, addr uint64) (*Animation, error) {
	natives, err := interop.Load[nativeAnimation](r, addr, 1)
	if err != nil {
		return nil, errors.Wrapf(err, "animation at 0x%x", addr)
	}
	na := natives[0]

	name, err := na.Name.String()
	if err != nil {
		return nil, err
	}
	// the pointer list is resolved before anything is sized by NumChannels
	ptrs, err := interop.Load[uint64](r, na.Channels, int(na.NumChannels))
	if err != nil {
		return nil, errors.Wrapf(err, "animation %q channel list", name)
	}
	anim := &Animation{
		Name:           name,
		Duration:       na.Duration,
		TicksPerSecond: na.TicksPerSecond,
		Channels:       make([]*NodeAnimationChannel, len(ptrs)),
	}
	for i, ptr := range ptrs {
		if anim.Channels[i], err = loadNodeAnim(r, ptr); err != nil {
			return nil, errors.Wrapf(err, "animation %q channel %d", name, i)
		}
	}
	return anim, nil
}

func loadNodeAnim(r interop.Resolver, addr uint64) (*NodeAnimationChannel, error) {
	natives, err := interop.Load[nativeNodeAnim](r, addr, 1)
	if err != nil {
		return nil, err
	}
	nna := natives[0]

	name, err := nna.NodeName.String()
	if err != nil {
		return nil, err
	}
	ch := &NodeAnimationChannel{
		NodeName:  name,
		PreState:  nna.PreState,
		PostState: nna.PostState,
	}

	if ch.PositionKeys, err = interop.Load[VectorKey](r, nna.PositionKeys, int(nna.NumPositionKeys)); err != nil {
		return nil, errors.Wrapf(err, "node %q position keys", name)
	}
	rotKeys, err := interop.Load[nativeQuaternionKey](r, nna.RotationKeys, int(nna.NumRotationKeys))
	if err != nil {
		return nil, errors.Wrapf(err, "node %q rotation keys", name)
	}
	for _, k := range rotKeys {
		ch.RotationKeys = append(ch.RotationKeys, k.key())
	}
	if ch.ScalingKeys, err = interop.Load[VectorKey](r, nna.ScalingKeys, int(nna.NumScalingKeys)); err != nil {
		return nil, errors.Wrapf(err, "node %q scaling keys", name)
	}

	ch.PositionKeys = nilIfEmpty(ch.PositionKeys)
	ch.ScalingKeys = nilIfEmpty(ch.ScalingKeys)
	return ch, nil
}

func nilIfEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}

// MarshalMatrix4x4 writes m in native row order.
func MarshalMatrix4x4(m math3d.Matrix4x4) ([]byte, error) {
	return interop.AsBytes(m)
}

func UnmarshalMatrix4x4(buf []byte, offset int) (math3d.Matrix4x4, error) {
	return interop.Read[math3d.Matrix4x4](buf, offset)
}
