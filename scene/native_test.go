package scene

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/scene_interop/interop"
	"github.com/mogaika/scene_interop/math3d"
)

func TestNativeSizes(t *testing.T) {
	assert.Equal(t, VectorKeySize, interop.SizeOf[VectorKey]())
	assert.Equal(t, QuaternionKeySize, interop.SizeOf[nativeQuaternionKey]())
	assert.Equal(t, NodeAnimSize, interop.SizeOf[nativeNodeAnim]())
	assert.Equal(t, AnimationSize, interop.SizeOf[nativeAnimation]())
	assert.Equal(t, 64, interop.SizeOf[math3d.Matrix4x4]())
}

func TestQuaternionKeyLayout(t *testing.T) {
	keys := []QuaternionKey{{Time: 1.5, Value: math3d.NewQuaternion(1, 2, 3, 4), Interpolation: InterpolationLinear}}
	buf, err := MarshalQuaternionKeys(keys)
	require.NoError(t, err)
	require.Len(t, buf, QuaternionKeySize)

	assert.Equal(t, 1.5, interop.MustRead[float64](buf, 0))
	// w comes first
	assert.Equal(t, float32(1), interop.MustRead[float32](buf, 8))
	assert.Equal(t, float32(4), interop.MustRead[float32](buf, 20))
	assert.Equal(t, int32(InterpolationLinear), interop.MustRead[int32](buf, 24))

	back, err := UnmarshalQuaternionKeys(buf, 1)
	require.NoError(t, err)
	assert.Equal(t, keys, back)
}

func TestVectorKeyLayout(t *testing.T) {
	keys := []VectorKey{
		{Time: 0, Value: math3d.NewVector3D(1, 2, 3)},
		{Time: 2, Value: math3d.NewVector3D(4, 5, 6), Interpolation: InterpolationStep},
	}
	buf, err := MarshalVectorKeys(keys)
	require.NoError(t, err)
	require.Len(t, buf, 2*VectorKeySize)
	assert.Equal(t, float32(5), interop.MustRead[float32](buf, VectorKeySize+12))

	back, err := UnmarshalVectorKeys(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, keys, back)
}

func TestMatrixLayout(t *testing.T) {
	m := translation(7, 8, 9)
	buf, err := MarshalMatrix4x4(m)
	require.NoError(t, err)
	// row major, translation in the last column of the first three rows
	assert.Equal(t, float32(7), interop.MustRead[float32](buf, 3*4))
	assert.Equal(t, float32(8), interop.MustRead[float32](buf, 7*4))

	back, err := UnmarshalMatrix4x4(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, m, back)
}

func TestAnimationImageRoundTrip(t *testing.T) {
	anims := testScene().Animations
	anims[0].Channels[0].PostState = BehaviourRepeat

	img, err := MarshalAnimations(anims, 0x400000)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x400000), img.Base)

	back, err := UnmarshalAnimations(img, img.Root)
	require.NoError(t, err)
	assert.Equal(t, anims, back)

	// duration lives at a fixed offset of the native animation
	table := interop.MustRead[nativeAnimationTable](img.Data, int(img.Root-img.Base))
	animPtr := interop.MustRead[uint64](img.Data, int(table.Animations-img.Base))
	duration := interop.MustRead[float64](img.Data, int(animPtr-img.Base)+1032)
	assert.Equal(t, 20.0, duration)
}

func TestAnimationImageErrors(t *testing.T) {
	img, err := MarshalAnimations(testScene().Animations, 0)
	require.NoError(t, err)

	_, err = UnmarshalAnimations(img, 0)
	assert.True(t, errors.Is(err, interop.ErrNullPointer))

	truncated := &interop.Image{Base: img.Base, Root: img.Root, Data: img.Data[:len(img.Data)/2]}
	_, err = UnmarshalAnimations(truncated, truncated.Root)
	assert.True(t, errors.Is(err, interop.ErrOutOfRange))
}

func TestAnimationImageHugeCounts(t *testing.T) {
	img, err := MarshalAnimations(testScene().Animations, 0)
	require.NoError(t, err)
	table := interop.MustRead[nativeAnimationTable](img.Data, int(img.Root-img.Base))
	animPtr := interop.MustRead[uint64](img.Data, int(table.Animations-img.Base))

	// NumChannels follows name, duration and tick rate
	require.NoError(t, interop.Write(img.Data, int(animPtr-img.Base)+1048, uint32(0xffffffff)))
	_, err = LoadAnimation(img, animPtr)
	assert.True(t, errors.Is(err, interop.ErrOutOfRange))

	require.NoError(t, interop.Write(img.Data, int(img.Root-img.Base), uint32(0xffffffff)))
	_, err = UnmarshalAnimations(img, img.Root)
	assert.True(t, errors.Is(err, interop.ErrOutOfRange))
}

func TestImageFormat(t *testing.T) {
	s := testScene()
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, "NIMG", s))

	back, err := Import(bytes.NewReader(buf.Bytes()), "dir/walk.nimg")
	require.NoError(t, err)
	assert.Equal(t, "walk", back.Name)
	assert.Equal(t, s.Animations, back.Animations)
	require.NotNil(t, back.FindNode("arm"))
	assert.Equal(t, ImageRootName, back.RootNode.Name)
	require.NoError(t, back.Validate())

	assert.Contains(t, ImportExtensions(), ".nimg")
	assert.True(t, CanImport("x.NIMG"))
	assert.False(t, CanImport("x.blend"))

	_, err = Import(bytes.NewReader(nil), "x.blend")
	assert.Error(t, err)
	assert.Error(t, Export(&buf, ".blend", s))
}

func TestImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walk.nimg")
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, ".nimg", testScene()))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	back, err := ImportFile(path)
	require.NoError(t, err)
	assert.Equal(t, "walk", back.Name)
	assert.Len(t, back.Animations, 1)

	_, err = ImportFile(filepath.Join(t.TempDir(), "missing.nimg"))
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}
