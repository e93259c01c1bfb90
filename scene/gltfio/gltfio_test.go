package gltfio

import (
	"bytes"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/scene_interop/interop"
	"github.com/mogaika/scene_interop/math3d"
	"github.com/mogaika/scene_interop/scene"
)

const eps = 1e-5

func testScene() *scene.Scene {
	root := scene.NewNode("RootNode")
	hips := root.AddChild(scene.NewNode("hips"))
	hips.Transform = math3d.FromTRS(
		math3d.NewVector3D(0, 1, 0),
		math3d.NewQuaternionFromAxisAngle(math3d.NewVector3D(0, 1, 0), math.Pi/2),
		math3d.NewVector3D(1, 1, 1))
	arm := hips.AddChild(scene.NewNode("arm"))
	arm.MeshIndices = []int{0}

	return &scene.Scene{
		RootNode: root,
		Meshes: []*scene.Mesh{{
			Name:     "arm",
			Vertices: []math3d.Vector3D{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
			Normals:  []math3d.Vector3D{{X: 0, Y: 0, Z: 1}, {X: 0, Y: 0, Z: 1}, {X: 0, Y: 0, Z: 1}},
			Indices:  []uint32{0, 1, 2},
		}},
		Animations: []*scene.Animation{{
			Name:           "wave",
			Duration:       10,
			TicksPerSecond: 10,
			Channels: []*scene.NodeAnimationChannel{{
				NodeName: "arm",
				PositionKeys: []scene.VectorKey{
					{Time: 0, Value: math3d.NewVector3D(0, 0, 0), Interpolation: scene.InterpolationLinear},
					{Time: 10, Value: math3d.NewVector3D(5, 0, 0), Interpolation: scene.InterpolationLinear},
				},
				RotationKeys: []scene.QuaternionKey{
					{Time: 0, Value: math3d.Identity(), Interpolation: scene.InterpolationSphericalLinear},
					{Time: 5, Value: math3d.NewQuaternionFromAxisAngle(math3d.NewVector3D(1, 0, 0), 1), Interpolation: scene.InterpolationSphericalLinear},
				},
				ScalingKeys: []scene.VectorKey{
					{Time: 0, Value: math3d.NewVector3D(1, 1, 1), Interpolation: scene.InterpolationStep},
				},
			}},
		}},
	}
}

func checkRoundTrip(t *testing.T, s, back *scene.Scene) {
	require.NoError(t, back.Validate())
	assert.Equal(t, "RootNode", back.RootNode.Name)

	for _, node := range s.Nodes() {
		got := back.FindNode(node.Name)
		require.NotNil(t, got, node.Name)
		assert.True(t, got.Transform.ApproxEqual(node.Transform, eps), "%s: %v", node.Name, got.Transform)
	}

	arm := back.FindNode("arm")
	require.Len(t, arm.MeshIndices, 1)
	mesh := back.Meshes[arm.MeshIndices[0]]
	assert.Equal(t, s.Meshes[0].Vertices, mesh.Vertices)
	assert.Equal(t, s.Meshes[0].Normals, mesh.Normals)
	assert.Equal(t, s.Meshes[0].Indices, mesh.Indices)

	require.Len(t, back.Animations, 1)
	anim := back.Animations[0]
	assert.Equal(t, "wave", anim.Name)
	assert.Equal(t, float64(TicksPerSecond), anim.TicksPerSecond)
	assert.InDelta(t, 1000, anim.Duration, 1e-3)

	ch := anim.Channel("arm")
	require.NotNil(t, ch)
	require.Len(t, ch.PositionKeys, 2)
	assert.InDelta(t, 1000, ch.PositionKeys[1].Time, 1e-3)
	assert.Equal(t, math3d.NewVector3D(5, 0, 0), ch.PositionKeys[1].Value)
	assert.Equal(t, scene.InterpolationLinear, ch.PositionKeys[1].Interpolation)

	require.Len(t, ch.RotationKeys, 2)
	assert.InDelta(t, 500, ch.RotationKeys[1].Time, 1e-3)
	assert.True(t, ch.RotationKeys[1].Value.ApproxEqual(s.Animations[0].Channels[0].RotationKeys[1].Value, eps))
	assert.Equal(t, scene.InterpolationSphericalLinear, ch.RotationKeys[1].Interpolation)

	require.Len(t, ch.ScalingKeys, 1)
	assert.Equal(t, scene.InterpolationStep, ch.ScalingKeys[0].Interpolation)
}

func TestExportImport(t *testing.T) {
	s := testScene()
	doc, err := Export(s, 25)
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 3)
	assert.Equal(t, []uint32{0}, doc.Scenes[0].Nodes)
	require.Len(t, doc.Animations, 1)
	assert.Len(t, doc.Animations[0].Channels, 3)

	back, err := Import(doc)
	require.NoError(t, err)
	checkRoundTrip(t, s, back)
}

func TestBinaryRoundTrip(t *testing.T) {
	s := testScene()
	var buf bytes.Buffer
	require.NoError(t, scene.Export(&buf, ".glb", s))
	assert.Equal(t, "glTF", buf.String()[:4])

	back, err := scene.Import(bytes.NewReader(buf.Bytes()), "wave.glb")
	require.NoError(t, err)
	assert.Equal(t, "wave", back.Name)
	checkRoundTrip(t, s, back)
}

func TestExportShearUsesMatrix(t *testing.T) {
	s := testScene()
	shear := math3d.Identity4x4()
	shear.A2 = 0.5
	s.FindNode("hips").Transform = shear

	doc, err := Export(s, 25)
	require.NoError(t, err)
	assert.Equal(t, shear.ColumnMajor(), doc.Nodes[1].Matrix)

	back, err := Import(doc)
	require.NoError(t, err)
	assert.Equal(t, shear, back.FindNode("hips").Transform)
}

func TestExportMissingNode(t *testing.T) {
	s := testScene()
	s.Animations[0].Channels[0].NodeName = "tail"
	_, err := Export(s, 25)
	assert.Error(t, err)
}

// handBuiltDoc has an interleaved vertex buffer with normalized byte
// normals, byte indices, several roots and a cubic spline channel.
func handBuiltDoc(t *testing.T) *gltf.Document {
	vertices := make([]byte, 3*16)
	positions := [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	normals := [][3]int8{{0, 127, 0}, {0, 0, -128}, {127, 0, 0}}
	for i := range positions {
		require.NoError(t, interop.Write(vertices, i*16, positions[i]))
		require.NoError(t, interop.Write(vertices, i*16+12, normals[i]))
	}

	times, err := interop.AsBytes[float32](0, 2)
	require.NoError(t, err)
	spline, err := interop.AsBytes(
		[3]float32{9, 9, 9}, [3]float32{1, 2, 3}, [3]float32{9, 9, 9},
		[3]float32{9, 9, 9}, [3]float32{4, 5, 6}, [3]float32{9, 9, 9})
	require.NoError(t, err)

	data := append([]byte{}, vertices...)
	data = append(data, 0, 1, 2, 0)
	data = append(data, times...)
	data = append(data, spline...)

	s := float32(math.Sqrt2 / 2)
	return &gltf.Document{
		Buffers: []*gltf.Buffer{{ByteLength: uint32(len(data)), Data: data}},
		BufferViews: []*gltf.BufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: 48, ByteStride: 16},
			{Buffer: 0, ByteOffset: 48, ByteLength: 3},
			{Buffer: 0, ByteOffset: 52, ByteLength: 8},
			{Buffer: 0, ByteOffset: 60, ByteLength: 72},
		},
		Accessors: []*gltf.Accessor{
			{BufferView: gltf.Index(0), ComponentType: gltf.ComponentFloat, Count: 3, Type: gltf.AccessorVec3},
			{BufferView: gltf.Index(0), ByteOffset: 12, ComponentType: gltf.ComponentByte, Normalized: true, Count: 3, Type: gltf.AccessorVec3},
			{BufferView: gltf.Index(1), ComponentType: gltf.ComponentUbyte, Count: 3, Type: gltf.AccessorScalar},
			{BufferView: gltf.Index(2), ComponentType: gltf.ComponentFloat, Count: 2, Type: gltf.AccessorScalar},
			{BufferView: gltf.Index(3), ComponentType: gltf.ComponentFloat, Count: 6, Type: gltf.AccessorVec3},
		},
		Meshes: []*gltf.Mesh{{
			Name: "tri",
			Primitives: []*gltf.Primitive{{
				Attributes: map[string]uint32{"POSITION": 0, "NORMAL": 1},
				Indices:    gltf.Index(2),
			}},
		}},
		Nodes: []*gltf.Node{
			{Name: "body", Mesh: gltf.Index(0), Children: []uint32{1}},
			{Rotation: [4]float32{0, 0, s, s}},
			{Name: "body", Matrix: [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 1, 2, 3, 1}},
		},
		Animations: []*gltf.Animation{{
			Samplers: []*gltf.AnimationSampler{{
				Input:         gltf.Index(3),
				Interpolation: gltf.InterpolationCubicSpline,
				Output:        gltf.Index(4),
			}},
			Channels: []*gltf.Channel{{
				Sampler: gltf.Index(0),
				Target:  gltf.ChannelTarget{Node: gltf.Index(1), Path: gltf.TRSTranslation},
			}},
		}},
	}
}

func TestImportHandBuilt(t *testing.T) {
	s, err := Import(handBuiltDoc(t))
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	// two parentless nodes get a synthetic root
	assert.Equal(t, RootName, s.RootNode.Name)
	require.Len(t, s.RootNode.Children, 2)
	body := s.RootNode.Children[0]
	assert.Equal(t, "body", body.Name)
	assert.Equal(t, "body_1", s.RootNode.Children[1].Name)
	assert.True(t, s.RootNode.Children[1].Transform.Translation().ApproxEqual(math3d.NewVector3D(1, 2, 3), eps))

	require.Len(t, body.Children, 1)
	unnamed := body.Children[0]
	assert.NotEmpty(t, unnamed.Name)
	assert.True(t, unnamed.Transform.TransformPoint(math3d.NewVector3D(1, 0, 0)).ApproxEqual(math3d.NewVector3D(0, 1, 0), eps))

	require.Len(t, s.Meshes, 1)
	mesh := s.Meshes[0]
	assert.Equal(t, []math3d.Vector3D{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}, mesh.Vertices)
	assert.Equal(t, []math3d.Vector3D{{X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: -1}, {X: 1, Y: 0, Z: 0}}, mesh.Normals)
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Indices)

	require.Len(t, s.Animations, 1)
	anim := s.Animations[0]
	assert.Equal(t, "animation0", anim.Name)
	assert.Equal(t, 2000.0, anim.Duration)
	ch := anim.Channel(unnamed.Name)
	require.NotNil(t, ch)
	assert.Equal(t, []scene.VectorKey{
		{Time: 0, Value: math3d.NewVector3D(1, 2, 3), Interpolation: scene.InterpolationLinear},
		{Time: 2000, Value: math3d.NewVector3D(4, 5, 6), Interpolation: scene.InterpolationLinear},
	}, ch.PositionKeys)
}

func TestImportErrors(t *testing.T) {
	doc := handBuiltDoc(t)
	doc.Accessors[0].Sparse = &gltf.Sparse{}
	_, err := Import(doc)
	assert.Error(t, err)

	doc = handBuiltDoc(t)
	doc.BufferViews[0].ByteLength = 4096
	_, err = Import(doc)
	assert.Error(t, err)

	doc = handBuiltDoc(t)
	doc.Nodes[2].Children = []uint32{1}
	_, err = Import(doc)
	assert.Error(t, err)

	doc = handBuiltDoc(t)
	doc.Accessors[4].Count = 2
	_, err = Import(doc)
	assert.Error(t, err)
}

func TestAccessorWithoutBufferView(t *testing.T) {
	doc := &gltf.Document{
		Accessors: []*gltf.Accessor{{ComponentType: gltf.ComponentFloat, Count: 2, Type: gltf.AccessorVec2}},
	}
	values, components, err := readFloats(doc, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, components)
	assert.Equal(t, []float32{0, 0, 0, 0}, values)

	_, _, err = readFloats(doc, 1)
	assert.Error(t, err)
}

func TestAccessorHugeCount(t *testing.T) {
	doc := &gltf.Document{
		Accessors: []*gltf.Accessor{{ComponentType: gltf.ComponentFloat, Count: 4000000000, Type: gltf.AccessorMat4}},
	}
	_, _, err := readFloats(doc, 0)
	assert.True(t, errors.Is(err, interop.ErrOutOfRange))

	doc = handBuiltDoc(t)
	doc.Accessors[0].Count = 4000000000
	_, _, err = readFloats(doc, 0)
	assert.True(t, errors.Is(err, interop.ErrOutOfRange))

	doc = handBuiltDoc(t)
	doc.Accessors[2].Count = 4000000000
	_, err = readIndices(doc, 2)
	assert.True(t, errors.Is(err, interop.ErrOutOfRange))
	_, err = Import(doc)
	assert.Error(t, err)
}

func TestAppendAccessorAligns(t *testing.T) {
	doc := gltf.NewDocument()
	doc.Buffers = append(doc.Buffers, &gltf.Buffer{Data: []byte{1}})

	index, err := appendAccessor(doc, []float32{1.5, 2.5}, gltf.AccessorScalar)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), doc.BufferViews[*doc.Accessors[index].BufferView].ByteOffset)

	values, _, err := readFloats(doc, index)
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, 2.5}, values)
}
