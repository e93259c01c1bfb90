package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/scene_interop/math3d"
)

func translation(x, y, z float32) math3d.Matrix4x4 {
	return math3d.FromTRS(math3d.NewVector3D(x, y, z), math3d.Identity(), math3d.NewVector3D(1, 1, 1))
}

// testScene: RootNode -> hips -> arm, hips -> leg
func testScene() *Scene {
	root := NewNode("RootNode")
	hips := root.AddChild(NewNode("hips"))
	hips.Transform = translation(0, 1, 0)
	arm := hips.AddChild(NewNode("arm"))
	arm.Transform = translation(0, 2, 0)
	arm.MeshIndices = []int{0}
	hips.AddChild(NewNode("leg"))

	zAxis := math3d.NewVector3D(0, 0, 1)
	return &Scene{
		Name:     "test",
		RootNode: root,
		Meshes: []*Mesh{{
			Name:     "tri",
			Vertices: []math3d.Vector3D{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
			Indices:  []uint32{0, 1, 2},
		}},
		Animations: []*Animation{{
			Name:           "wave",
			Duration:       20,
			TicksPerSecond: 10,
			Channels: []*NodeAnimationChannel{{
				NodeName: "arm",
				PositionKeys: []VectorKey{
					{Time: 0, Value: math3d.NewVector3D(0, 0, 0), Interpolation: InterpolationLinear},
					{Time: 10, Value: math3d.NewVector3D(10, 0, 0), Interpolation: InterpolationLinear},
					{Time: 20, Value: math3d.NewVector3D(10, 10, 0), Interpolation: InterpolationLinear},
				},
				RotationKeys: []QuaternionKey{
					{Time: 0, Value: math3d.Identity(), Interpolation: InterpolationSphericalLinear},
					{Time: 20, Value: math3d.NewQuaternionFromAxisAngle(zAxis, math.Pi/2), Interpolation: InterpolationSphericalLinear},
				},
				ScalingKeys: []VectorKey{
					{Time: 0, Value: math3d.NewVector3D(1, 1, 1), Interpolation: InterpolationStep},
					{Time: 10, Value: math3d.NewVector3D(2, 2, 2), Interpolation: InterpolationStep},
				},
			}},
		}},
	}
}

func TestSceneHierarchy(t *testing.T) {
	s := testScene()
	require.NoError(t, s.Validate())

	arm := s.FindNode("arm")
	require.NotNil(t, arm)
	assert.Equal(t, "hips", arm.Parent.Name)
	assert.Nil(t, s.FindNode("tail"))

	global := arm.GlobalTransform()
	assert.True(t, global.Translation().ApproxEqual(math3d.NewVector3D(0, 3, 0), 1e-6))

	var names []string
	var depths []int
	s.RootNode.Walk(func(n *Node, depth int) error {
		names = append(names, n.Name)
		depths = append(depths, depth)
		return nil
	})
	assert.Equal(t, []string{"RootNode", "hips", "arm", "leg"}, names)
	assert.Equal(t, []int{0, 1, 2, 2}, depths)
	assert.Len(t, s.Nodes(), 4)

	assert.NotNil(t, s.FindAnimation("wave"))
	assert.Nil(t, s.FindAnimation("run"))
}

func TestSceneValidate(t *testing.T) {
	var tests = []struct {
		name   string
		mutate func(s *Scene)
	}{
		{"no root", func(s *Scene) { s.RootNode = nil }},
		{"duplicate node", func(s *Scene) { s.RootNode.AddChild(NewNode("arm")) }},
		{"bad mesh index", func(s *Scene) { s.FindNode("leg").MeshIndices = []int{3} }},
		{"bad vertex index", func(s *Scene) { s.Meshes[0].Indices[2] = 9 }},
		{"partial triangle", func(s *Scene) { s.Meshes[0].Indices = []uint32{0, 1} }},
		{"missing animated node", func(s *Scene) { s.Animations[0].Channels[0].NodeName = "tail" }},
		{"negative duration", func(s *Scene) { s.Animations[0].Duration = -1 }},
		{"unsorted keys", func(s *Scene) { s.Animations[0].Channels[0].PositionKeys[1].Time = 30 }},
		{"duplicate channel", func(s *Scene) {
			s.Animations[0].Channels = append(s.Animations[0].Channels, &NodeAnimationChannel{NodeName: "arm"})
		}},
	}
	for _, test := range tests {
		s := testScene()
		test.mutate(s)
		assert.Error(t, s.Validate(), test.name)
	}
}

func TestAnimationHelpers(t *testing.T) {
	anim := testScene().Animations[0]
	assert.Equal(t, 10.0, anim.Rate(25))
	assert.Equal(t, 2.0, anim.DurationSeconds(25))
	assert.Equal(t, 20.0, anim.LastKeyTime())
	assert.NotNil(t, anim.Channel("arm"))
	assert.Nil(t, anim.Channel("leg"))

	anim.TicksPerSecond = 0
	assert.Equal(t, 25.0, anim.Rate(25))
	assert.Equal(t, "slerp", InterpolationSphericalLinear.String())
}

func TestNameGenerator(t *testing.T) {
	var ng NameGenerator
	a := ng.Unique("")
	b := ng.Unique("")
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)

	assert.Equal(t, "bone", ng.Unique("bone"))
	assert.Equal(t, "bone_1", ng.Unique("bone"))
	assert.Equal(t, "bone_2", ng.Unique("bone"))

	ng.Reserve("hand")
	assert.Equal(t, "hand_1", ng.Unique("hand"))
}
