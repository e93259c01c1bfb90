package fbxio

import (
	"bytes"
	"io"
	"math"

	"github.com/mogaika/fbx"
	"github.com/mogaika/fbx/builders/bfbx73"
	"github.com/pkg/errors"

	"github.com/mogaika/scene_interop/math3d"
	"github.com/mogaika/scene_interop/scene"
)

// FBX_TIME_SECOND is one second in FBX time units.
const FBX_TIME_SECOND = 46186158000

// key attribute flags
const (
	keyInterpolationConstant = 0x00000002
	keyInterpolationLinear   = 0x00000004
)

type Options struct {
	// used for animations without a tick rate
	DefaultTicksPerSecond float64
	// rotation curves are baked at this many samples per second
	SampleRate float64
}

var DefaultOptions = Options{DefaultTicksPerSecond: 25, SampleRate: 30}

type exporter struct {
	b      *Builder
	s      *scene.Scene
	o      Options
	models map[string]int64
}

func toFbxTime(seconds float64) int64 {
	return int64(math.Round(seconds * FBX_TIME_SECOND))
}

func Export(s *scene.Scene, filename string, o Options) (*Builder, error) {
	if s.RootNode == nil {
		return nil, errors.Errorf("scene %q has no root node", s.Name)
	}
	if o.SampleRate <= 0 {
		return nil, errors.Errorf("sample rate must be positive, got %v", o.SampleRate)
	}
	exp := &exporter{
		b:      NewBuilder(filename),
		s:      s,
		o:      o,
		models: make(map[string]int64),
	}

	exp.exportNode(s.RootNode, 0)

	var longest int64
	for _, anim := range s.Animations {
		stop, err := exp.exportAnimation(anim)
		if err != nil {
			return nil, errors.Wrapf(err, "animation %q", anim.Name)
		}
		if stop > longest {
			longest = stop
		}
	}
	if len(s.Animations) != 0 {
		exp.b.SetActiveStack(s.Animations[0].Name)
		exp.b.SetTimeSpan(longest)
	}
	return exp.b, nil
}

func transformProperties(m math3d.Matrix4x4) *fbx.Node {
	scaling, rotation, translation := m.Decompose()
	euler := math3d.RadiansToDegrees(rotation.ToEuler())
	return bfbx73.Properties70().AddNodes(
		bfbx73.P("InheritType", "enum", "", "", int32(1)),
		bfbx73.P("DefaultAttributeIndex", "int", "Integer", "", int32(0)),
		bfbx73.P("Lcl Translation", "Lcl Translation", "", "A",
			float64(translation.X), float64(translation.Y), float64(translation.Z)),
		bfbx73.P("Lcl Rotation", "Lcl Rotation", "", "A",
			float64(euler.X), float64(euler.Y), float64(euler.Z)),
		bfbx73.P("Lcl Scaling", "Lcl Scaling", "", "A",
			float64(scaling.X), float64(scaling.Y), float64(scaling.Z)),
	)
}

func (exp *exporter) exportNode(node *scene.Node, parent int64) {
	id := exp.b.GenerateId()
	exp.models[node.Name] = id

	class := "Null"
	if len(node.MeshIndices) == 1 {
		class = "Mesh"
	}
	model := bfbx73.Model(id, node.Name+"\x00\x01Model", class).AddNodes(
		bfbx73.Version(232),
		transformProperties(node.Transform),
		bfbx73.Shading(true),
		bfbx73.Culling("CullingOff"),
	)
	exp.b.AddObjects(model)
	exp.b.Connect(id, parent)

	switch len(node.MeshIndices) {
	case 0:
		attribute := bfbx73.NodeAttribute(exp.b.GenerateId(), node.Name+"\x00\x01NodeAttribute", "Null").AddNodes(
			bfbx73.TypeFlags("Null"),
		)
		exp.b.AddObjects(attribute)
		exp.b.Connect(attribute.Properties[0].(int64), id)
	case 1:
		exp.exportGeometry(exp.s.Meshes[node.MeshIndices[0]], id)
	default:
		// one child model per mesh
		for _, mi := range node.MeshIndices {
			mesh := exp.s.Meshes[mi]
			meshId := exp.b.GenerateId()
			exp.b.AddObjects(bfbx73.Model(meshId, node.Name+"_"+mesh.Name+"\x00\x01Model", "Mesh").AddNodes(
				bfbx73.Version(232),
				transformProperties(math3d.Identity4x4()),
				bfbx73.Shading(true),
				bfbx73.Culling("CullingOff"),
			))
			exp.b.Connect(meshId, id)
			exp.exportGeometry(mesh, meshId)
		}
	}

	for _, child := range node.Children {
		exp.exportNode(child, id)
	}
}

func (exp *exporter) exportGeometry(mesh *scene.Mesh, model int64) {
	vertices := make([]float64, 0, len(mesh.Vertices)*3)
	for _, v := range mesh.Vertices {
		vertices = append(vertices, float64(v.X), float64(v.Y), float64(v.Z))
	}

	// the last index of every polygon is stored as -(index)-1
	indexes := make([]int32, len(mesh.Indices))
	for i, index := range mesh.Indices {
		indexes[i] = int32(index)
		if i%3 == 2 {
			indexes[i] = -int32(index) - 1
		}
	}

	geometryLayer := bfbx73.Layer(0).AddNodes(
		bfbx73.Version(100),
	)
	id := exp.b.GenerateId()
	geometry := bfbx73.Geometry(id, mesh.Name+"\x00\x01Geometry", "Mesh").AddNodes(
		bfbx73.Properties70().AddNodes(
			bfbx73.P("Color", "ColorRGB", "Color", "", float64(1), float64(1), float64(1)),
		),
		bfbx73.GeometryVersion(124),
		bfbx73.Vertices(vertices),
		bfbx73.PolygonVertexIndex(indexes),
		geometryLayer,
	)

	if mesh.Normals != nil {
		normals := make([]float64, 0, len(mesh.Normals)*3)
		for _, n := range mesh.Normals {
			normals = append(normals, float64(n.X), float64(n.Y), float64(n.Z))
		}
		geometry.AddNode(
			bfbx73.LayerElementNormal(0).AddNodes(
				bfbx73.Version(101),
				bfbx73.Name(""),
				bfbx73.MappingInformationType("ByVertice"),
				bfbx73.ReferenceInformationType("Direct"),
				bfbx73.Normals(normals),
			),
		)
		geometryLayer.AddNode(
			bfbx73.LayerElement().AddNodes(
				bfbx73.Type("LayerElementNormal"),
				bfbx73.TypedIndex(0),
			),
		)
	}

	exp.b.AddObjects(geometry)
	exp.b.Connect(id, model)
}

func objectNode(name string, id int64, objectName, class string, children ...*fbx.Node) *fbx.Node {
	return &fbx.Node{
		Name:       name,
		Properties: []interface{}{id, objectName, class},
		Nodes:      children,
	}
}

func valueNode(name string, value interface{}) *fbx.Node {
	return &fbx.Node{Name: name, Properties: []interface{}{value}}
}

type curve struct {
	times  []int64
	values []float32
	flags  int32
}

func (exp *exporter) addCurve(c curve, curveNode int64, axis string) {
	id := exp.b.GenerateId()
	var def float32
	if len(c.values) != 0 {
		def = c.values[0]
	}
	exp.b.AddObjects(objectNode("AnimationCurve", id, "\x00\x01AnimCurve", "",
		valueNode("Default", float64(def)),
		valueNode("KeyVer", int32(4008)),
		valueNode("KeyTime", c.times),
		valueNode("KeyValueFloat", c.values),
		valueNode("KeyAttrFlags", []int32{c.flags}),
		valueNode("KeyAttrDataFloat", []float32{0, 0, 0, 0}),
		valueNode("KeyAttrRefCount", []int32{int32(len(c.times))}),
	))
	exp.b.ConnectProperty(id, curveNode, "d|"+axis)
}

// addCurveNode connects three axis curves to a model property.
func (exp *exporter) addCurveNode(kind, property string, curves [3]curve, model, layer int64) {
	id := exp.b.GenerateId()
	defaults := [3]float64{}
	for i := range curves {
		if len(curves[i].values) != 0 {
			defaults[i] = float64(curves[i].values[0])
		}
	}
	exp.b.AddObjects(objectNode("AnimationCurveNode", id, kind+"\x00\x01AnimCurveNode", "",
		bfbx73.Properties70().AddNodes(
			bfbx73.P("d|X", "Number", "", "A", defaults[0]),
			bfbx73.P("d|Y", "Number", "", "A", defaults[1]),
			bfbx73.P("d|Z", "Number", "", "A", defaults[2]),
		),
	))
	exp.b.Connect(id, layer)
	exp.b.ConnectProperty(id, model, property)

	for i, axis := range []string{"X", "Y", "Z"} {
		exp.addCurve(curves[i], id, axis)
	}
}

func vectorCurves(keys []scene.VectorKey, rate float64) [3]curve {
	var curves [3]curve
	flags := int32(keyInterpolationConstant)
	for _, k := range keys {
		if k.Interpolation != scene.InterpolationStep {
			flags = keyInterpolationLinear
		}
	}
	for i := range curves {
		curves[i].flags = flags
	}
	for _, k := range keys {
		t := toFbxTime(k.Time / rate)
		for i, v := range k.Value.Array() {
			curves[i].times = append(curves[i].times, t)
			curves[i].values = append(curves[i].values, v)
		}
	}
	return curves
}

// unwrapDegrees picks the representation of angle closest to previous.
func unwrapDegrees(previous, angle float32) float32 {
	for angle-previous > 180 {
		angle -= 360
	}
	for angle-previous < -180 {
		angle += 360
	}
	return angle
}

func (exp *exporter) exportAnimation(anim *scene.Animation) (int64, error) {
	rate := anim.Rate(exp.o.DefaultTicksPerSecond)
	duration := anim.Duration
	if last := anim.LastKeyTime(); last > duration {
		duration = last
	}
	stop := toFbxTime(duration / rate)

	stackId := exp.b.GenerateId()
	layerId := exp.b.GenerateId()
	exp.b.AddObjects(
		objectNode("AnimationStack", stackId, anim.Name+"\x00\x01AnimStack", "",
			bfbx73.Properties70().AddNodes(
				bfbx73.P("LocalStop", "KTime", "Time", "", stop),
				bfbx73.P("ReferenceStop", "KTime", "Time", "", stop),
			),
		),
		objectNode("AnimationLayer", layerId, "BaseLayer\x00\x01AnimLayer", ""),
	)
	exp.b.Connect(layerId, stackId)

	// rotation keys are baked to euler curves by sampling slerped poses
	eval := scene.NewEvaluator(anim, exp.o.DefaultTicksPerSecond)
	frames := int(math.Floor(duration/rate*exp.o.SampleRate)) + 1
	rotations := make([][3]curve, len(anim.Channels))
	previous := make([]math3d.Vector3D, len(anim.Channels))
	for frame := 0; frame < frames; frame++ {
		seconds := float64(frame) / exp.o.SampleRate
		t := toFbxTime(seconds)
		for ci, sample := range eval.Evaluate(seconds) {
			if !sample.HasRotation {
				continue
			}
			euler := math3d.RadiansToDegrees(sample.Rotation.ToEuler())
			if frame != 0 {
				euler.X = unwrapDegrees(previous[ci].X, euler.X)
				euler.Y = unwrapDegrees(previous[ci].Y, euler.Y)
				euler.Z = unwrapDegrees(previous[ci].Z, euler.Z)
			}
			previous[ci] = euler
			for i, v := range euler.Array() {
				rotations[ci][i].times = append(rotations[ci][i].times, t)
				rotations[ci][i].values = append(rotations[ci][i].values, v)
				rotations[ci][i].flags = keyInterpolationLinear
			}
		}
	}

	for ci, ch := range anim.Channels {
		model, ok := exp.models[ch.NodeName]
		if !ok {
			return 0, errors.Errorf("channel animates missing node %q", ch.NodeName)
		}
		if len(ch.PositionKeys) != 0 {
			exp.addCurveNode("T", "Lcl Translation", vectorCurves(ch.PositionKeys, rate), model, layerId)
		}
		if len(ch.RotationKeys) != 0 {
			exp.addCurveNode("R", "Lcl Rotation", rotations[ci], model, layerId)
		}
		if len(ch.ScalingKeys) != 0 {
			exp.addCurveNode("S", "Lcl Scaling", vectorCurves(ch.ScalingKeys, rate), model, layerId)
		}
	}
	return stop, nil
}

func init() {
	scene.SetExporter(".fbx", func(w io.Writer, s *scene.Scene) error {
		b, err := Export(s, s.Name+".fbx", DefaultOptions)
		if err != nil {
			return err
		}
		return b.Write(w)
	})
	scene.SetExporter(".zip", func(w io.Writer, s *scene.Scene) error {
		b, err := Export(s, s.Name+".fbx", DefaultOptions)
		if err != nil {
			return err
		}
		if len(s.Animations) != 0 {
			img, err := scene.MarshalAnimations(s.Animations, 0)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if _, err := img.WriteTo(&buf); err != nil {
				return err
			}
			b.AddExportFile(s.Name+".nimg", buf.Bytes())
		}
		return b.WriteZip(w, s.Name+".fbx")
	})
}
