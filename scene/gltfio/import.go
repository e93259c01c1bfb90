// Package gltfio converts scenes to and from glTF 2.0 documents.
package gltfio

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/scene_interop/math3d"
	"github.com/mogaika/scene_interop/scene"
)

// TicksPerSecond of imported animations. glTF keys are in seconds.
const TicksPerSecond = 1000

// RootName names the node holding several glTF root nodes.
var RootName = "RootNode"

func Decode(r io.Reader) (*scene.Scene, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, errors.Wrapf(err, "Failed to decode gltf")
	}
	return Import(doc)
}

func ImportFile(path string) (*scene.Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open %q", path)
	}
	return Import(doc)
}

type importer struct {
	doc   *gltf.Document
	s     *scene.Scene
	nodes []*scene.Node
	// glTF mesh index to scene mesh indices, one per primitive
	meshes [][]int
}

func Import(doc *gltf.Document) (*scene.Scene, error) {
	imp := &importer{doc: doc, s: &scene.Scene{}}
	if err := imp.importMeshes(); err != nil {
		return nil, err
	}
	if err := imp.importNodes(); err != nil {
		return nil, err
	}
	for i, anim := range doc.Animations {
		a, err := imp.importAnimation(i, anim)
		if err != nil {
			return nil, errors.Wrapf(err, "animation %d %q", i, anim.Name)
		}
		imp.s.Animations = append(imp.s.Animations, a)
	}
	return imp.s, nil
}

func nodeTransform(n *gltf.Node) math3d.Matrix4x4 {
	if n.Matrix != [16]float32{} && n.Matrix != math3d.Identity4x4().ColumnMajor() {
		return math3d.Matrix4x4FromColumnMajor(n.Matrix)
	}
	rotation := math3d.Identity()
	if n.Rotation != [4]float32{} {
		rotation = math3d.NewQuaternion(n.Rotation[3], n.Rotation[0], n.Rotation[1], n.Rotation[2])
	}
	scaling := math3d.NewVector3D(1, 1, 1)
	if n.Scale != [3]float32{} {
		scaling = math3d.Vector3DFromArray(n.Scale)
	}
	return math3d.FromTRS(math3d.Vector3DFromArray(n.Translation), rotation, scaling)
}

func (imp *importer) importNodes() error {
	var ng scene.NameGenerator
	imp.nodes = make([]*scene.Node, len(imp.doc.Nodes))
	for i, n := range imp.doc.Nodes {
		node := scene.NewNode(ng.Unique(n.Name))
		node.Transform = nodeTransform(n)
		if n.Mesh != nil {
			if int(*n.Mesh) >= len(imp.meshes) {
				return errors.Errorf("node %d references mesh %d of %d", i, *n.Mesh, len(imp.meshes))
			}
			node.MeshIndices = append(node.MeshIndices, imp.meshes[*n.Mesh]...)
		}
		imp.nodes[i] = node
	}

	for i, n := range imp.doc.Nodes {
		for _, ci := range n.Children {
			if int(ci) >= len(imp.nodes) {
				return errors.Errorf("node %d child %d out of %d", i, ci, len(imp.nodes))
			}
			child := imp.nodes[ci]
			if child.Parent != nil || int(ci) == i {
				return errors.Errorf("node %d has several parents", ci)
			}
			imp.nodes[i].AddChild(child)
		}
	}

	roots := make([]*scene.Node, 0)
	if sc := imp.sceneRoots(); sc != nil {
		for _, ri := range sc {
			if int(ri) >= len(imp.nodes) {
				return errors.Errorf("scene root %d out of %d", ri, len(imp.nodes))
			}
			roots = append(roots, imp.nodes[ri])
		}
	} else {
		for _, node := range imp.nodes {
			if node.Parent == nil {
				roots = append(roots, node)
			}
		}
	}
	for _, root := range roots {
		if root.Parent != nil {
			return errors.Errorf("scene root %q has a parent", root.Name)
		}
	}

	if len(roots) == 1 {
		imp.s.RootNode = roots[0]
		return nil
	}
	imp.s.RootNode = scene.NewNode(ng.Unique(RootName))
	for _, root := range roots {
		imp.s.RootNode.AddChild(root)
	}
	return nil
}

func (imp *importer) sceneRoots() []uint32 {
	if len(imp.doc.Scenes) == 0 {
		return nil
	}
	index := 0
	if imp.doc.Scene != nil && int(*imp.doc.Scene) < len(imp.doc.Scenes) {
		index = int(*imp.doc.Scene)
	}
	return imp.doc.Scenes[index].Nodes
}

func toVectors(values []float32, components int) []math3d.Vector3D {
	out := make([]math3d.Vector3D, len(values)/components)
	for i := range out {
		v := values[i*components:]
		out[i] = math3d.NewVector3D(v[0], v[1], v[2])
	}
	return out
}

func (imp *importer) importMeshes() error {
	imp.meshes = make([][]int, len(imp.doc.Meshes))
	for mi, m := range imp.doc.Meshes {
		for pi, p := range m.Primitives {
			if p.Mode != gltf.PrimitiveTriangles {
				continue
			}
			mesh, err := imp.importPrimitive(m.Name, p)
			if err != nil {
				return errors.Wrapf(err, "mesh %d %q primitive %d", mi, m.Name, pi)
			}
			imp.meshes[mi] = append(imp.meshes[mi], len(imp.s.Meshes))
			imp.s.Meshes = append(imp.s.Meshes, mesh)
		}
	}
	return nil
}

func (imp *importer) importPrimitive(name string, p *gltf.Primitive) (*scene.Mesh, error) {
	position, ok := p.Attributes["POSITION"]
	if !ok {
		return nil, errors.Errorf("primitive without positions")
	}
	values, components, err := readFloats(imp.doc, position)
	if err != nil {
		return nil, errors.Wrapf(err, "positions")
	}
	if components != 3 {
		return nil, errors.Errorf("positions have %d components", components)
	}
	mesh := &scene.Mesh{Name: name, Vertices: toVectors(values, components)}

	if normal, ok := p.Attributes["NORMAL"]; ok {
		values, components, err := readFloats(imp.doc, normal)
		if err != nil {
			return nil, errors.Wrapf(err, "normals")
		}
		if components == 3 {
			mesh.Normals = toVectors(values, components)
		}
	}

	if p.Indices != nil {
		if mesh.Indices, err = readIndices(imp.doc, *p.Indices); err != nil {
			return nil, errors.Wrapf(err, "indices")
		}
	} else {
		mesh.Indices = make([]uint32, len(mesh.Vertices))
		for i := range mesh.Indices {
			mesh.Indices[i] = uint32(i)
		}
	}
	return mesh, mesh.Validate()
}

func (imp *importer) importAnimation(index int, anim *gltf.Animation) (*scene.Animation, error) {
	a := &scene.Animation{Name: anim.Name, TicksPerSecond: TicksPerSecond}
	if a.Name == "" {
		a.Name = fmt.Sprintf("animation%d", index)
	}
	channels := make(map[*scene.Node]*scene.NodeAnimationChannel)

	for ci, ch := range anim.Channels {
		if ch.Target.Node == nil || ch.Sampler == nil {
			continue
		}
		if int(*ch.Target.Node) >= len(imp.nodes) {
			return nil, errors.Errorf("channel %d targets node %d of %d", ci, *ch.Target.Node, len(imp.nodes))
		}
		if int(*ch.Sampler) >= len(anim.Samplers) {
			return nil, errors.Errorf("channel %d uses sampler %d of %d", ci, *ch.Sampler, len(anim.Samplers))
		}
		switch ch.Target.Path {
		case gltf.TRSTranslation, gltf.TRSRotation, gltf.TRSScale:
		default:
			// morph target weights are not imported
			continue
		}

		node := imp.nodes[*ch.Target.Node]
		sampler := anim.Samplers[*ch.Sampler]
		if sampler.Input == nil || sampler.Output == nil {
			return nil, errors.Errorf("channel %d sampler has no accessors", ci)
		}

		times, _, err := readFloats(imp.doc, *sampler.Input)
		if err != nil {
			return nil, errors.Wrapf(err, "channel %d input", ci)
		}
		values, components, err := readFloats(imp.doc, *sampler.Output)
		if err != nil {
			return nil, errors.Wrapf(err, "channel %d output", ci)
		}

		// cubic spline outputs are in-tangent, value, out-tangent triples
		elementsPerKey := 1
		if sampler.Interpolation == gltf.InterpolationCubicSpline {
			elementsPerKey = 3
		}
		if len(values) < len(times)*elementsPerKey*components {
			return nil, errors.Errorf("channel %d has %d outputs for %d keys", ci, len(values)/components, len(times))
		}
		valueAt := func(key int) []float32 {
			element := key*elementsPerKey + elementsPerKey/2
			return values[element*components : (element+1)*components]
		}

		target, ok := channels[node]
		if !ok {
			target = &scene.NodeAnimationChannel{NodeName: node.Name}
			channels[node] = target
			a.Channels = append(a.Channels, target)
		}

		interpolation := scene.InterpolationLinear
		if sampler.Interpolation == gltf.InterpolationStep {
			interpolation = scene.InterpolationStep
		}

		switch ch.Target.Path {
		case gltf.TRSTranslation, gltf.TRSScale:
			if components != 3 {
				return nil, errors.Errorf("channel %d vector output has %d components", ci, components)
			}
			keys := make([]scene.VectorKey, len(times))
			for i, t := range times {
				v := valueAt(i)
				keys[i] = scene.VectorKey{
					Time:          float64(t) * TicksPerSecond,
					Value:         math3d.NewVector3D(v[0], v[1], v[2]),
					Interpolation: interpolation,
				}
			}
			if ch.Target.Path == gltf.TRSTranslation {
				target.PositionKeys = keys
			} else {
				target.ScalingKeys = keys
			}
		case gltf.TRSRotation:
			if components != 4 {
				return nil, errors.Errorf("channel %d rotation output has %d components", ci, components)
			}
			if interpolation == scene.InterpolationLinear {
				interpolation = scene.InterpolationSphericalLinear
			}
			keys := make([]scene.QuaternionKey, len(times))
			for i, t := range times {
				v := valueAt(i)
				keys[i] = scene.QuaternionKey{
					Time:          float64(t) * TicksPerSecond,
					Value:         math3d.NewQuaternion(v[3], v[0], v[1], v[2]),
					Interpolation: interpolation,
				}
			}
			target.RotationKeys = keys
		}

		if n := len(times); n > 0 && float64(times[n-1])*TicksPerSecond > a.Duration {
			a.Duration = float64(times[n-1]) * TicksPerSecond
		}
	}
	return a, nil
}

func init() {
	decode := func(r io.ReadSeeker, name string) (*scene.Scene, error) {
		return Decode(r)
	}
	scene.SetImporter(".glb", decode)
	scene.SetImporter(".gltf", decode)
	scene.SetFileImporter(".gltf", ImportFile)
}
