package gltfio

import (
	"io"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/scene_interop/math3d"
	"github.com/mogaika/scene_interop/scene"
)

type exporter struct {
	doc   *gltf.Document
	s     *scene.Scene
	nodes map[string]uint32
	// scene mesh index to glTF primitive
	primitives []*gltf.Primitive
	// default tick rate for animations without one
	defaultRate float64
}

// Export converts s into a glTF document with a single scene.
// defaultTicksPerSecond applies to animations without their own rate.
func Export(s *scene.Scene, defaultTicksPerSecond float64) (*gltf.Document, error) {
	if s.RootNode == nil {
		return nil, errors.Errorf("scene %q has no root node", s.Name)
	}
	exp := &exporter{
		doc:         gltf.NewDocument(),
		s:           s,
		nodes:       make(map[string]uint32),
		defaultRate: defaultTicksPerSecond,
	}

	exp.exportMeshes()
	root := exp.exportNode(s.RootNode)
	exp.doc.Scenes[0].Nodes = append(exp.doc.Scenes[0].Nodes, root)

	for _, anim := range s.Animations {
		if err := exp.exportAnimation(anim); err != nil {
			return nil, errors.Wrapf(err, "animation %q", anim.Name)
		}
	}
	return exp.doc, nil
}

func (exp *exporter) exportMeshes() {
	exp.primitives = make([]*gltf.Primitive, len(exp.s.Meshes))
	for i, mesh := range exp.s.Meshes {
		positions := make([][3]float32, len(mesh.Vertices))
		for iVertex, v := range mesh.Vertices {
			positions[iVertex] = v.Array()
		}
		attributes := map[string]uint32{
			"POSITION": modeler.WritePosition(exp.doc, positions),
		}

		if mesh.Normals != nil {
			normals := make([][3]float32, len(mesh.Normals))
			for iVertex, normal := range mesh.Normals {
				if normal.Length() > 0.5 {
					normal = normal.Normalize()
				}
				normals[iVertex] = normal.Array()
			}
			attributes["NORMAL"] = modeler.WriteNormal(exp.doc, normals)
		}

		indicesAccessor := modeler.WriteIndices(exp.doc, mesh.Indices)
		exp.primitives[i] = &gltf.Primitive{
			Indices:    &indicesAccessor,
			Attributes: attributes,
		}
	}
}

func (exp *exporter) exportNode(node *scene.Node) uint32 {
	gnode := &gltf.Node{Name: node.Name}

	scaling, rotation, translation := node.Transform.Decompose()
	if math3d.FromTRS(translation, rotation, scaling).ApproxEqual(node.Transform, 1e-5) {
		gnode.Translation = translation.Array()
		gnode.Rotation = [4]float32{rotation.X, rotation.Y, rotation.Z, rotation.W}
		gnode.Scale = scaling.Array()
	} else {
		gnode.Matrix = node.Transform.ColumnMajor()
	}

	if len(node.MeshIndices) != 0 {
		mesh := &gltf.Mesh{Name: node.Name}
		for _, mi := range node.MeshIndices {
			mesh.Primitives = append(mesh.Primitives, exp.primitives[mi])
		}
		exp.doc.Meshes = append(exp.doc.Meshes, mesh)
		gnode.Mesh = gltf.Index(uint32(len(exp.doc.Meshes) - 1))
	}

	index := uint32(len(exp.doc.Nodes))
	exp.doc.Nodes = append(exp.doc.Nodes, gnode)
	exp.nodes[node.Name] = index

	for _, child := range node.Children {
		gnode.Children = append(gnode.Children, exp.exportNode(child))
	}
	return index
}

func samplerInterpolation(step bool) gltf.Interpolation {
	if step {
		return gltf.InterpolationStep
	}
	return gltf.InterpolationLinear
}

func (exp *exporter) addSampler(ganim *gltf.Animation, node uint32, path gltf.TRSProperty,
	times []float32, step bool, output func() (uint32, error)) error {
	input, err := appendAccessor(exp.doc, times, gltf.AccessorScalar)
	if err != nil {
		return err
	}
	out, err := output()
	if err != nil {
		return err
	}
	ganim.Samplers = append(ganim.Samplers, &gltf.AnimationSampler{
		Input:         gltf.Index(input),
		Interpolation: samplerInterpolation(step),
		Output:        gltf.Index(out),
	})
	ganim.Channels = append(ganim.Channels, &gltf.Channel{
		Sampler: gltf.Index(uint32(len(ganim.Samplers) - 1)),
		Target: gltf.ChannelTarget{
			Node: gltf.Index(node),
			Path: path,
		},
	})
	return nil
}

func (exp *exporter) exportVectorKeys(ganim *gltf.Animation, node uint32, path gltf.TRSProperty, keys []scene.VectorKey, rate float64) error {
	if len(keys) == 0 {
		return nil
	}
	times := make([]float32, len(keys))
	values := make([][3]float32, len(keys))
	step := true
	for i, k := range keys {
		times[i] = float32(k.Time / rate)
		values[i] = k.Value.Array()
		step = step && k.Interpolation == scene.InterpolationStep
	}
	return exp.addSampler(ganim, node, path, times, step, func() (uint32, error) {
		return appendAccessor(exp.doc, values, gltf.AccessorVec3)
	})
}

func (exp *exporter) exportAnimation(anim *scene.Animation) error {
	rate := anim.Rate(exp.defaultRate)
	ganim := &gltf.Animation{Name: anim.Name}

	for _, ch := range anim.Channels {
		node, ok := exp.nodes[ch.NodeName]
		if !ok {
			return errors.Errorf("channel animates missing node %q", ch.NodeName)
		}

		if err := exp.exportVectorKeys(ganim, node, gltf.TRSTranslation, ch.PositionKeys, rate); err != nil {
			return err
		}

		if len(ch.RotationKeys) != 0 {
			times := make([]float32, len(ch.RotationKeys))
			values := make([][4]float32, len(ch.RotationKeys))
			step := true
			for i, k := range ch.RotationKeys {
				q := k.Value
				times[i] = float32(k.Time / rate)
				values[i] = [4]float32{q.X, q.Y, q.Z, q.W}
				step = step && k.Interpolation == scene.InterpolationStep
			}
			err := exp.addSampler(ganim, node, gltf.TRSRotation, times, step, func() (uint32, error) {
				return appendAccessor(exp.doc, values, gltf.AccessorVec4)
			})
			if err != nil {
				return err
			}
		}

		if err := exp.exportVectorKeys(ganim, node, gltf.TRSScale, ch.ScalingKeys, rate); err != nil {
			return err
		}
	}

	exp.doc.Animations = append(exp.doc.Animations, ganim)
	return nil
}

func WriteBinary(w io.Writer, doc *gltf.Document) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return errors.Wrapf(encoder.Encode(doc), "Failed to encode glb")
}

// DefaultTicksPerSecond is used by the registered exporter.
var DefaultTicksPerSecond = 25.0

func init() {
	scene.SetExporter(".glb", func(w io.Writer, s *scene.Scene) error {
		doc, err := Export(s, DefaultTicksPerSecond)
		if err != nil {
			return err
		}
		return WriteBinary(w, doc)
	})
}
