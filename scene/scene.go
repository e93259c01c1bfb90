// Package scene holds imported scene data: the node hierarchy, meshes and
// node animations, in the shape asset importers expose them.
package scene

import (
	"github.com/pkg/errors"

	"github.com/mogaika/scene_interop/math3d"
)

type Node struct {
	Name      string
	Transform math3d.Matrix4x4
	Parent    *Node `json:"-"`
	Children  []*Node
	// indices into Scene.Meshes
	MeshIndices []int `json:",omitempty"`
}

func NewNode(name string) *Node {
	return &Node{Name: name, Transform: math3d.Identity4x4()}
}

func (n *Node) AddChild(child *Node) *Node {
	child.Parent = n
	n.Children = append(n.Children, child)
	return child
}

// GlobalTransform concatenates transforms from the root down to n.
func (n *Node) GlobalTransform() math3d.Matrix4x4 {
	m := n.Transform
	for p := n.Parent; p != nil; p = p.Parent {
		m = p.Transform.Mul(m)
	}
	return m
}

func (n *Node) FindNode(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, child := range n.Children {
		if found := child.FindNode(name); found != nil {
			return found
		}
	}
	return nil
}

// Walk visits n and its descendants depth first. Returning an error stops the walk.
func (n *Node) Walk(fn func(node *Node, depth int) error) error {
	return n.walk(fn, 0)
}

func (n *Node) walk(fn func(node *Node, depth int) error, depth int) error {
	if err := fn(n, depth); err != nil {
		return err
	}
	for _, child := range n.Children {
		if err := child.walk(fn, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Mesh is an indexed triangle list.
type Mesh struct {
	Name     string
	Vertices []math3d.Vector3D
	Normals  []math3d.Vector3D `json:",omitempty"`
	Indices  []uint32
}

func (m *Mesh) Validate() error {
	if m.Normals != nil && len(m.Normals) != len(m.Vertices) {
		return errors.Errorf("mesh %q has %d normals for %d vertices", m.Name, len(m.Normals), len(m.Vertices))
	}
	if len(m.Indices)%3 != 0 {
		return errors.Errorf("mesh %q index count %d is not a multiple of 3", m.Name, len(m.Indices))
	}
	for i, index := range m.Indices {
		if int(index) >= len(m.Vertices) {
			return errors.Errorf("mesh %q index %d references vertex %d of %d", m.Name, i, index, len(m.Vertices))
		}
	}
	return nil
}

type Scene struct {
	Name       string
	RootNode   *Node
	Meshes     []*Mesh
	Animations []*Animation
}

func (s *Scene) FindNode(name string) *Node {
	if s.RootNode == nil {
		return nil
	}
	return s.RootNode.FindNode(name)
}

// Nodes lists every node depth first.
func (s *Scene) Nodes() []*Node {
	nodes := make([]*Node, 0)
	if s.RootNode != nil {
		s.RootNode.Walk(func(node *Node, depth int) error {
			nodes = append(nodes, node)
			return nil
		})
	}
	return nodes
}

func (s *Scene) FindAnimation(name string) *Animation {
	for _, anim := range s.Animations {
		if anim.Name == name {
			return anim
		}
	}
	return nil
}

func (s *Scene) Validate() error {
	if s.RootNode == nil {
		return errors.Errorf("scene %q has no root node", s.Name)
	}

	names := make(map[string]struct{})
	err := s.RootNode.Walk(func(node *Node, depth int) error {
		if _, exists := names[node.Name]; exists {
			return errors.Errorf("duplicate node name %q", node.Name)
		}
		names[node.Name] = struct{}{}
		for _, child := range node.Children {
			if child.Parent != node {
				return errors.Errorf("node %q has broken parent link", child.Name)
			}
		}
		for _, mi := range node.MeshIndices {
			if mi < 0 || mi >= len(s.Meshes) {
				return errors.Errorf("node %q references mesh %d of %d", node.Name, mi, len(s.Meshes))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, mesh := range s.Meshes {
		if err := mesh.Validate(); err != nil {
			return err
		}
	}

	for _, anim := range s.Animations {
		if err := anim.Validate(); err != nil {
			return err
		}
		for _, channel := range anim.Channels {
			if _, exists := names[channel.NodeName]; !exists {
				return errors.Errorf("animation %q animates missing node %q", anim.Name, channel.NodeName)
			}
		}
	}
	return nil
}
