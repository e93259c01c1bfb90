// Package fbxio writes scenes as binary FBX 7.4 files.
package fbxio

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/mogaika/fbx"
	"github.com/mogaika/fbx/builders/bfbx73"
	"github.com/pkg/errors"
)

const (
	creator         = "FBX SDK/FBX Plugins version 2013.3 build=20121223"
	applicationName = "scene_interop"
	// fixed so exports of the same scene are byte identical
	creationTime = "1970-01-01 10:00:00:000"
)

var fileId = []byte{
	0x28, 0xb3, 0x2a, 0xeb, 0xb6, 0x24, 0xcc, 0xc2,
	0xbf, 0xc8, 0xb0, 0x2a, 0xa9, 0x2b, 0xfc, 0xf1}

type Builder struct {
	f      *fbx.FBX
	lastId int64
	files  map[string][]byte

	objects     *fbx.Node
	connections *fbx.Node
	document    *fbx.Node
}

func NewBuilder(filename string) *Builder {
	b := &Builder{
		files:       make(map[string][]byte),
		lastId:      1000000,
		f:           fbx.NewFBX(7400),
		objects:     bfbx73.Objects(),
		connections: bfbx73.Connections(),
	}
	b.document = bfbx73.Document(b.GenerateId(), "Scene", "Scene").AddNodes(
		bfbx73.Properties70().AddNodes(
			bfbx73.P("SourceObject", "object", "", ""),
			bfbx73.P("ActiveAnimStackName", "KString", "", "", ""),
		),
		bfbx73.RootNode(0),
	)

	b.Root().AddNodes(
		headerExtension(filename),
		bfbx73.FileId(fileId),
		bfbx73.CreationTime(creationTime),
		bfbx73.Creator(creator),
		globalSettings(),
		bfbx73.Documents().AddNodes(bfbx73.Count(1), b.document),
		bfbx73.References(),
		definitions(),
		b.objects,
		b.connections,
		bfbx73.Takes().AddNodes(bfbx73.Current("")),
	)
	return b
}

func headerExtension(filename string) *fbx.Node {
	return bfbx73.FBXHeaderExtension().AddNodes(
		bfbx73.FBXHeaderVersion(1003),
		bfbx73.FBXVersion(7400),
		bfbx73.EncryptionType(0),
		bfbx73.Creator(creator),
		bfbx73.SceneInfo("GlobalInfo\x00\x01SceneInfo", "UserData").AddNodes(
			bfbx73.Type("UserData"),
			bfbx73.Version(100),
			bfbx73.Properties70().AddNodes(
				bfbx73.P("DocumentUrl", "KString", "Url", "", filename),
				bfbx73.P("Original|ApplicationName", "KString", "", "", applicationName),
				bfbx73.P("Original|FileName", "KString", "", "", filepath.Base(filename)),
			),
		),
	)
}

// globalSettings describes a Y up, right handed scene in meters.
func globalSettings() *fbx.Node {
	props := bfbx73.Properties70()
	axes := []struct {
		name  string
		value int32
	}{
		{"UpAxis", 1}, {"UpAxisSign", 1},
		{"FrontAxis", 2}, {"FrontAxisSign", 1},
		{"CoordAxis", 0}, {"CoordAxisSign", 1},
	}
	for _, axis := range axes {
		props.AddNodes(bfbx73.P(axis.name, "int", "Integer", "", axis.value))
	}
	props.AddNodes(
		bfbx73.P("UnitScaleFactor", "double", "Number", "", float64(1)),
		bfbx73.P("TimeMode", "enum", "", "", int32(0)),
		bfbx73.P("TimeSpanStart", "KTime", "Time", "", int64(0)),
		bfbx73.P("TimeSpanStop", "KTime", "Time", "", int64(FBX_TIME_SECOND)),
	)
	return bfbx73.GlobalSettings().AddNodes(bfbx73.Version(1000), props)
}

// propertyTemplate holds defaults of one object type the exporter emits.
type propertyTemplate struct {
	objectType string
	class      string
	props      []*fbx.Node
}

func propertyTemplates() []propertyTemplate {
	return []propertyTemplate{
		{"Model", "FbxNode", []*fbx.Node{
			bfbx73.P("Lcl Translation", "Lcl Translation", "", "A", float64(0), float64(0), float64(0)),
			bfbx73.P("Lcl Rotation", "Lcl Rotation", "", "A", float64(0), float64(0), float64(0)),
			bfbx73.P("Lcl Scaling", "Lcl Scaling", "", "A", float64(1), float64(1), float64(1)),
			bfbx73.P("Visibility", "Visibility", "", "A", float64(1)),
		}},
		{"Geometry", "FbxMesh", []*fbx.Node{
			bfbx73.P("Primary Visibility", "bool", "", "", int32(1)),
		}},
		{"NodeAttribute", "FbxNull", []*fbx.Node{
			bfbx73.P("Look", "enum", "", "", int32(1)),
		}},
	}
}

func definitions() *fbx.Node {
	defs := bfbx73.Definitions().AddNodes(
		bfbx73.Version(100),
		bfbx73.Count(1),
		bfbx73.ObjectType("GlobalSettings").AddNodes(bfbx73.Count(1)),
	)
	for _, t := range propertyTemplates() {
		defs.AddNodes(bfbx73.ObjectType(t.objectType).AddNodes(
			bfbx73.Count(0),
			bfbx73.PropertyTemplate(t.class).AddNodes(bfbx73.Properties70().AddNodes(t.props...)),
		))
	}
	return defs
}

func (b *Builder) Root() *fbx.Node {
	return &b.f.Root
}

func (b *Builder) Objects() *fbx.Node     { return b.objects }
func (b *Builder) Connections() *fbx.Node { return b.connections }

// SetActiveStack names the animation stack viewers start with.
func (b *Builder) SetActiveStack(name string) {
	for _, p := range b.document.GetNode("Properties70").GetNodes("P") {
		if p.Properties[0].(string) == "ActiveAnimStackName" {
			p.Properties[len(p.Properties)-1] = name
		}
	}
}

// SetTimeSpan sets the global timeline in FBX time units.
func (b *Builder) SetTimeSpan(stop int64) {
	settings := b.Root().GetNode("GlobalSettings").GetNode("Properties70")
	for _, p := range settings.GetNodes("P") {
		if p.Properties[0].(string) == "TimeSpanStop" {
			p.Properties[len(p.Properties)-1] = stop
		}
	}
}

func (b *Builder) countDefinitions() {
	counts := make(map[string]int32)
	for _, object := range b.objects.Nodes {
		counts[object.Name]++
	}

	definitions := b.Root().GetNode("Definitions")
	totalCount := int32(1) // 1 for GlobalSettings

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		count := counts[name]
		totalCount += count

		var objectType *fbx.Node
		for _, ot := range definitions.GetNodes("ObjectType") {
			if ot.Properties[0].(string) == name {
				objectType = ot
			}
		}
		if objectType == nil {
			objectType = bfbx73.ObjectType(name)
			definitions.AddNode(objectType)
		}

		objectType.GetOrAddNode(bfbx73.Count(0)).Properties[0] = count
	}

	definitions.GetOrAddNode(bfbx73.Count(0)).Properties[0] = totalCount
}

func (b *Builder) GenerateId() int64 {
	b.lastId++
	return b.lastId
}

// TODO: write straight to w once fbx.Write stops seeking back over the output
func (b *Builder) Write(w io.Writer) error {
	b.countDefinitions()

	tempFile, err := os.CreateTemp("", "fbxexport.*.fbx")
	if err != nil {
		return err
	}
	defer tempFile.Close()
	defer os.Remove(tempFile.Name())

	if err := fbx.Write(tempFile, b.f); err != nil {
		return err
	}

	if _, err := tempFile.Seek(0, io.SeekStart); err != nil {
		return errors.Wrapf(err, "Unable to seek")
	}
	_, err = io.Copy(w, tempFile)
	return err
}

func (b *Builder) AddExportFile(name string, data []byte) {
	b.files[name] = data
}

func (b *Builder) WriteZip(w io.Writer, name string) error {
	zw := zip.NewWriter(w)

	fbxW, err := zw.Create(name)
	if err != nil {
		return errors.Wrapf(err, "Can't create zip fbx for %q", name)
	}
	if err := b.Write(fbxW); err != nil {
		return errors.Wrapf(err, "Fbx exporting failed")
	}

	files := make([]string, 0, len(b.files))
	for name := range b.files {
		files = append(files, name)
	}
	sort.Strings(files)

	for _, name := range files {
		fw, err := zw.Create(name)
		if err != nil {
			return errors.Wrapf(err, "Can't create zip for %q", name)
		}
		if _, err := fw.Write(b.files[name]); err != nil {
			return errors.Wrapf(err, "Can't write zip for %q", name)
		}
	}

	return zw.Close()
}

func (b *Builder) AddObjects(nodes ...*fbx.Node)     { b.objects.AddNodes(nodes...) }
func (b *Builder) AddConnections(nodes ...*fbx.Node) { b.connections.AddNodes(nodes...) }

// Connect links child object to parent, zero parent being the scene root.
func (b *Builder) Connect(child, parent int64) {
	b.AddConnections(bfbx73.C("OO", child, parent))
}

// ConnectProperty links child object to a property of parent.
func (b *Builder) ConnectProperty(child, parent int64, property string) {
	b.AddConnections(&fbx.Node{
		Name:       "C",
		Properties: []interface{}{"OP", child, parent, property},
	})
}
