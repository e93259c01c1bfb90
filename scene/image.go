package scene

import (
	"io"

	"github.com/pkg/errors"

	"github.com/mogaika/scene_interop/interop"
)

// ImageRootName names the synthetic root of scenes read from images.
const ImageRootName = "RootNode"

// ImportImage reads animations from a native memory image. Images carry
// no hierarchy, so every animated node becomes a child of a synthetic root.
func ImportImage(r io.Reader, name string) (*Scene, error) {
	img, err := interop.ReadImage(r)
	if err != nil {
		return nil, err
	}
	anims, err := UnmarshalAnimations(img, img.Root)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to unmarshal animations")
	}

	s := &Scene{RootNode: NewNode(ImageRootName), Animations: anims}
	for _, anim := range anims {
		for _, ch := range anim.Channels {
			if s.FindNode(ch.NodeName) == nil {
				s.RootNode.AddChild(NewNode(ch.NodeName))
			}
		}
	}
	return s, nil
}

func ExportImage(w io.Writer, s *Scene) error {
	img, err := MarshalAnimations(s.Animations, interop.DefaultImageBase)
	if err != nil {
		return err
	}
	_, err = img.WriteTo(w)
	return err
}

func init() {
	SetImporter(".nimg", func(r io.ReadSeeker, name string) (*Scene, error) {
		return ImportImage(r, name)
	})
	SetExporter(".nimg", ExportImage)
}
