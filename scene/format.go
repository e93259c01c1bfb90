package scene

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

type Importer func(r io.ReadSeeker, name string) (*Scene, error)
type Exporter func(w io.Writer, s *Scene) error

// FileImporter reads formats that reference other files next to path.
type FileImporter func(path string) (*Scene, error)

var gImporters = make(map[string]Importer)
var gExporters = make(map[string]Exporter)
var gFileImporters = make(map[string]FileImporter)

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func SetImporter(ext string, imp Importer) {
	gImporters[normalizeExt(ext)] = imp
}

func SetFileImporter(ext string, imp FileImporter) {
	gFileImporters[normalizeExt(ext)] = imp
}

func SetExporter(ext string, exp Exporter) {
	gExporters[normalizeExt(ext)] = exp
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func ImportExtensions() []string { return sortedKeys(gImporters) }
func ExportExtensions() []string { return sortedKeys(gExporters) }

func CanImport(name string) bool {
	_, ok := gImporters[normalizeExt(filepath.Ext(name))]
	return ok
}

// Import picks an importer by the extension of name.
func Import(r io.ReadSeeker, name string) (*Scene, error) {
	ext := normalizeExt(filepath.Ext(name))
	imp, ok := gImporters[ext]
	if !ok {
		return nil, errors.Errorf("Unknown scene format %q (known %v)", ext, ImportExtensions())
	}
	s, err := imp(r, name)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to import %q", name)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}
	return s, nil
}

// ImportFile loads path through a file importer when its format has one,
// through Import otherwise.
func ImportFile(path string) (*Scene, error) {
	if imp, ok := gFileImporters[normalizeExt(filepath.Ext(path))]; ok {
		s, err := imp(path)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to import %q", path)
		}
		if s.Name == "" {
			s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		return s, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Import(f, path)
}

func Export(w io.Writer, ext string, s *Scene) error {
	ext = normalizeExt(ext)
	exp, ok := gExporters[ext]
	if !ok {
		return errors.Errorf("Unknown export format %q (known %v)", ext, ExportExtensions())
	}
	return errors.Wrapf(exp(w, s), "Failed to export %q as %s", s.Name, ext)
}
