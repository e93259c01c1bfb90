package web

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/scene_interop/config"
	"github.com/mogaika/scene_interop/scene"
	_ "github.com/mogaika/scene_interop/scene/fbxio"
	_ "github.com/mogaika/scene_interop/scene/gltfio"
	"github.com/mogaika/scene_interop/webutils"
)

var ErrNotFound = errors.New("not found")

type Server struct {
	cfg *config.Config
	log *zap.Logger

	lock   sync.Mutex
	scenes map[string]*scene.Scene
}

func NewServer(cfg *config.Config, log *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		log:    log,
		scenes: make(map[string]*scene.Scene),
	}
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/json/scenes", s.HandlerScenes)
	r.HandleFunc("/json/scene/{file}", s.HandlerScene)
	r.HandleFunc("/json/scene/{file}/pose/{anim}", s.HandlerPose)
	r.HandleFunc("/json/rotscript", s.HandlerRotScript).Methods(http.MethodPost)
	r.HandleFunc("/action/{file}/{action}", s.HandlerAction)
	r.HandleFunc("/ws/scene/{file}/{anim}", s.HandlerStream)

	out := zap.NewStdLog(s.log.Named("http")).Writer()
	return handlers.LoggingHandler(out, handlers.RecoveryHandler()(r))
}

func StartServer(cfg *config.Config, log *zap.Logger) error {
	webutils.Logger = log.Named("web")
	s := NewServer(cfg, log)
	log.Info("Starting server", zap.String("addr", cfg.Server.Addr), zap.String("root", cfg.Server.Root))
	return http.ListenAndServe(cfg.Server.Addr, s.Router())
}

// List returns importable files in the root directory.
func (s *Server) List() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.Server.Root)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to list %q", s.cfg.Server.Root)
	}
	files := make([]string, 0)
	for _, e := range entries {
		if !e.IsDir() && scene.CanImport(e.Name()) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Scene loads and caches a scene from the root directory.
func (s *Server) Scene(file string) (*scene.Scene, error) {
	if file != filepath.Base(file) || strings.HasPrefix(file, ".") {
		return nil, errors.Wrapf(ErrNotFound, "invalid file name %q", file)
	}
	if !scene.CanImport(file) {
		return nil, errors.Wrapf(ErrNotFound, "unsupported file %q", file)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if sc, ok := s.scenes[file]; ok {
		return sc, nil
	}

	sc, err := s.load(filepath.Join(s.cfg.Server.Root, file))
	if err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, errors.Wrapf(err, "Invalid scene %q", file)
	}
	s.log.Info("Loaded scene", zap.String("file", file),
		zap.Int("nodes", len(sc.Nodes())), zap.Int("animations", len(sc.Animations)))
	s.scenes[file] = sc
	return sc, nil
}

func (s *Server) load(path string) (*scene.Scene, error) {
	sc, err := scene.ImportFile(path)
	if os.IsNotExist(errors.Cause(err)) {
		return nil, errors.Wrapf(ErrNotFound, "%v", err)
	}
	return sc, err
}
