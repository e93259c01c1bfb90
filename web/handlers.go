package web

import (
	"bytes"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/mogaika/scene_interop/rotscript"
	"github.com/mogaika/scene_interop/scene"
	"github.com/mogaika/scene_interop/webutils"
)

const maxScriptSize = 64 << 10

type nodeSummary struct {
	Name      string
	Parent    string `json:",omitempty"`
	Depth     int
	Transform [16]float32
	Meshes    []int `json:",omitempty"`
}

type meshSummary struct {
	Name      string
	Vertices  int
	Triangles int
	Normals   bool
}

type animationSummary struct {
	Name           string
	Duration       float64
	TicksPerSecond float64
	Seconds        float64
	Channels       []string
}

type sceneSummary struct {
	Name       string
	Nodes      []nodeSummary
	Meshes     []meshSummary
	Animations []animationSummary
	Exports    []string
}

type nodePose struct {
	Local  [16]float32
	Global [16]float32
}

type poseResponse struct {
	Animation string
	Time      float64
	Ticks     float64
	Nodes     map[string]nodePose
}

func (s *Server) writeSceneError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		webutils.WriteErrorStatus(w, http.StatusNotFound, err)
	} else {
		webutils.WriteError(w, err)
	}
}

func (s *Server) summarize(sc *scene.Scene) *sceneSummary {
	sum := &sceneSummary{
		Name:       sc.Name,
		Nodes:      make([]nodeSummary, 0),
		Meshes:     make([]meshSummary, 0, len(sc.Meshes)),
		Animations: make([]animationSummary, 0, len(sc.Animations)),
		Exports:    scene.ExportExtensions(),
	}
	sc.RootNode.Walk(func(node *scene.Node, depth int) error {
		ns := nodeSummary{
			Name:      node.Name,
			Depth:     depth,
			Transform: node.Transform.Array(),
			Meshes:    node.MeshIndices,
		}
		if node.Parent != nil {
			ns.Parent = node.Parent.Name
		}
		sum.Nodes = append(sum.Nodes, ns)
		return nil
	})
	for _, mesh := range sc.Meshes {
		sum.Meshes = append(sum.Meshes, meshSummary{
			Name:      mesh.Name,
			Vertices:  len(mesh.Vertices),
			Triangles: len(mesh.Indices) / 3,
			Normals:   mesh.Normals != nil,
		})
	}
	def := s.cfg.Animation.DefaultTicksPerSecond
	for _, anim := range sc.Animations {
		as := animationSummary{
			Name:           anim.Name,
			Duration:       anim.Duration,
			TicksPerSecond: anim.Rate(def),
			Seconds:        anim.DurationSeconds(def),
			Channels:       make([]string, len(anim.Channels)),
		}
		for i, ch := range anim.Channels {
			as.Channels[i] = ch.NodeName
		}
		sum.Animations = append(sum.Animations, as)
	}
	return sum
}

func newPoseResponse(anim *scene.Animation, p *scene.Pose) *poseResponse {
	resp := &poseResponse{
		Animation: anim.Name,
		Time:      p.Time,
		Ticks:     p.Ticks,
		Nodes:     make(map[string]nodePose, len(p.Local)),
	}
	for name, local := range p.Local {
		resp.Nodes[name] = nodePose{Local: local.Array(), Global: p.Global[name].Array()}
	}
	return resp
}

func (s *Server) HandlerScenes(w http.ResponseWriter, r *http.Request) {
	files, err := s.List()
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteJson(w, files)
}

func (s *Server) HandlerScene(w http.ResponseWriter, r *http.Request) {
	sc, err := s.Scene(mux.Vars(r)["file"])
	if err != nil {
		s.writeSceneError(w, err)
		return
	}
	webutils.WriteJson(w, s.summarize(sc))
}

// animation resolves the scene and animation named by the route.
func (s *Server) animation(r *http.Request) (*scene.Scene, *scene.Animation, error) {
	vars := mux.Vars(r)
	sc, err := s.Scene(vars["file"])
	if err != nil {
		return nil, nil, err
	}
	anim := sc.FindAnimation(vars["anim"])
	if anim == nil {
		return nil, nil, errors.Wrapf(ErrNotFound, "animation %q in %q", vars["anim"], vars["file"])
	}
	return sc, anim, nil
}

func (s *Server) HandlerPose(w http.ResponseWriter, r *http.Request) {
	sc, anim, err := s.animation(r)
	if err != nil {
		s.writeSceneError(w, err)
		return
	}

	var seconds float64
	if t := r.URL.Query().Get("t"); t != "" {
		if seconds, err = strconv.ParseFloat(t, 64); err != nil {
			webutils.WriteErrorStatus(w, http.StatusBadRequest, errors.Wrapf(err, "Invalid time %q", t))
			return
		}
		if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
			webutils.WriteErrorStatus(w, http.StatusBadRequest, errors.Errorf("Time %q is not finite", t))
			return
		}
	}

	e := scene.NewEvaluator(anim, s.cfg.Animation.DefaultTicksPerSecond)
	webutils.WriteJson(w, newPoseResponse(anim, e.Pose(sc, seconds)))
}

func (s *Server) HandlerAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	file, action := vars["file"], vars["action"]

	sc, err := s.Scene(file)
	if err != nil {
		s.writeSceneError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := scene.Export(&buf, action, sc); err != nil {
		webutils.WriteErrorStatus(w, http.StatusBadRequest, errors.Wrapf(err, "Action %q", action))
		return
	}
	webutils.WriteFile(w, &buf, sc.Name+"."+strings.TrimPrefix(strings.ToLower(action), "."))
}

// HandlerRotScript evaluates a rotation script posted as the request body.
func (s *Server) HandlerRotScript(w http.ResponseWriter, r *http.Request) {
	text, err := io.ReadAll(io.LimitReader(r.Body, maxScriptSize))
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	result, err := rotscript.Eval(text)
	if err != nil {
		webutils.WriteErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	webutils.WriteJson(w, result)
}
