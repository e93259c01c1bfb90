package scene

import (
	"math"

	"github.com/mogaika/scene_interop/math3d"
)

// Sample is the interpolated state of one channel. Components without
// keys are left unset.
type Sample struct {
	Position    math3d.Vector3D
	Rotation    math3d.Quaternion
	Scaling     math3d.Vector3D
	HasPosition bool
	HasRotation bool
	HasScaling  bool
}

// Evaluator samples an animation at arbitrary times. Key lookups resume
// from the previous frame while time moves forward, so it is not safe for
// concurrent use.
type Evaluator struct {
	anim *Animation
	rate float64
	// per channel: sample time and position, rotation, scaling frame
	lastTimes  []float64
	lastFrames [][3]int
	channels   map[string]int
	samples    []Sample
}

func NewEvaluator(anim *Animation, defaultTicksPerSecond float64) *Evaluator {
	e := &Evaluator{
		anim:       anim,
		rate:       anim.Rate(defaultTicksPerSecond),
		lastTimes:  make([]float64, len(anim.Channels)),
		lastFrames: make([][3]int, len(anim.Channels)),
		channels:   make(map[string]int, len(anim.Channels)),
		samples:    make([]Sample, len(anim.Channels)),
	}
	for i, ch := range anim.Channels {
		e.channels[ch.NodeName] = i
	}
	return e
}

func (e *Evaluator) Animation() *Animation { return e.anim }

// finite maps NaN and infinities to zero.
func finite(seconds float64) float64 {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0
	}
	return seconds
}

// Ticks converts seconds to animation ticks.
func (e *Evaluator) Ticks(seconds float64) float64 {
	return seconds * e.rate
}

func (e *Evaluator) channelTime(ch *NodeAnimationChannel, ticks float64) float64 {
	duration := e.anim.Duration
	if duration <= 0 {
		return ticks
	}
	if ticks > duration && ch.PostState == BehaviourRepeat {
		return math.Mod(ticks, duration)
	}
	if ticks < 0 && ch.PreState == BehaviourRepeat {
		return math.Mod(ticks, duration) + duration
	}
	return ticks
}

// findFrame returns the key index whose span holds t, starting from the
// cached frame when time did not go backwards.
func findFrame(count int, start int, at func(i int) float64, t float64) int {
	if start >= count || start < 0 {
		start = 0
	}
	frame := start
	for frame < count-1 {
		if t < at(frame+1) {
			break
		}
		frame++
	}
	return frame
}

func interpolationFactor(t0, t1, t float64) float32 {
	diff := t1 - t0
	if diff <= 0 {
		return 0
	}
	f := (t - t0) / diff
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return float32(f)
}

func (e *Evaluator) sampleVector(keys []VectorKey, cache *int, t float64, restart bool) math3d.Vector3D {
	start := *cache
	if restart {
		start = 0
	}
	frame := findFrame(len(keys), start, func(i int) float64 { return keys[i].Time }, t)
	*cache = frame

	key := keys[frame]
	if frame+1 >= len(keys) || key.Interpolation == InterpolationStep {
		return key.Value
	}
	next := keys[frame+1]
	return key.Value.Lerp(next.Value, interpolationFactor(key.Time, next.Time, t))
}

func (e *Evaluator) sampleQuaternion(keys []QuaternionKey, cache *int, t float64, restart bool) math3d.Quaternion {
	start := *cache
	if restart {
		start = 0
	}
	frame := findFrame(len(keys), start, func(i int) float64 { return keys[i].Time }, t)
	*cache = frame

	key := keys[frame]
	if frame+1 >= len(keys) || key.Interpolation == InterpolationStep {
		return key.Value
	}
	next := keys[frame+1]
	return math3d.Slerp(key.Value, next.Value, interpolationFactor(key.Time, next.Time, t))
}

// Evaluate samples every channel at the given time in seconds. The result
// is indexed like Animation.Channels and reused by the next call.
// Non-finite times evaluate as time zero.
func (e *Evaluator) Evaluate(seconds float64) []Sample {
	ticks := e.Ticks(finite(seconds))
	for i, ch := range e.anim.Channels {
		t := e.channelTime(ch, ticks)
		restart := t < e.lastTimes[i] || math.IsNaN(e.lastTimes[i])
		e.lastTimes[i] = t
		frames := &e.lastFrames[i]
		s := Sample{}

		if len(ch.PositionKeys) != 0 {
			s.Position = e.sampleVector(ch.PositionKeys, &frames[0], t, restart)
			s.HasPosition = true
		}
		if len(ch.RotationKeys) != 0 {
			s.Rotation = e.sampleQuaternion(ch.RotationKeys, &frames[1], t, restart)
			s.HasRotation = true
		}
		if len(ch.ScalingKeys) != 0 {
			s.Scaling = e.sampleVector(ch.ScalingKeys, &frames[2], t, restart)
			s.HasScaling = true
		}
		e.samples[i] = s
	}
	return e.samples
}

// Local returns the sampled transform of the channel animating node, using
// base for components the channel has no keys for.
func (e *Evaluator) Local(node string, base math3d.Matrix4x4) (math3d.Matrix4x4, bool) {
	i, ok := e.channels[node]
	if !ok {
		return base, false
	}
	s := e.samples[i]
	if !s.HasPosition && !s.HasRotation && !s.HasScaling {
		return base, true
	}
	scaling, rotation, position := base.Decompose()
	if s.HasPosition {
		position = s.Position
	}
	if s.HasRotation {
		rotation = s.Rotation
	}
	if s.HasScaling {
		scaling = s.Scaling
	}
	return math3d.FromTRS(position, rotation, scaling), true
}

// Pose holds node transforms of a scene at one point in time.
type Pose struct {
	Time   float64
	Ticks  float64
	Local  map[string]math3d.Matrix4x4
	Global map[string]math3d.Matrix4x4
}

// Pose evaluates the animation at seconds and applies it to the hierarchy of s.
func (e *Evaluator) Pose(s *Scene, seconds float64) *Pose {
	seconds = finite(seconds)
	e.Evaluate(seconds)

	p := &Pose{
		Time:   seconds,
		Ticks:  e.Ticks(seconds),
		Local:  make(map[string]math3d.Matrix4x4),
		Global: make(map[string]math3d.Matrix4x4),
	}
	if s.RootNode == nil {
		return p
	}

	var apply func(n *Node, parent math3d.Matrix4x4)
	apply = func(n *Node, parent math3d.Matrix4x4) {
		local, _ := e.Local(n.Name, n.Transform)
		global := parent.Mul(local)
		p.Local[n.Name] = local
		p.Global[n.Name] = global
		for _, child := range n.Children {
			apply(child, global)
		}
	}
	apply(s.RootNode, math3d.Identity4x4())
	return p
}
