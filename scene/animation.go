package scene

import (
	"github.com/pkg/errors"

	"github.com/mogaika/scene_interop/math3d"
)

type Interpolation int32

const (
	InterpolationStep Interpolation = iota
	InterpolationLinear
	InterpolationSphericalLinear
	InterpolationCubicSpline
)

func (i Interpolation) String() string {
	switch i {
	case InterpolationStep:
		return "step"
	case InterpolationLinear:
		return "linear"
	case InterpolationSphericalLinear:
		return "slerp"
	case InterpolationCubicSpline:
		return "cubic"
	default:
		return "unknown"
	}
}

// AnimationBehaviour tells what a channel does outside its key range.
type AnimationBehaviour int32

const (
	// hold the nearest key, like BehaviourConstant
	BehaviourDefault AnimationBehaviour = iota
	// hold the nearest key
	BehaviourConstant
	// behaves like BehaviourConstant, extrapolation is not implemented
	BehaviourLinear
	// wrap time by the animation duration
	BehaviourRepeat
)

// VectorKey matches the native 24 byte layout, padding included.
type VectorKey struct {
	Time          float64
	Value         math3d.Vector3D
	Interpolation Interpolation
}

type QuaternionKey struct {
	Time          float64
	Value         math3d.Quaternion
	Interpolation Interpolation
}

type NodeAnimationChannel struct {
	NodeName     string
	PositionKeys []VectorKey     `json:",omitempty"`
	RotationKeys []QuaternionKey `json:",omitempty"`
	ScalingKeys  []VectorKey     `json:",omitempty"`
	PreState     AnimationBehaviour
	PostState    AnimationBehaviour
}

// Animation times are in ticks.
type Animation struct {
	Name           string
	Duration       float64
	TicksPerSecond float64
	Channels       []*NodeAnimationChannel
}

// Rate returns ticks per second, falling back to def when unset.
func (a *Animation) Rate(def float64) float64 {
	if a.TicksPerSecond > 0 {
		return a.TicksPerSecond
	}
	return def
}

func (a *Animation) DurationSeconds(def float64) float64 {
	return a.Duration / a.Rate(def)
}

func (a *Animation) Channel(nodeName string) *NodeAnimationChannel {
	for _, ch := range a.Channels {
		if ch.NodeName == nodeName {
			return ch
		}
	}
	return nil
}

// LastKeyTime is the largest key time over every channel.
func (a *Animation) LastKeyTime() float64 {
	var last float64
	for _, ch := range a.Channels {
		if n := len(ch.PositionKeys); n > 0 && ch.PositionKeys[n-1].Time > last {
			last = ch.PositionKeys[n-1].Time
		}
		if n := len(ch.RotationKeys); n > 0 && ch.RotationKeys[n-1].Time > last {
			last = ch.RotationKeys[n-1].Time
		}
		if n := len(ch.ScalingKeys); n > 0 && ch.ScalingKeys[n-1].Time > last {
			last = ch.ScalingKeys[n-1].Time
		}
	}
	return last
}

func (a *Animation) Validate() error {
	if a.Duration < 0 {
		return errors.Errorf("animation %q has negative duration %v", a.Name, a.Duration)
	}
	if a.TicksPerSecond < 0 {
		return errors.Errorf("animation %q has negative tick rate %v", a.Name, a.TicksPerSecond)
	}

	seen := make(map[string]struct{})
	for _, ch := range a.Channels {
		if _, exists := seen[ch.NodeName]; exists {
			return errors.Errorf("animation %q has several channels for node %q", a.Name, ch.NodeName)
		}
		seen[ch.NodeName] = struct{}{}

		if err := checkSorted(len(ch.PositionKeys), func(i int) float64 { return ch.PositionKeys[i].Time }); err != nil {
			return errors.Wrapf(err, "animation %q node %q position keys", a.Name, ch.NodeName)
		}
		if err := checkSorted(len(ch.RotationKeys), func(i int) float64 { return ch.RotationKeys[i].Time }); err != nil {
			return errors.Wrapf(err, "animation %q node %q rotation keys", a.Name, ch.NodeName)
		}
		if err := checkSorted(len(ch.ScalingKeys), func(i int) float64 { return ch.ScalingKeys[i].Time }); err != nil {
			return errors.Wrapf(err, "animation %q node %q scaling keys", a.Name, ch.NodeName)
		}
	}
	return nil
}

func checkSorted(n int, at func(i int) float64) error {
	for i := 1; i < n; i++ {
		if at(i) < at(i-1) {
			return errors.Errorf("key %d time %v is before key %d time %v", i, at(i), i-1, at(i-1))
		}
	}
	return nil
}
