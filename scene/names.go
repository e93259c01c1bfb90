package scene

import (
	"fmt"
	"math/rand"

	"github.com/Pallinder/go-randomdata"
)

// NameGenerator hands out node names unique within one scene.
// Empty names get a random silly name, repeated names get a numeric suffix.
type NameGenerator map[string]struct{}

func (ng *NameGenerator) init() {
	if *ng == nil {
		*ng = make(map[string]struct{})
		randomdata.CustomRand(rand.New(rand.NewSource(0)))
	}
}

func (ng *NameGenerator) Reserve(name string) {
	ng.init()
	(*ng)[name] = struct{}{}
}

func (ng *NameGenerator) RandomName() string {
	ng.init()
	for {
		name := randomdata.SillyName()
		if _, exists := (*ng)[name]; !exists {
			(*ng)[name] = struct{}{}
			return name
		}
	}
}

func (ng *NameGenerator) Unique(name string) string {
	if name == "" {
		return ng.RandomName()
	}
	ng.init()
	candidate := name
	for i := 1; ; i++ {
		if _, exists := (*ng)[candidate]; !exists {
			(*ng)[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", name, i)
	}
}
