package experiment

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/san-kum/plife/internal/matrix"
	"github.com/san-kum/plife/internal/physics"
)

// Registry maps config names to matrix generators and particle setters.
type Registry struct {
	positions   map[string]func(*rand.Rand) physics.PositionSetter
	typeSetters map[string]func(*rand.Rand) physics.TypeSetter
}

func NewRegistry() *Registry {
	r := &Registry{
		positions:   make(map[string]func(*rand.Rand) physics.PositionSetter),
		typeSetters: make(map[string]func(*rand.Rand) physics.TypeSetter),
	}

	r.positions["uniform"] = physics.UniformPositions
	r.positions["centered"] = physics.CenteredPositions
	r.positions["ring"] = physics.RingPositions

	r.typeSetters["random"] = physics.RandomTypes
	r.typeSetters["keep"] = func(*rand.Rand) physics.TypeSetter { return physics.KeepTypes() }

	return r
}

func (r *Registry) GetGenerator(name string, rng *rand.Rand) (matrix.Generator, error) {
	return matrix.Lookup(name, rng)
}

func (r *Registry) GetPositions(name string, rng *rand.Rand) (physics.PositionSetter, error) {
	fn, ok := r.positions[name]
	if !ok {
		return nil, fmt.Errorf("unknown position setter: %s", name)
	}
	return fn(rng), nil
}

func (r *Registry) GetTypeSetter(name string, rng *rand.Rand) (physics.TypeSetter, error) {
	fn, ok := r.typeSetters[name]
	if !ok {
		return nil, fmt.Errorf("unknown type setter: %s", name)
	}
	return fn(rng), nil
}

func (r *Registry) ListGenerators() []string { return matrix.Names() }

func (r *Registry) ListPositions() []string { return sortedKeys(r.positions) }

func (r *Registry) ListTypeSetters() []string { return sortedKeys(r.typeSetters) }

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
