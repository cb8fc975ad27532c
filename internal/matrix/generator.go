package matrix

import (
	"fmt"
	"math/rand"
	"sort"
)

// Generator produces a matrix of the given size.
type Generator interface {
	Generate(size int) Matrix
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(size int) Matrix

func (f GeneratorFunc) Generate(size int) Matrix { return f(size) }

// Random fills every entry uniformly from [-1, 1).
func Random(rng *rand.Rand) Generator {
	return GeneratorFunc(func(size int) Matrix {
		m := NewDense(size)
		for i := range m.values {
			m.values[i] = 2*rng.Float64() - 1
		}
		return m
	})
}

// Zero produces all-zero matrices.
func Zero() Generator {
	return GeneratorFunc(func(size int) Matrix { return NewDense(size) })
}

// Symmetric produces random matrices with m(i,j) == m(j,i).
func Symmetric(rng *rand.Rand) Generator {
	return GeneratorFunc(func(size int) Matrix {
		m := NewDense(size)
		for i := 0; i < size; i++ {
			for j := i; j < size; j++ {
				v := 2*rng.Float64() - 1
				m.Set(i, j, v)
				m.Set(j, i, v)
			}
		}
		return m
	})
}

// Chains makes each type cling to itself and follow the next type, forming
// snake-like chains.
func Chains() Generator {
	return GeneratorFunc(func(size int) Matrix {
		m := NewDense(size)
		for i := 0; i < size; i++ {
			m.Set(i, i, 1)
			if size > 1 {
				m.Set(i, (i+1)%size, 0.2)
			}
		}
		return m
	})
}

var generators = map[string]func(rng *rand.Rand) Generator{
	"random":    Random,
	"zero":      func(*rand.Rand) Generator { return Zero() },
	"symmetric": Symmetric,
	"chains":    func(*rand.Rand) Generator { return Chains() },
}

// Lookup returns the named generator drawing from rng.
func Lookup(name string, rng *rand.Rand) (Generator, error) {
	fn, ok := generators[name]
	if !ok {
		return nil, fmt.Errorf("unknown matrix generator: %s", name)
	}
	return fn(rng), nil
}

// Names lists the registered generators in sorted order.
func Names() []string {
	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
