package utilityfn

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// Axis is an evenly spaced range of values for one argument.
type Axis struct {
	Name  string
	Lo    float64
	Hi    float64
	Steps int
}

// ParseAxis reads "name=lo:hi:steps".
func ParseAxis(s string) (Axis, error) {
	name, spec, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return Axis{}, fmt.Errorf("axis %q: want name=lo:hi:steps", s)
	}
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return Axis{}, fmt.Errorf("axis %q: want name=lo:hi:steps", s)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Axis{}, fmt.Errorf("axis %q: lo: %w", s, err)
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Axis{}, fmt.Errorf("axis %q: hi: %w", s, err)
	}
	steps, err := strconv.Atoi(parts[2])
	if err != nil {
		return Axis{}, fmt.Errorf("axis %q: steps: %w", s, err)
	}
	if steps < 1 {
		return Axis{}, fmt.Errorf("axis %q: steps must be at least 1", s)
	}
	return Axis{Name: strings.TrimSpace(name), Lo: lo, Hi: hi, Steps: steps}, nil
}

func (a Axis) values() []float64 {
	if a.Steps == 1 {
		return []float64{a.Lo}
	}
	out := make([]float64, a.Steps)
	step := (a.Hi - a.Lo) / float64(a.Steps-1)
	for i := range out {
		out[i] = a.Lo + step*float64(i)
	}
	out[len(out)-1] = a.Hi
	return out
}

// ExpandGrid returns the cartesian product of axes layered over base. The
// first axis varies slowest.
func ExpandGrid(base Args, axes ...Axis) []Args {
	points := []Args{maps.Clone(base)}
	if points[0] == nil {
		points[0] = Args{}
	}
	for _, axis := range axes {
		next := make([]Args, 0, len(points)*axis.Steps)
		for _, p := range points {
			for _, v := range axis.values() {
				point := maps.Clone(p)
				point[axis.Name] = v
				next = append(next, point)
			}
		}
		points = next
	}
	return points
}

// ParseArgs reads "name=value" pairs into Args.
func ParseArgs(pairs []string) (Args, error) {
	args := make(Args, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("argument %q: want name=value", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", pair, err)
		}
		args[name] = v
	}
	return args, nil
}
