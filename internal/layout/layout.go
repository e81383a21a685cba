// Package layout assigns 2-D positions to the visible node/edge set. Both
// engines are pure functions of their input: re-invoking with an unchanged
// visible set yields identical positions, which is what lets the diff engine
// animate transitions instead of jumping.
package layout

// Point is a position in scene coordinates.
type Point struct {
	X float64
	Y float64
}

// Placement is the computed position for one keyed node.
type Placement struct {
	Key    string
	Center Point
}

// Path is the computed curve for one keyed edge, as a polyline of control
// points from source to target.
type Path struct {
	Key    string
	Points []Point
}

// Result is the full output of one layout pass over a visible set.
type Result struct {
	Nodes  []Placement
	Edges  []Path
	Width  float64
	Height float64
}

// Node returns the placement for the given key, if present.
func (r Result) Node(key string) (Placement, bool) {
	for _, p := range r.Nodes {
		if p.Key == key {
			return p, true
		}
	}
	return Placement{}, false
}
