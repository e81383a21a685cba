package layout

// Default dimensions for the tree grid layout.
const (
	DefaultRowHeight = 25.0
	DefaultIndent    = 25.0
)

// Row is one visible tree node handed to the grid layout, in traversal
// order. ParentKey is empty for the root.
type Row struct {
	Key       string
	ParentKey string
	Depth     int
}

// TreeGrid is the tree view's fixed-depth row layout: each visible node gets
// a row index by traversal order and a column proportional to its depth.
// Links are drawn as elbow diagonals from parent to child.
type TreeGrid struct {
	RowHeight float64
	Indent    float64
	Margin    float64
}

// NewTreeGrid returns a grid layout with the default row dimensions.
func NewTreeGrid() TreeGrid {
	return TreeGrid{
		RowHeight: DefaultRowHeight,
		Indent:    DefaultIndent,
		Margin:    DefaultMargin,
	}
}

// Layout positions the given rows. Row order and depth fully determine the
// output, so an unchanged visible set yields unchanged positions.
func (t TreeGrid) Layout(rows []Row) Result {
	res := Result{}
	centers := make(map[string]Point, len(rows))
	maxDepth := 0

	for i, row := range rows {
		c := Point{
			X: t.Margin + float64(row.Depth)*t.Indent,
			Y: t.Margin + float64(i)*t.RowHeight,
		}
		centers[row.Key] = c
		res.Nodes = append(res.Nodes, Placement{Key: row.Key, Center: c})
		if row.Depth > maxDepth {
			maxDepth = row.Depth
		}
	}

	// One link per non-root row, keyed by the child: an elbow running down
	// from the parent, then across to the child.
	for _, row := range rows {
		if row.ParentKey == "" {
			continue
		}
		parent, ok := centers[row.ParentKey]
		if !ok {
			continue
		}
		child := centers[row.Key]
		elbow := Point{X: parent.X, Y: child.Y}
		res.Edges = append(res.Edges, Path{Key: row.Key, Points: []Point{parent, elbow, child}})
	}

	res.Width = t.Margin*2 + float64(maxDepth)*t.Indent
	res.Height = t.Margin * 2
	if len(rows) > 0 {
		res.Height += float64(len(rows)-1) * t.RowHeight
	}
	return res
}
