package graph

// Op tags a recorded change.
type Op string

const (
	OpAdd           Op = "add"
	OpRemove        Op = "remove"
	OpMoved         Op = "moved"
	OpScaled        Op = "scaled"
	OpRotated       Op = "rotated"
	OpGroup         Op = "group"
	OpUngroup       Op = "ungroup"
	OpPaste         Op = "paste"
	OpReorder       Op = "reorder"
	OpPorts         Op = "ports"
	OpClear         Op = "clear"
	OpImport        Op = "import"
	OpLayout        Op = "layout"
	OpConfiguration Op = "configuration"
)

// Structural reports whether op enters the undo history. Configuration edits
// only refresh sticky fields.
func (op Op) Structural() bool {
	return op != OpConfiguration
}
