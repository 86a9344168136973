package entities

// LinkKind is the category of a FactLink.
type LinkKind string

const (
	LinkTemporal LinkKind = "temporal"
	LinkSemantic LinkKind = "semantic"
	LinkCausal   LinkKind = "causal"
)

// FactLink is a directed edge between two units. Weight is always in
// [0, 1]. Metadata carries the causal sub-kind for causal links and is
// empty for temporal/semantic links.
type FactLink struct {
	SrcUnitID string
	DstUnitID string
	Kind      LinkKind
	Weight    float64
	Metadata  string
}
