package api

import "strconv"

// StatusCode is an immutable numeric lifecycle state. Codes are unique within
// one domain (application and loan workflows use separate code spaces); the
// engine treats them as opaque lookup values.
type StatusCode int

func (s StatusCode) String() string {
	return strconv.Itoa(int(s))
}

// PathType classifies a transition edge.
type PathType string

const (
	// PathHappy is the expected forward progression.
	PathHappy PathType = "happy"
	// PathUnhappy is a rejection or failure branch.
	PathUnhappy PathType = "unhappy"
	// PathDetour is a temporary side excursion (e.g. resubmission).
	PathDetour PathType = "detour"
	// PathGraveyard leads into a terminal state.
	PathGraveyard PathType = "graveyard"
)

// StatusDefinition binds a code to its human label within one workflow.
type StatusDefinition struct {
	Code  StatusCode `validate:"gte=0"`
	Label string     `validate:"required"`
}

// PathDefinition is a single legal edge between two statuses.
//
// Within one workflow an edge is uniquely identified by (From, To); multiple
// edges may share From (branching) but the engine always receives an explicit
// target, so no tie-break happens at edge level. Inactive edges stay in
// storage for reporting but never match during validation.
type PathDefinition struct {
	From            StatusCode `validate:"gte=0"`
	To              StatusCode `validate:"gte=0"`
	Type            PathType   `validate:"required,oneof=happy unhappy detour graveyard"`
	Active          bool
	AgentAccessible bool
}

// NodeDefinition binds a status to the handler invoked on arrival.
// At most one handler per (workflow, status); a status with no node is legal
// and transitions into it succeed with no side effects.
type NodeDefinition struct {
	Status    StatusCode `validate:"gte=0"`
	HandlerID string     `validate:"required"`
}

// ReasonDefinition lists the catalogued change reasons for one target status.
// The catalog is soft: an uncatalogued reason is reported as a warning, never
// rejected.
type ReasonDefinition struct {
	Status  StatusCode `validate:"gte=0"`
	Reasons []string   `validate:"min=1,dive,required"`
}

// WorkflowDefinition describes one product line's status graph.
// Exactly one definition per workflow name should be active at a time;
// history may reference an inactive snapshot.
type WorkflowDefinition struct {
	Name     string `validate:"required"`
	Version  string
	Active   bool
	Statuses []StatusDefinition `validate:"dive"`
	Paths    []PathDefinition   `validate:"min=1,dive"`
	Nodes    []NodeDefinition   `validate:"dive"`
	Reasons  []ReasonDefinition `validate:"dive"`
}
