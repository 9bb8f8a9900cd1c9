package statusflow

import (
	"fmt"

	"github.com/sajinavi2006/julomvp-sub065/pkg/api"
)

// WorkflowBuilder provides a fluent API for defining status graphs:
//
//	flow := statusflow.New("loan-origination", "1").
//	    Status(100, "FORM_CREATED").
//	    Status(105, "FORM_PARTIAL").
//	    Status(135, "APPLICATION_DENIED").
//	    Path(100, 105, statusflow.PathHappy).
//	    Path(105, 135, statusflow.PathUnhappy).
//	    Node(105, "trigger_form_partial").
//	    Reasons(135, "income_too_low", "blacklisted")
//
//	if err := flow.Register(engine); err != nil {
//	    log.Fatal(err)
//	}
type WorkflowBuilder struct {
	def api.WorkflowDefinition
}

// New creates a new workflow builder with the given name and version.
func New(name, version string) *WorkflowBuilder {
	return &WorkflowBuilder{
		def: api.WorkflowDefinition{
			Name:    name,
			Version: version,
			Active:  true,
			Paths:   make([]api.PathDefinition, 0),
		},
	}
}

// Name returns the workflow name.
func (b *WorkflowBuilder) Name() string {
	return b.def.Name
}

// Definition returns the underlying WorkflowDefinition.
// Typically used when interacting with lower-level APIs.
func (b *WorkflowBuilder) Definition() WorkflowDefinition {
	return b.def
}

// Status declares a status code with its symbolic label.
func (b *WorkflowBuilder) Status(code StatusCode, label string) *WorkflowBuilder {
	b.def.Statuses = append(b.def.Statuses, api.StatusDefinition{
		Code:  code,
		Label: label,
	})
	return b
}

// Path appends an active edge of the given path type.
func (b *WorkflowBuilder) Path(from, to StatusCode, pt PathType) *WorkflowBuilder {
	if pt == "" {
		panic(fmt.Sprintf("statusflow: path %d->%d has empty path type", from, to))
	}
	b.def.Paths = append(b.def.Paths, api.PathDefinition{
		From:   from,
		To:     to,
		Type:   pt,
		Active: true,
	})
	return b
}

// AgentPath is Path with the edge additionally marked as triggerable by
// human agents from a review UI.
func (b *WorkflowBuilder) AgentPath(from, to StatusCode, pt PathType) *WorkflowBuilder {
	if pt == "" {
		panic(fmt.Sprintf("statusflow: path %d->%d has empty path type", from, to))
	}
	b.def.Paths = append(b.def.Paths, api.PathDefinition{
		From:            from,
		To:              to,
		Type:            pt,
		Active:          true,
		AgentAccessible: true,
	})
	return b
}

// InactivePath records a retired edge. Inactive edges are kept for
// provenance but never legalize a transition.
func (b *WorkflowBuilder) InactivePath(from, to StatusCode, pt PathType) *WorkflowBuilder {
	b.def.Paths = append(b.def.Paths, api.PathDefinition{
		From: from,
		To:   to,
		Type: pt,
	})
	return b
}

// Node binds a handler identifier to a status. The handler itself is
// registered separately via Engine.RegisterHandler.
func (b *WorkflowBuilder) Node(status StatusCode, handlerID string) *WorkflowBuilder {
	if handlerID == "" {
		panic(fmt.Sprintf("statusflow: node %d has empty handler identifier", status))
	}
	b.def.Nodes = append(b.def.Nodes, api.NodeDefinition{
		Status:    status,
		HandlerID: handlerID,
	})
	return b
}

// Reasons declares the change reasons accepted when entering a status.
// Statuses without declared reasons accept any reason without warning.
func (b *WorkflowBuilder) Reasons(status StatusCode, reasons ...string) *WorkflowBuilder {
	b.def.Reasons = append(b.def.Reasons, api.ReasonDefinition{
		Status:  status,
		Reasons: reasons,
	})
	return b
}

// Register registers the built workflow with the given engine.
func (b *WorkflowBuilder) Register(eng Engine) error {
	return eng.RegisterWorkflow(b.def)
}

// MustRegister is like Register but panics on error.
// Useful for initialization in main().
func (b *WorkflowBuilder) MustRegister(eng Engine) {
	if err := b.Register(eng); err != nil {
		panic(err)
	}
}
