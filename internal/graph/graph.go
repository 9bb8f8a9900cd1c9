// Package graph holds the workflow graph store: per-workflow status edges,
// handler bindings, and the change-reason catalog. The store is read-mostly;
// every lookup on the request path is a single map access keyed by
// (workflow, from, to) or (workflow, status).
package graph

import (
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/sajinavi2006/julomvp-sub065/pkg/api"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Store is the read surface consumed by the engine. Unknown workflows fail
// closed: EdgeLegal returns false, HandlerFor returns no binding.
type Store interface {
	// EdgeLegal reports whether (from -> to) is an active edge.
	EdgeLegal(workflow string, from, to api.StatusCode) bool

	// Edge returns the full edge definition, active edges only.
	Edge(workflow string, from, to api.StatusCode) (api.PathDefinition, bool)

	// HandlerFor returns the handler identifier bound to a status, if any.
	HandlerFor(workflow string, status api.StatusCode) (string, bool)

	// NextStatuses returns targets of the active outgoing edges from a
	// status, ascending. Empty means the status is terminal.
	NextStatuses(workflow string, from api.StatusCode) []api.StatusCode

	// AgentNextStatuses is NextStatuses restricted to agent-accessible
	// edges, for back-office surfaces.
	AgentNextStatuses(workflow string, from api.StatusCode) []api.StatusCode

	// ReasonKnown reports whether the reason is catalogued for the target
	// status. An empty catalog accepts any reason.
	ReasonKnown(status api.StatusCode, reason string) bool

	// ReasonsFor returns the catalogued reasons for a target status.
	ReasonsFor(status api.StatusCode) []string

	// Workflow returns the stored definition by name.
	Workflow(name string) (api.WorkflowDefinition, bool)
}

type edgeKey struct {
	workflow string
	from     api.StatusCode
	to       api.StatusCode
}

type nodeKey struct {
	workflow string
	status   api.StatusCode
}

// index is an immutable-once-built lookup structure over one or more
// workflow definitions. Inactive edges are dropped at build time so the hot
// path never sees them.
type index struct {
	workflows map[string]api.WorkflowDefinition
	edges     map[edgeKey]api.PathDefinition
	nodes     map[nodeKey]string
	next      map[nodeKey][]api.StatusCode
	agentNext map[nodeKey][]api.StatusCode
	reasons   map[api.StatusCode]map[string]struct{}
}

func newIndex() *index {
	return &index{
		workflows: make(map[string]api.WorkflowDefinition),
		edges:     make(map[edgeKey]api.PathDefinition),
		nodes:     make(map[nodeKey]string),
		next:      make(map[nodeKey][]api.StatusCode),
		agentNext: make(map[nodeKey][]api.StatusCode),
		reasons:   make(map[api.StatusCode]map[string]struct{}),
	}
}

func (ix *index) add(def api.WorkflowDefinition) error {
	if err := validate.Struct(def); err != nil {
		return errors.Wrapf(err, "workflow %s failed validation", def.Name)
	}
	if _, ok := ix.workflows[def.Name]; ok {
		return errors.Errorf("workflow already registered: %s", def.Name)
	}

	seenEdges := make(map[edgeKey]struct{}, len(def.Paths))
	for _, p := range def.Paths {
		key := edgeKey{workflow: def.Name, from: p.From, to: p.To}
		if _, dup := seenEdges[key]; dup {
			return errors.Errorf("workflow %s: duplicate edge %d->%d", def.Name, p.From, p.To)
		}
		seenEdges[key] = struct{}{}
		if !p.Active {
			// Inactive rows exist for historical reporting only.
			continue
		}
		ix.edges[key] = p
		nk := nodeKey{workflow: def.Name, status: p.From}
		ix.next[nk] = append(ix.next[nk], p.To)
		if p.AgentAccessible {
			ix.agentNext[nk] = append(ix.agentNext[nk], p.To)
		}
	}
	for nk := range ix.next {
		sortCodes(ix.next[nk])
	}
	for nk := range ix.agentNext {
		sortCodes(ix.agentNext[nk])
	}

	for _, n := range def.Nodes {
		nk := nodeKey{workflow: def.Name, status: n.Status}
		if _, dup := ix.nodes[nk]; dup {
			return errors.Errorf("workflow %s: duplicate handler binding for status %d", def.Name, n.Status)
		}
		ix.nodes[nk] = n.HandlerID
	}

	for _, r := range def.Reasons {
		set, ok := ix.reasons[r.Status]
		if !ok {
			set = make(map[string]struct{}, len(r.Reasons))
			ix.reasons[r.Status] = set
		}
		for _, reason := range r.Reasons {
			set[reason] = struct{}{}
		}
	}

	ix.workflows[def.Name] = def
	return nil
}

func sortCodes(codes []api.StatusCode) {
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
}

// Registry is an in-memory Store populated at startup via Register.
// Safe for concurrent use; lookups take a read lock only.
type Registry struct {
	mu sync.RWMutex
	ix *index
}

// NewRegistry returns an empty graph registry.
func NewRegistry() *Registry {
	return &Registry{ix: newIndex()}
}

var _ Store = (*Registry)(nil)

// Register adds a workflow definition. Duplicate names are rejected.
func (r *Registry) Register(def api.WorkflowDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ix.add(def)
}

func (r *Registry) EdgeLegal(workflow string, from, to api.StatusCode) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ix.edges[edgeKey{workflow: workflow, from: from, to: to}]
	return ok
}

func (r *Registry) Edge(workflow string, from, to api.StatusCode) (api.PathDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.ix.edges[edgeKey{workflow: workflow, from: from, to: to}]
	return p, ok
}

func (r *Registry) HandlerFor(workflow string, status api.StatusCode) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ix.nodes[nodeKey{workflow: workflow, status: status}]
	return id, ok
}

func (r *Registry) NextStatuses(workflow string, from api.StatusCode) []api.StatusCode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneCodes(r.ix.next[nodeKey{workflow: workflow, status: from}])
}

func (r *Registry) AgentNextStatuses(workflow string, from api.StatusCode) []api.StatusCode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneCodes(r.ix.agentNext[nodeKey{workflow: workflow, status: from}])
}

func (r *Registry) ReasonKnown(status api.StatusCode, reason string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return reasonKnown(r.ix, status, reason)
}

func (r *Registry) ReasonsFor(status api.StatusCode) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return reasonsFor(r.ix, status)
}

func (r *Registry) Workflow(name string) (api.WorkflowDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.ix.workflows[name]
	return def, ok
}

func reasonKnown(ix *index, status api.StatusCode, reason string) bool {
	set, ok := ix.reasons[status]
	if !ok || len(set) == 0 {
		// Nothing catalogued for this status: accept anything.
		return true
	}
	_, known := set[reason]
	return known
}

func reasonsFor(ix *index, status api.StatusCode) []string {
	set := ix.reasons[status]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func cloneCodes(codes []api.StatusCode) []api.StatusCode {
	if len(codes) == 0 {
		return nil
	}
	out := make([]api.StatusCode, len(codes))
	copy(out, codes)
	return out
}
