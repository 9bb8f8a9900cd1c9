package graph

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/sajinavi2006/julomvp-sub065/pkg/api"
)

// SQLSource loads workflow definitions from the provisioned configuration
// tables (workflow, status_path, status_node, change_reason). The tables are
// written by deployment tooling, never by this engine; only active workflows
// are loaded and inactive edges are dropped at index build time.
//
// It expects an *sql.DB using a SQLite-compatible driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing the driver.
type SQLSource struct {
	db *sql.DB
}

// NewSQLSource returns a source reading from db. It does not create the
// schema; provisioning is out of scope.
func NewSQLSource(db *sql.DB) *SQLSource {
	return &SQLSource{db: db}
}

// Load reads every active workflow and returns an indexed snapshot.
func (s *SQLSource) Load(ctx context.Context) (Store, error) {
	defs, err := s.loadDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	reg := NewRegistry()
	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (s *SQLSource) loadDefinitions(ctx context.Context) ([]api.WorkflowDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, version, is_active
		FROM workflow
		WHERE is_active = 1`)
	if err != nil {
		return nil, errors.Wrap(err, "query workflow")
	}
	defer rows.Close()

	type wfRow struct {
		id  int64
		def api.WorkflowDefinition
	}
	var wfs []wfRow
	for rows.Next() {
		var (
			w      wfRow
			active int
		)
		if err := rows.Scan(&w.id, &w.def.Name, &w.def.Version, &active); err != nil {
			return nil, errors.Wrap(err, "scan workflow")
		}
		w.def.Active = active != 0
		wfs = append(wfs, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	reasons, err := s.loadReasons(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]api.WorkflowDefinition, 0, len(wfs))
	for i := range wfs {
		def := wfs[i].def
		def.Paths, err = s.loadPaths(ctx, wfs[i].id)
		if err != nil {
			return nil, err
		}
		def.Nodes, err = s.loadNodes(ctx, wfs[i].id)
		if err != nil {
			return nil, err
		}
		def.Reasons = reasons
		out = append(out, def)
	}
	return out, nil
}

func (s *SQLSource) loadPaths(ctx context.Context, workflowID int64) ([]api.PathDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status_previous, status_next, path_type, is_active, agent_accessible
		FROM status_path
		WHERE workflow_id = ?`, workflowID)
	if err != nil {
		return nil, errors.Wrap(err, "query status_path")
	}
	defer rows.Close()

	var paths []api.PathDefinition
	for rows.Next() {
		var (
			p              api.PathDefinition
			from, to       int
			active, agent  int
			pathType       string
		)
		if err := rows.Scan(&from, &to, &pathType, &active, &agent); err != nil {
			return nil, errors.Wrap(err, "scan status_path")
		}
		p.From = api.StatusCode(from)
		p.To = api.StatusCode(to)
		p.Type = api.PathType(pathType)
		p.Active = active != 0
		p.AgentAccessible = agent != 0
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func (s *SQLSource) loadNodes(ctx context.Context, workflowID int64) ([]api.NodeDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status_node, handler_identifier
		FROM status_node
		WHERE workflow_id = ?`, workflowID)
	if err != nil {
		return nil, errors.Wrap(err, "query status_node")
	}
	defer rows.Close()

	var nodes []api.NodeDefinition
	for rows.Next() {
		var (
			status int
			n      api.NodeDefinition
		)
		if err := rows.Scan(&status, &n.HandlerID); err != nil {
			return nil, errors.Wrap(err, "scan status_node")
		}
		n.Status = api.StatusCode(status)
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// loadReasons reads the whole change_reason catalog. Reasons are scoped to a
// target status, not a workflow: status codes are unique per domain.
func (s *SQLSource) loadReasons(ctx context.Context) ([]api.ReasonDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status_id, reason
		FROM change_reason
		ORDER BY status_id`)
	if err != nil {
		return nil, errors.Wrap(err, "query change_reason")
	}
	defer rows.Close()

	byStatus := make(map[api.StatusCode][]string)
	var order []api.StatusCode
	for rows.Next() {
		var (
			status int
			reason string
		)
		if err := rows.Scan(&status, &reason); err != nil {
			return nil, errors.Wrap(err, "scan change_reason")
		}
		code := api.StatusCode(status)
		if _, ok := byStatus[code]; !ok {
			order = append(order, code)
		}
		byStatus[code] = append(byStatus[code], reason)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]api.ReasonDefinition, 0, len(order))
	for _, code := range order {
		out = append(out, api.ReasonDefinition{Status: code, Reasons: byStatus[code]})
	}
	return out, nil
}
