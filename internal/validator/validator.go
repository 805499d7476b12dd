package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/autopilot/pkg/domain"
)

// Severity grades an Issue.
type Severity string

const (
	// SeverityError marks definitions the engine must not run.
	SeverityError Severity = "error"
	// SeverityWarning marks definitions that run but probably not as intended.
	SeverityWarning Severity = "warning"
)

// Issue is a single finding.
type Issue struct {
	Severity Severity
	UnitID   string
	NodeID   string
	Message  string
}

func (i Issue) String() string {
	if i.NodeID == "" {
		return fmt.Sprintf("%s: unit %s: %s", i.Severity, i.UnitID, i.Message)
	}
	return fmt.Sprintf("%s: unit %s, node %s: %s", i.Severity, i.UnitID, i.NodeID, i.Message)
}

// Report collects the findings for one or more units.
type Report struct {
	Issues []Issue
}

func (r *Report) add(sev Severity, unitID, nodeID, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: sev, UnitID: unitID, NodeID: nodeID, Message: fmt.Sprintf(format, args...)})
}

// Errors returns the error-level issues.
func (r Report) Errors() []Issue {
	return r.filter(SeverityError)
}

// Warnings returns the warning-level issues.
func (r Report) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

func (r Report) filter(sev Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

// Err returns nil when there are no error-level issues, otherwise an error
// wrapping domain.ErrInvalidUnit that lists them.
func (r Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	lines := make([]string, len(errs))
	for i, e := range errs {
		lines[i] = e.String()
	}
	return fmt.Errorf("%w: found %d errors:\n- %s", domain.ErrInvalidUnit, len(errs), strings.Join(lines, "\n- "))
}

// ValidateAll checks every unit and the uniqueness of unit ids.
func ValidateAll(units []domain.Unit) Report {
	var r Report
	seen := make(map[string]bool, len(units))
	for _, u := range units {
		if u.ID != "" && seen[u.ID] {
			r.add(SeverityError, u.ID, "", "duplicate unit id")
		}
		seen[u.ID] = true
		r.Issues = append(r.Issues, Validate(u).Issues...)
	}
	return r
}

// Validate checks a unit for structural errors (duplicate or empty ids,
// negative boundary) and for suspicious constructs the engine tolerates
// (dangling connections, unknown actions, unreachable nodes).
func Validate(u domain.Unit) Report {
	var r Report
	if u.ID == "" {
		r.add(SeverityError, u.ID, "", "missing unit id")
	}
	if u.Boundary != nil {
		if err := u.Boundary.Validate(); err != nil {
			r.add(SeverityError, u.ID, "", "%v", err)
		}
	}

	ids := make(map[string]bool, len(u.Nodes))
	for _, n := range u.Nodes {
		switch {
		case n.ID == "":
			r.add(SeverityError, u.ID, "", "node with empty id")
		case ids[n.ID]:
			r.add(SeverityError, u.ID, n.ID, "duplicate node id")
		}
		ids[n.ID] = true
	}

	for _, n := range u.Nodes {
		checkNode(&r, u.ID, n, ids)
	}
	checkReachable(&r, u)
	return r
}

func checkNode(r *Report, unitID string, n domain.Node, ids map[string]bool) {
	if !n.Kind.Known() {
		r.add(SeverityWarning, unitID, n.ID, "unknown action type %q will be skipped", n.Kind)
	}

	for _, c := range n.Connections {
		if c != "" && !ids[c] {
			r.add(SeverityWarning, unitID, n.ID, "connection to missing node %q", c)
		}
	}

	switch {
	case n.Kind == domain.ActionIf && len(n.Connections) > 2:
		r.add(SeverityWarning, unitID, n.ID, "conditional has %d connections; only the first two are used", len(n.Connections))
	case n.Kind.IsImage() && n.StringParam("image_path", "") == "":
		r.add(SeverityWarning, unitID, n.ID, "image action without image_path will be skipped")
	case n.Kind == domain.ActionConnection:
		checkConnection(r, unitID, n, ids)
	}
}

func checkConnection(r *Report, unitID string, n domain.Node, ids map[string]bool) {
	for _, key := range []string{domain.ParamSourceID, domain.ParamTargetID} {
		ref := n.StringParam(key, "")
		switch {
		case ref == "":
			r.add(SeverityWarning, unitID, n.ID, "connection without %s", key)
		case !ids[ref]:
			r.add(SeverityWarning, unitID, n.ID, "%s references missing node %q", key, ref)
		}
	}
	switch out := n.StringParam(domain.ParamOutputType, domain.OutputAny); out {
	case domain.OutputAny, domain.OutputTrue, domain.OutputFalse:
	default:
		r.add(SeverityWarning, unitID, n.ID, "unknown output_type %q never fires on a conditional", out)
	}
}

// checkReachable warns about nodes no traversal from the roots can reach.
func checkReachable(r *Report, u domain.Unit) {
	g := u.Graph()
	reached := make(map[string]bool)
	var stack []string
	for _, root := range g.Roots() {
		stack = append(stack, root.ID)
	}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[id] {
			continue
		}
		reached[id] = true

		n, ok := g.Node(id)
		if !ok {
			continue
		}
		stack = append(stack, n.Connections...)
		if n.Kind == domain.ActionConnection {
			stack = append(stack, n.StringParam(domain.ParamTargetID, ""))
		}
		for _, c := range g.ConnectionsFrom(id) {
			stack = append(stack, c.StringParam(domain.ParamTargetID, ""))
		}
	}

	for _, n := range u.Nodes {
		if n.Kind != domain.ActionConnection && n.ID != "" && !reached[n.ID] {
			r.add(SeverityWarning, u.ID, n.ID, "node is unreachable")
		}
	}
}
