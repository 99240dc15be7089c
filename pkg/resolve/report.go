package resolve

import (
	"fmt"
	"strings"

	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/registry"
	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/validate"
)

// ResolutionReport is the outcome of resolving every live clause in a
// snapshot, in natural clause order.
type ResolutionReport struct {
	ContractID string             `json:"contract_id"`
	Resolved   []*EffectiveClause `json:"resolved"`
	Failures   []*validate.Issue  `json:"failures,omitempty"`
}

// Report resolves every canonical clause ID the snapshot knows about.
func Report(snap *registry.Snapshot) *ResolutionReport {
	report := &ResolutionReport{ContractID: snap.ContractID}

	for _, id := range snap.CanonicalIDs() {
		effective, err := Resolve(id, snap)
		if err != nil {
			if issue, ok := validate.AsIssue(err); ok {
				report.Failures = append(report.Failures, issue)
			} else {
				report.Failures = append(report.Failures,
					validate.Errorf(validate.CodeUnresolvedReference, "%v", err).WithClause(id))
			}
			continue
		}
		report.Resolved = append(report.Resolved, effective)
	}

	return report
}

// String renders the report for terminal output.
func (r *ResolutionReport) String() string {
	var b strings.Builder

	b.WriteString("Effective Clause Report\n")
	b.WriteString("=======================\n")
	fmt.Fprintf(&b, "Contract: %s\n", r.ContractID)
	fmt.Fprintf(&b, "Resolved: %d  Ambiguous/failed: %d\n\n", len(r.Resolved), len(r.Failures))

	for _, e := range r.Resolved {
		fmt.Fprintf(&b, "Clause %s <- document %s (chunk %s)\n", e.CanonicalID, e.DocumentID, e.WinningChunkID)
		for _, s := range e.OverriddenBy {
			fmt.Fprintf(&b, "  supersedes chunk %s in %s (%s)\n", s.ChunkID, s.DocumentID, s.Tier)
		}
		for _, w := range e.Warnings {
			fmt.Fprintf(&b, "  warning [%s]: %s\n", w.Code, w.Message)
		}
	}

	if len(r.Failures) > 0 {
		b.WriteString("\nFailures:\n")
		for _, issue := range r.Failures {
			fmt.Fprintf(&b, "  [%s] %s\n", issue.Code, issue.Message)
		}
	}

	return b.String()
}
