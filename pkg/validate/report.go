package validate

import (
	"fmt"
	"sort"
	"strings"
)

// String returns a human-readable summary of the result.
func (r *Result) String() string {
	var sb strings.Builder

	sb.WriteString("Contract Validation Report\n")
	sb.WriteString("==========================\n\n")

	status := "PASS"
	if !r.IsValid {
		status = "FAIL"
	}
	sb.WriteString(fmt.Sprintf("Status:   %s\n", status))
	sb.WriteString(fmt.Sprintf("Errors:   %d\n", len(r.Errors)))
	sb.WriteString(fmt.Sprintf("Warnings: %d\n\n", len(r.Warnings)))

	if len(r.Counts) > 0 {
		sb.WriteString("Findings by code:\n")
		for _, code := range r.sortedCodes() {
			sb.WriteString(fmt.Sprintf("  %-28s %d\n", code, r.Counts[code]))
		}
		sb.WriteString("\n")
	}

	writeIssueList(&sb, "Errors", r.Errors)
	writeIssueList(&sb, "Warnings", r.Warnings)

	return sb.String()
}

// RenderMarkdown renders the result as a Markdown fragment for operator
// dashboards and ingest logs.
func (r *Result) RenderMarkdown() string {
	var sb strings.Builder

	sb.WriteString("## Contract Validation\n\n")
	if r.IsValid {
		sb.WriteString("**Status: PASS**\n\n")
	} else {
		sb.WriteString("**Status: FAIL**\n\n")
	}

	sb.WriteString("| Code | Count |\n|---|---|\n")
	for _, code := range r.sortedCodes() {
		sb.WriteString(fmt.Sprintf("| `%s` | %d |\n", code, r.Counts[code]))
	}
	sb.WriteString("\n")

	for _, section := range []struct {
		title  string
		issues []*Issue
	}{
		{"Errors", r.Errors},
		{"Warnings", r.Warnings},
	} {
		if len(section.issues) == 0 {
			continue
		}
		sb.WriteString("### " + section.title + "\n\n")
		for _, issue := range section.issues {
			sb.WriteString("- " + markdownIssueLine(issue) + "\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func (r *Result) sortedCodes() []Code {
	codes := make([]Code, 0, len(r.Counts))
	for code := range r.Counts {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

func writeIssueList(sb *strings.Builder, title string, issues []*Issue) {
	if len(issues) == 0 {
		return
	}
	sb.WriteString(title + ":\n")
	for _, issue := range issues {
		sb.WriteString("  - " + issueLine(issue) + "\n")
	}
	sb.WriteString("\n")
}

func issueLine(issue *Issue) string {
	line := fmt.Sprintf("[%s] %s", issue.Code, issue.Message)
	if issue.ClauseID != "" {
		line += fmt.Sprintf(" (clause %s)", issue.ClauseID)
	}
	if issue.DocumentID != "" {
		line += fmt.Sprintf(" (document %s)", issue.DocumentID)
	}
	return line
}

func markdownIssueLine(issue *Issue) string {
	line := fmt.Sprintf("`%s`: %s", issue.Code, issue.Message)
	if issue.ClauseID != "" {
		line += fmt.Sprintf(" _(clause %s)_", issue.ClauseID)
	}
	return line
}
