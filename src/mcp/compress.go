package mcp

import (
	"regexp"

	"drone-compare/src/metrics"
)

// shortCommitLength is how many hex digits of a commit are kept.
const shortCommitLength = 12

// hashPattern matches full-length hex commit ids.
var hashPattern = regexp.MustCompile(`^[a-f0-9]{13,}$`)

// shortCommit truncates long hex commit ids. Anything else is kept as is.
func shortCommit(commit string) string {
	if hashPattern.MatchString(commit) {
		return commit[:shortCommitLength]
	}
	return commit
}

// minPrefixLength is the minimum prefix length worth removing.
// Shorter prefixes don't save enough tokens to justify a separate field.
const minPrefixLength = 20

// findCommonPrefix finds the longest common prefix across lines.
// Returns empty string if prefix is too short or there are fewer than two lines.
func findCommonPrefix(lines []string) string {
	if len(lines) < 2 {
		return ""
	}

	prefix := lines[0]
	for _, line := range lines[1:] {
		for len(prefix) > 0 && (len(line) < len(prefix) || line[:len(prefix)] != prefix) {
			prefix = prefix[:len(prefix)-1]
		}
		if len(prefix) == 0 {
			break
		}
	}

	if len(prefix) < minPrefixLength {
		return ""
	}
	return prefix
}

// prURLPrefix returns the PR URL prefix shared by every row.
func prURLPrefix(rows []metrics.Row) string {
	urls := make([]string, 0, len(rows))
	for _, row := range rows {
		urls = append(urls, row.PRURL)
	}
	return findCommonPrefix(urls)
}

// compactRows converts rows to views, stripping prefix from PR URLs.
func compactRows(rows []metrics.Row, prefix string) []RowView {
	views := make([]RowView, 0, len(rows))
	for _, row := range rows {
		url := row.PRURL
		if prefix != "" && len(url) >= len(prefix) {
			url = url[len(prefix):]
		}
		views = append(views, RowView{
			PRNumber:        row.PRNumber,
			PRURL:           url,
			Commit:          shortCommit(row.Commit),
			Gen1Build:       row.Gen1Build,
			Gen2Build:       row.Gen2Build,
			UnitTestStatus:  row.UnitTestStatus.String(),
			AwaitTestStatus: row.AwaitTestStatus.String(),
			SystemStatus:    row.SystemStatus.String(),
			UnitTestElapsed: row.UnitTestElapsed,
			TotalElapsed:    row.TotalElapsed,
			AwaitDelta:      row.AwaitDelta,
			AwaitWithin:     row.AwaitWithin,
		})
	}
	return views
}
