package tui

import (
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/evepreview/internal/config"
)

type diffKind int

const (
	diffContext diffKind = iota
	diffRemoved
	diffAdded
)

type diffLine struct {
	kind diffKind
	text string
}

const (
	diffContextLines = 2
	// Edited regions larger than this many cells are shown as a wholesale
	// replacement.
	maxDiffCells = 500000
)

// computeDiffLines diffs the two configs as they would be written to disk.
// It returns nil when nothing changed.
func computeDiffLines(original, current *config.Config) []diffLine {
	if original == nil || current == nil {
		return nil
	}
	a, err := yamlLines(original)
	if err != nil {
		return nil
	}
	b, err := yamlLines(current)
	if err != nil {
		return nil
	}
	if slices.Equal(a, b) {
		return nil
	}
	return withContext(editScript(a, b), diffContextLines)
}

func yamlLines(cfg *config.Config) ([]string, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n"), nil
}

// editScript diffs a against b. The shared prefix and suffix are matched
// directly so only the edited middle goes through the LCS table.
func editScript(a, b []string) []diffLine {
	pre := 0
	for pre < len(a) && pre < len(b) && a[pre] == b[pre] {
		pre++
	}
	suf := 0
	for suf < len(a)-pre && suf < len(b)-pre && a[len(a)-1-suf] == b[len(b)-1-suf] {
		suf++
	}

	out := make([]diffLine, 0, len(a)+len(b)-pre-suf)
	out = appendLines(out, diffContext, a[:pre])
	out = append(out, lcsScript(a[pre:len(a)-suf], b[pre:len(b)-suf])...)
	return appendLines(out, diffContext, a[len(a)-suf:])
}

func appendLines(out []diffLine, kind diffKind, lines []string) []diffLine {
	for _, l := range lines {
		out = append(out, diffLine{kind: kind, text: l})
	}
	return out
}

func lcsScript(a, b []string) []diffLine {
	n, m := len(a), len(b)
	if n*m > maxDiffCells {
		out := appendLines(nil, diffRemoved, a)
		return appendLines(out, diffAdded, b)
	}

	// tbl[i*w+j] is the LCS length of a[i:] and b[j:].
	w := m + 1
	tbl := make([]int, (n+1)*w)
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				tbl[i*w+j] = tbl[(i+1)*w+j+1] + 1
			} else {
				tbl[i*w+j] = max(tbl[(i+1)*w+j], tbl[i*w+j+1])
			}
		}
	}

	var out []diffLine
	i, j := 0, 0
	for i < n || j < m {
		switch {
		case i < n && j < m && a[i] == b[j]:
			out = append(out, diffLine{kind: diffContext, text: a[i]})
			i++
			j++
		case j == m || (i < n && tbl[(i+1)*w+j] >= tbl[i*w+j+1]):
			out = append(out, diffLine{kind: diffRemoved, text: a[i]})
			i++
		default:
			out = append(out, diffLine{kind: diffAdded, text: b[j]})
			j++
		}
	}
	return out
}

// withContext keeps every change plus n unchanged lines on either side.
// Skipped runs collapse to a single "..." line.
func withContext(lines []diffLine, n int) []diffLine {
	keep := make([]bool, len(lines))
	for i, l := range lines {
		if l.kind == diffContext {
			continue
		}
		for k := max(0, i-n); k <= min(len(lines)-1, i+n); k++ {
			keep[k] = true
		}
	}

	var out []diffLine
	last := -1
	for i, l := range lines {
		if !keep[i] {
			continue
		}
		if i > last+1 {
			out = append(out, diffLine{kind: diffContext, text: "..."})
		}
		out = append(out, l)
		last = i
	}
	return out
}

// cloneConfig deep-copies cfg through its YAML form, which is also the form
// the diff compares.
func cloneConfig(cfg *config.Config) *config.Config {
	if cfg == nil {
		return nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil
	}
	var clone config.Config
	if err := yaml.Unmarshal(data, &clone); err != nil {
		return nil
	}
	return &clone
}
