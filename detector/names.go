package detector

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// namesEntry matches one `id: 'label'` pair of the dict literal that YOLO
// exporters store under the "names" metadata key.
var namesEntry = regexp.MustCompile(`(\d+)\s*:\s*(?:'((?:[^'\\]|\\.)*)'|"((?:[^"\\]|\\.)*)")`)

// ParseNames parses a class table such as `{0: 'person', 1: "bike's"}`.
func ParseNames(raw string) (Names, error) {
	matches := namesEntry.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no class names found in %q", truncate(raw, 64))
	}
	names := make(Names, len(matches))
	for _, m := range matches {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("invalid class id %q: %w", m[1], err)
		}
		label := m[2]
		if label == "" {
			label = m[3]
		}
		names[id] = unescape(label)
	}
	return names, nil
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ReadLabels reads a labels file with one class name per line. The line
// number is the class id; blank lines are skipped.
func ReadLabels(path string) (Names, error) {
	lines, err := ReadLines(path)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	names := make(Names, len(lines))
	for i, l := range lines {
		names[i] = l
	}
	return names, nil
}

func ReadLines(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(b), "\n")
	var out []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out, nil
}
