package planner

import "strings"

// Section returns the content under a "## <title>" markdown heading, up to
// the next heading of the same level. Title matching is case-insensitive;
// the empty string means the section is absent.
func Section(body, title string) string {
	lines := strings.Split(body, "\n")
	var collected []string
	inSection := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") {
			if inSection {
				break
			}
			heading := strings.TrimSpace(strings.TrimPrefix(trimmed, "## "))
			heading = strings.TrimSuffix(heading, ":")
			if strings.EqualFold(heading, title) {
				inSection = true
			}
			continue
		}
		if inSection {
			collected = append(collected, line)
		}
	}
	return strings.TrimSpace(strings.Join(collected, "\n"))
}
