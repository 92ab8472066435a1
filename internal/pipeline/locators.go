package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/forPelevin/mediagrab/internal/types"
)

// LoadLocators reads a locator list. Each line holds one or more locators
// separated by ';'. Blank lines and lines starting with '#' are skipped.
func LoadLocators(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open locators: %w", err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, part := range strings.Split(line, ";") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read locators: %w", err)
	}
	return out, nil
}

// Dedup keeps the first occurrence of each exact locator string, in order,
// and reports how many were dropped.
func Dedup(locators []string) ([]types.WorkItem, int) {
	seen := make(map[string]struct{}, len(locators))
	items := make([]types.WorkItem, 0, len(locators))
	for _, l := range locators {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		items = append(items, types.WorkItem{Locator: l})
	}
	return items, len(locators) - len(items)
}
