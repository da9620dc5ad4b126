package neos

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// SolverID is one entry of listAllSolvers ("category:solver:language").
type SolverID struct {
	Category string `json:"category"`
	Solver   string `json:"solver"`
	Language string `json:"language"`
}

// String returns the NEOS colon-separated form.
func (s SolverID) String() string {
	return s.Category + ":" + s.Solver + ":" + s.Language
}

// ParseSolverID splits a "category:solver:language" string. The language
// part may itself contain colons.
func ParseSolverID(s string) (SolverID, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 3)
	if len(parts) != 3 {
		return SolverID{}, false
	}
	return SolverID{Category: parts[0], Solver: parts[1], Language: parts[2]}, true
}

// CategoryGroup lists the solvers available under one category.
type CategoryGroup struct {
	Category    string   `json:"category"`
	DisplayName string   `json:"display_name"`
	Solvers     []string `json:"solvers"`
}

// GroupSolvers keeps the ids whose language matches (case-insensitive; empty
// matches all) and groups them by category. Categories and solvers are
// sorted. Display names come from names, falling back to the category key.
func GroupSolvers(ids []SolverID, language string, names map[string]string) []CategoryGroup {
	byCategory := make(map[string][]string)
	for _, id := range ids {
		if language != "" && !strings.EqualFold(id.Language, language) {
			continue
		}
		byCategory[id.Category] = append(byCategory[id.Category], id.Solver)
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	groups := make([]CategoryGroup, 0, len(categories))
	for _, c := range categories {
		solvers := byCategory[c]
		sort.Strings(solvers)
		display := names[c]
		if display == "" {
			display = c
		}
		groups = append(groups, CategoryGroup{Category: c, DisplayName: display, Solvers: solvers})
	}
	return groups
}

// ListAllSolvers returns every solver the server offers. Malformed entries
// are skipped.
func (c *Client) ListAllSolvers(ctx context.Context) ([]SolverID, error) {
	var reply []any
	if err := c.call(ctx, MethodListAllSolvers, nil, &reply); err != nil {
		return nil, err
	}
	out := make([]SolverID, 0, len(reply))
	for _, v := range reply {
		s, err := asString(v)
		if err != nil {
			continue
		}
		if id, ok := ParseSolverID(s); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// ListCategories returns the category key to display name mapping.
func (c *Client) ListCategories(ctx context.Context) (map[string]string, error) {
	var reply map[string]any
	if err := c.call(ctx, MethodListCategories, nil, &reply); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(reply))
	for k, v := range reply {
		if s, err := asString(v); err == nil {
			out[k] = s
		} else {
			out[k] = fmt.Sprint(v)
		}
	}
	return out, nil
}
