// Package router selects the document sections relevant to each field group.
package router

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/joseph-ayodele/contract-extractor/internal/entity"
	"github.com/joseph-ayodele/contract-extractor/internal/taxonomy"
)

// GroupSections is the routed query body for one field group.
type GroupSections struct {
	Group    taxonomy.FieldGroup
	Sections []entity.Section
	// Fallback is set when no section matched and the whole document was substituted.
	Fallback bool
}

// RoutedSections preserves field group declaration order.
type RoutedSections []GroupSections

// Lookup returns the routed sections for a group name.
func (r RoutedSections) Lookup(name string) (GroupSections, bool) {
	for _, gs := range r {
		if gs.Group.Name == name {
			return gs, true
		}
	}
	return GroupSections{}, false
}

type compiledGroup struct {
	group taxonomy.FieldGroup
	re    *regexp.Regexp
}

// Router is safe for concurrent use; patterns are compiled once.
type Router struct {
	groups []compiledGroup
	logger *slog.Logger
}

func New(groups []taxonomy.FieldGroup, logger *slog.Logger) (*Router, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{logger: logger}
	for _, g := range groups {
		re, err := regexp.Compile("(?i)" + g.Pattern())
		if err != nil {
			return nil, fmt.Errorf("compile patterns for group %q: %w", g.Name, err)
		}
		r.groups = append(r.groups, compiledGroup{group: g, re: re})
	}
	return r, nil
}

// Route never fails: a group with no matching section gets every section.
func (r *Router) Route(doc entity.ContractDocument) RoutedSections {
	out := make(RoutedSections, 0, len(r.groups))
	for _, cg := range r.groups {
		var matched []entity.Section
		for _, s := range doc.Sections {
			if cg.re.MatchString(s.Title) || cg.re.MatchString(s.Number) {
				matched = append(matched, s)
			}
		}

		gs := GroupSections{Group: cg.group, Sections: matched}
		if len(matched) == 0 {
			gs.Sections = doc.Sections
			gs.Fallback = true
			r.logger.Info("router.routing_gap",
				"group", cg.group.Name,
				"url", doc.URL,
				"sections", len(doc.Sections),
			)
		} else {
			r.logger.Debug("router.matched",
				"group", cg.group.Name,
				"url", doc.URL,
				"sections", sectionNumbers(matched),
			)
		}
		out = append(out, gs)
	}
	return out
}

func sectionNumbers(ss []entity.Section) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.Number
	}
	return out
}
