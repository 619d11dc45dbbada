package railnet

import (
	"fmt"
	"log"
	"sort"
	"strings"
)

// Outcome category constants
const (
	// Per-pair routing outcomes
	StatusOK          = "ok"
	StatusWarning     = "warning"
	StatusNoMapping   = "no_mapping"
	StatusNoPath      = "no_path"
	StatusNoGeometry  = "no_geometry"
	StatusFarFromPath = "far_from_path"

	// Pipeline-level data quality outcomes
	StatusOffNetwork      = "off_network"
	StatusRejectedSegment = "rejected_segment"
)

// failureCategories are the outcomes that make the batch exit nonzero. A
// warning degrades confidence but the pair still routed; these did not.
var failureCategories = map[string]bool{
	StatusNoMapping:   true,
	StatusNoPath:      true,
	StatusNoGeometry:  true,
	StatusFarFromPath: true,
	StatusOffNetwork:  true,
}

// categoryInfo holds aggregated information about one outcome category
type categoryInfo struct {
	count    int
	examples []string
}

// Summary collects per-record outcomes during the batch run and outputs a
// consolidated, deterministic report at the end.
type Summary struct {
	categories map[string]*categoryInfo
}

// NewSummary creates an empty outcome summary.
func NewSummary() *Summary {
	return &Summary{categories: make(map[string]*categoryInfo)}
}

// Add records one outcome with an example identifier (settlement or pair).
func (s *Summary) Add(category, exampleID string) {
	if s.categories[category] == nil {
		s.categories[category] = &categoryInfo{examples: make([]string, 0, 3)}
	}
	info := s.categories[category]
	info.count++

	// Store up to 3 examples
	if len(info.examples) < 3 {
		info.examples = append(info.examples, exampleID)
	}
}

// Count returns how many records landed in the given category.
func (s *Summary) Count(category string) int {
	if info := s.categories[category]; info != nil {
		return info.count
	}
	return 0
}

// FailureCount returns the total of all failure-category records; the CLI
// exits nonzero when this is positive.
func (s *Summary) FailureCount() int {
	total := 0
	for cat, info := range s.categories {
		if failureCategories[cat] {
			total += info.count
		}
	}
	return total
}

// LogAll outputs every category in stable order.
func (s *Summary) LogAll() {
	if len(s.categories) == 0 {
		log.Printf("SUMMARY: no records processed")
		return
	}

	cats := make([]string, 0, len(s.categories))
	for cat := range s.categories {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	for _, cat := range cats {
		log.Printf("%s", s.formatCategory(cat, s.categories[cat]))
	}
	if n := s.FailureCount(); n > 0 {
		log.Printf("SUMMARY: %d record(s) in failure categories", n)
	}
}

func (s *Summary) formatCategory(category string, info *categoryInfo) string {
	var description string
	switch category {
	case StatusOK:
		description = "pairs routed with track-following geometry"
	case StatusWarning:
		description = "pairs routed but geometry ends farther from a settlement than the warn threshold"
	case StatusNoMapping:
		description = "pairs with an unmapped settlement; direct-line fallback written"
	case StatusNoPath:
		description = "pairs in different components; railway distance omitted"
	case StatusNoGeometry:
		description = "pairs routed but no renderable geometry; direct-line fallback written"
	case StatusFarFromPath:
		description = "pairs whose geometry ends beyond the error threshold from a settlement"
	case StatusOffNetwork:
		description = "settlements beyond the maximum snap distance"
	case StatusRejectedSegment:
		description = "input segments with fewer than two coordinates"
	default:
		description = "records"
	}

	msg := fmt.Sprintf("SUMMARY [%s]: %d %s", category, info.count, description)
	if len(info.examples) > 0 {
		msg += fmt.Sprintf(" (e.g. %s)", strings.Join(info.examples, ", "))
	}
	return msg
}
