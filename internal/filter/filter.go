package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tbanks7/applyflow/internal/model"
)

// Ensure Engine implements model.Filter.
var _ model.Filter = (*Engine)(nil)

// Engine applies the eligibility predicates to a job: location must be in
// the allowed set or explicitly remote, the stated experience requirement
// must not exceed the cap, and the role must not look senior. All matching
// is case-insensitive.
type Engine struct {
	maxYears         int
	seniorKeywords   []string
	juniorKeywords   []string
	allowedLocations []string
}

// New creates an eligibility engine. Empty allowedLocations passes every
// location; senior/junior keyword lists are matched as lowercase substrings
// over title + description.
func New(maxYears int, seniorKeywords, juniorKeywords, allowedLocations []string) *Engine {
	lower := func(in []string) []string {
		out := make([]string, len(in))
		for i, s := range in {
			out[i] = strings.ToLower(s)
		}
		return out
	}
	return &Engine{
		maxYears:         maxYears,
		seniorKeywords:   lower(seniorKeywords),
		juniorKeywords:   lower(juniorKeywords),
		allowedLocations: lower(allowedLocations),
	}
}

// Decide returns whether the job passes all predicates, with a reason when
// it does not. Rejection is observability only; rejected jobs are dropped
// from the run without retry.
func (e *Engine) Decide(job model.JobRecord) model.EligibilityDecision {
	if !e.locationAllowed(job.Location) {
		return model.EligibilityDecision{Reason: fmt.Sprintf("location %q not in allowed set", job.Location)}
	}

	combined := strings.ToLower(job.Title + " " + job.Description)

	if kw := e.matchKeyword(combined, e.seniorKeywords); kw != "" {
		return model.EligibilityDecision{Reason: fmt.Sprintf("senior keyword %q", kw)}
	}

	// Best-effort experience parse; jobs with no stated requirement pass.
	if years, ok := MaxYearsRequired(job.Description); ok && years > e.maxYears {
		// Postings sometimes list broad ranges but still target junior
		// hires; explicit junior keywords override the cap.
		if e.matchKeyword(combined, e.juniorKeywords) == "" {
			return model.EligibilityDecision{Reason: fmt.Sprintf("requires %d years, cap is %d", years, e.maxYears)}
		}
	}

	return model.EligibilityDecision{Eligible: true}
}

func (e *Engine) locationAllowed(location string) bool {
	loc := strings.ToLower(location)
	if strings.Contains(loc, "remote") {
		return true
	}
	if len(e.allowedLocations) == 0 {
		return true
	}
	for _, allowed := range e.allowedLocations {
		if strings.Contains(loc, allowed) {
			return true
		}
	}
	return false
}

func (e *Engine) matchKeyword(text string, keywords []string) string {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return kw
		}
	}
	return ""
}

// Experience patterns, checked over the whole description. Ranges take the
// upper bound: "3-5 years" → 5.
var yearsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\+?\s*(?:to|-)\s*(\d+)\s*years?`),
	regexp.MustCompile(`(?i)(\d+)\+\s*years?`),
	regexp.MustCompile(`(?i)(\d+)\s*years?\s*(?:of\s*)?experience`),
}

// MaxYearsRequired parses the highest years-of-experience figure mentioned
// in the text. The second return is false when no pattern matched.
func MaxYearsRequired(text string) (int, bool) {
	if text == "" {
		return 0, false
	}

	maxYears, found := 0, false
	for _, pat := range yearsPatterns {
		for _, m := range pat.FindAllStringSubmatch(text, -1) {
			for _, g := range m[1:] {
				if g == "" {
					continue
				}
				n, err := strconv.Atoi(g)
				if err != nil {
					continue
				}
				if !found || n > maxYears {
					maxYears = n
					found = true
				}
			}
		}
	}
	return maxYears, found
}
