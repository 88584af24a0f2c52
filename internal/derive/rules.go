// Package derive synthesizes resource lists from a selection context.
//
// Rules run in a fixed order and are additive: every rule whose gate matches
// the context contributes entries. Output depends only on the context and the
// clock, so results are safe to cache and to compute concurrently.
package derive

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pbaille/syllabus/internal/domain"
	"github.com/pbaille/syllabus/internal/ordering"
)

var (
	// ErrRuleEvaluation marks a rule that could not evaluate a well-formed
	// context. It is a defect and must not be swallowed.
	ErrRuleEvaluation = errors.New("rule evaluation failed")

	// ErrIncompleteContext is returned when authority or level is missing
	ErrIncompleteContext = errors.New("selection context needs authority and level")
)

const pastPaperYears = 5

var namespace = uuid.MustParse("b3d0f5c2-8e7a-4c1d-a6f9-2d4e7b9c0e31")

// DefaultCoreSubjects is the science/tech set that gets guess papers
var DefaultCoreSubjects = []string{
	"math", "mathematics", "physics", "chemistry", "biology",
	"computer", "computer science", "ict",
}

// TierResolver reports the tier of a level within an authority
type TierResolver func(authority, level string) (domain.Tier, bool)

// Rules is the derivation rule table
type Rules struct {
	clock    Clock
	linkBase string
	core     map[string]bool
	tier     TierResolver
	name     func(authority string) (string, bool)
	table    []rule
}

type rule struct {
	name  string
	apply func(r *Rules, c evalContext) ([]domain.DerivedResource, error)
}

// evalContext is a SelectionContext with its year resolved
type evalContext struct {
	domain.SelectionContext
	year int
}

// Option configures Rules
type Option func(*Rules)

// WithClock sets the clock used when a context carries no year
func WithClock(c Clock) Option {
	return func(r *Rules) { r.clock = c }
}

// WithLinkBase sets the URL prefix for generated resource links. Without it
// derived resources carry no link.
func WithLinkBase(base string) Option {
	return func(r *Rules) { r.linkBase = strings.TrimRight(base, "/") }
}

// WithCoreSubjects replaces the guess-paper subject set
func WithCoreSubjects(subjects ...string) Option {
	return func(r *Rules) {
		r.core = make(map[string]bool, len(subjects))
		for _, s := range subjects {
			r.core[normalizeSubject(s)] = true
		}
	}
}

// WithTierResolver looks tiers up in a catalog instead of deriving them from
// the label
func WithTierResolver(fn TierResolver) Option {
	return func(r *Rules) { r.tier = fn }
}

// WithAuthorityName resolves authority ids to display names for titles
func WithAuthorityName(fn func(authority string) (string, bool)) Option {
	return func(r *Rules) { r.name = fn }
}

// New creates the rule table
func New(opts ...Option) *Rules {
	r := &Rules{clock: SystemClock{}}
	WithCoreSubjects(DefaultCoreSubjects...)(r)
	for _, opt := range opts {
		opt(r)
	}

	r.table = []rule{
		{"base", (*Rules).baseRule},
		{"past_paper", (*Rules).pastPaperRule},
		{"model_paper", (*Rules).modelPaperRule},
		{"guess_paper", (*Rules).guessPaperRule},
		{"common", (*Rules).commonRule},
		{"level_type", (*Rules).levelTypeRule},
	}
	return r
}

// RuleOutput is what a single rule contributed
type RuleOutput struct {
	Rule      string                   `json:"rule"`
	Resources []domain.DerivedResource `json:"resources"`
}

// Explain runs every rule and reports each one's contribution, including
// rules that emitted nothing
func (r *Rules) Explain(ctx domain.SelectionContext) ([]RuleOutput, error) {
	if strings.TrimSpace(ctx.Authority) == "" || strings.TrimSpace(ctx.Level) == "" {
		return nil, ErrIncompleteContext
	}

	c := evalContext{SelectionContext: ctx, year: ctx.AsOfYear}
	if c.year == 0 {
		c.year = r.clock.CurrentYear()
	}

	out := make([]RuleOutput, 0, len(r.table))
	for _, rl := range r.table {
		res, err := rl.apply(r, c)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rl.name, err)
		}
		out = append(out, RuleOutput{Rule: rl.name, Resources: res})
	}
	return out, nil
}

// Derive synthesizes the resource list for a context
func (r *Rules) Derive(ctx domain.SelectionContext) ([]domain.DerivedResource, error) {
	outputs, err := r.Explain(ctx)
	if err != nil {
		return nil, err
	}

	var all []domain.DerivedResource
	for _, o := range outputs {
		all = append(all, o.Resources...)
	}
	return all, nil
}

// Group wraps derived resources as a single level group for querying
func (r *Rules) Group(ctx domain.SelectionContext, items []domain.DerivedResource) domain.Group[domain.DerivedResource] {
	return domain.Group[domain.DerivedResource]{
		Level: domain.Level{Label: ctx.Level, Tier: r.tierOf(ctx.Authority, ctx.Level)},
		Items: items,
	}
}

func (r *Rules) tierOf(authority, level string) domain.Tier {
	if r.tier != nil {
		if t, ok := r.tier(authority, level); ok {
			return t
		}
	}
	return ordering.TierFor(level)
}

func (r *Rules) baseRule(c evalContext) ([]domain.DerivedResource, error) {
	return []domain.DerivedResource{
		r.entry(c, domain.KindTextbook, c.year, "textbook", "Textbook", 1200, 4.6),
	}, nil
}

func (r *Rules) pastPaperRule(c evalContext) ([]domain.DerivedResource, error) {
	if !ordering.IsExamBearing(c.Level) {
		return nil, nil
	}

	out := make([]domain.DerivedResource, 0, pastPaperYears)
	for age := 1; age <= pastPaperYears; age++ {
		year := c.year - age
		recency := pastPaperYears + 1 - age
		e := r.entry(c, domain.KindExamPaper, year, "past", "Past Paper "+strconv.Itoa(year), 1000*recency, 4.0+0.1*float64(recency))
		out = append(out, e)
	}
	return out, nil
}

func (r *Rules) modelPaperRule(c evalContext) ([]domain.DerivedResource, error) {
	if !ordering.IsExamBearing(c.Level) {
		return nil, nil
	}
	return []domain.DerivedResource{
		r.entry(c, domain.KindModelPaper, c.year, "model", "Model Paper "+strconv.Itoa(c.year), 800, 4.4),
	}, nil
}

func (r *Rules) guessPaperRule(c evalContext) ([]domain.DerivedResource, error) {
	if c.Subject == "" || !r.core[normalizeSubject(c.Subject)] {
		return nil, nil
	}
	return []domain.DerivedResource{
		r.entry(c, domain.KindGuessPaper, c.year, "guess", "Guess Paper "+strconv.Itoa(c.year), 950, 4.2),
	}, nil
}

func (r *Rules) commonRule(c evalContext) ([]domain.DerivedResource, error) {
	return []domain.DerivedResource{
		r.entry(c, domain.KindDocument, c.year, "solved", "Solved Exercises", 700, 4.5),
		r.entry(c, domain.KindNotes, c.year, "short_notes", "Short Notes", 650, 4.3),
	}, nil
}

// levelTypeRule adds tier-specific extras. It only fires for level-wide
// contexts; a subject selection narrows output to subject material.
func (r *Rules) levelTypeRule(c evalContext) ([]domain.DerivedResource, error) {
	if c.Subject != "" {
		return nil, nil
	}

	switch tier := r.tierOf(c.Authority, c.Level); tier {
	case domain.TierSchool:
		out := []domain.DerivedResource{
			r.entry(c, domain.KindVideo, c.year, "lectures", "Video Lectures", 900, 4.4),
		}
		if ordering.IsTerminalSecondary(c.Level) {
			out = append(out, r.entry(c, domain.KindTextbook, c.year, "exam_guide", "Exam Preparation Guide", 850, 4.5))
		}
		return out, nil
	case domain.TierCollege:
		return []domain.DerivedResource{
			r.entry(c, domain.KindNotes, c.year, "chapter_notes", "Chapter-wise Notes", 600, 4.2),
			r.entry(c, domain.KindDocument, c.year, "practicals", "Practical Notebook", 400, 4.0),
		}, nil
	case domain.TierSpecialProgram:
		return []domain.DerivedResource{
			r.entry(c, domain.KindTextbook, c.year, "handbook", "Program Handbook", 300, 4.1),
		}, nil
	default:
		return nil, fmt.Errorf("%w: level %q has unknown tier %d", ErrRuleEvaluation, c.Level, tier)
	}
}

func (r *Rules) entry(c evalContext, kind domain.ResourceKind, year int, variant, label string, views int, rating float64) domain.DerivedResource {
	subject := c.Subject
	if subject == "" {
		subject = "All Subjects"
	}
	authority := c.Authority
	if r.name != nil {
		if n, ok := r.name(c.Authority); ok {
			authority = n
		}
	}

	return domain.DerivedResource{
		Resource: domain.Resource{
			ID:    ResourceID(c.SelectionContext, kind, year, variant),
			Title: fmt.Sprintf("%s %s %s %s", authority, c.Level, subject, label),
			Kind:  kind,
			Link:  r.link(c, year, variant),
			Hint:  domain.Hint{Icon: string(kind)},
		},
		Year:        year,
		ViewCount:   views,
		Rating:      rating,
		LastUpdated: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *Rules) link(c evalContext, year int, variant string) string {
	if r.linkBase == "" {
		return ""
	}
	subject := c.Subject
	if subject == "" {
		subject = "all"
	}
	return fmt.Sprintf("%s/%s/%s/%s/%s-%d", r.linkBase, slug(c.Authority), slug(c.Level), slug(subject), variant, year)
}

// ResourceID is the deterministic identity of a derived resource. The
// variant keeps two entries of the same kind and year apart.
func ResourceID(ctx domain.SelectionContext, kind domain.ResourceKind, year int, variant string) string {
	key := strings.Join([]string{
		ctx.Authority, ctx.Level, normalizeSubject(ctx.Subject), string(kind), strconv.Itoa(year), variant,
	}, "\x1f")
	return uuid.NewSHA1(namespace, []byte(key)).String()
}

func normalizeSubject(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func slug(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
