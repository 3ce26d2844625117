// Package rules implements the deterministic short-circuit replies that
// run before any generative call. Enrollment constraints (a finished or
// full course cannot be joined) are enforced here in code so they never
// depend on a model following its instructions.
package rules

import (
	"fmt"
	"regexp"

	"github.com/puntodigital/cursosbot/internal/catalog"
	"github.com/puntodigital/cursosbot/internal/memory"
	"github.com/puntodigital/cursosbot/internal/metrics"
	"github.com/puntodigital/cursosbot/internal/textmatch"
)

// Rule labels, used for logging and metrics.
const (
	RuleClosedState  = "closed_state"
	RuleLinkFollowup = "link_followup"
)

// linkIntent matches normalized text asking for a link, form or how to
// enroll. It only ever fires when a previous reply already suggested a
// course with a registration URL, so moderate recall is acceptable.
var linkIntent = regexp.MustCompile(`\b(link|enlace|url|formulario|form|inscri[a-z]*|anot[a-z]*|registr[a-z]*)\b`)

// Result is a resolved templated reply.
type Result struct {
	Reply string
	Rule  string
}

// Resolver evaluates the hard rules in strict order. The first matching
// rule wins and suppresses the generative path.
type Resolver struct {
	matcher *textmatch.Matcher
	memory  *memory.Store
	metrics *metrics.Metrics
}

// NewResolver creates a hard-rule resolver.
func NewResolver(matcher *textmatch.Matcher, mem *memory.Store, m *metrics.Metrics) *Resolver {
	return &Resolver{matcher: matcher, memory: mem, metrics: m}
}

// Resolve inspects an inbound message against the catalog and the
// chat's memory. Reports whether a rule fired; when it does, the caller
// must send the templated reply and skip the generative backend.
//
// Rule order is fixed: a message that both names a finished course and
// asks for a link gets the closed-state template, not the stored URL.
func (r *Resolver) Resolve(chatID, message string, courses []catalog.Course) (Result, bool) {
	if result, ok := r.closedStateMention(message, courses); ok {
		r.metrics.RecordHardRule(RuleClosedState)
		return result, true
	}
	if result, ok := r.linkFollowup(chatID, message); ok {
		r.metrics.RecordHardRule(RuleLinkFollowup)
		return result, true
	}
	return Result{}, false
}

// closedStateMention fires when the message directly names a course
// whose enrollment is closed. The templated reply never includes a
// registration link.
func (r *Resolver) closedStateMention(message string, courses []catalog.Course) (Result, bool) {
	for _, course := range courses {
		if !course.Estado.Closed() {
			continue
		}
		if !r.matcher.IsDirectTitleMention(message, course.Titulo) {
			continue
		}
		return Result{
			Reply: ClosedStateReply(course.Estado, course.Titulo),
			Rule:  RuleClosedState,
		}, true
	}
	return Result{}, false
}

// linkFollowup fires when the message asks for a link or form and a
// registration URL was already suggested to this chat.
func (r *Resolver) linkFollowup(chatID, message string) (Result, bool) {
	if !linkIntent.MatchString(textmatch.Normalize(message)) {
		return Result{}, false
	}
	suggested, ok := r.memory.LastSuggested(chatID)
	if !ok || suggested.Formulario == "" {
		return Result{}, false
	}
	return Result{
		Reply: fmt.Sprintf("Formulario de inscripción: %s", suggested.Formulario),
		Rule:  RuleLinkFollowup,
	}, true
}

// ClosedStateReply renders the fixed template for a closed enrollment
// state. Falls back to the in-progress wording for any state outside
// the closed set, though callers only pass closed states.
func ClosedStateReply(estado catalog.Estado, titulo string) string {
	switch estado {
	case catalog.EstadoFinalizado:
		return fmt.Sprintf("El curso *%s* ya finalizó, no podés inscribirte.", titulo)
	case catalog.EstadoCupoCompleto:
		return fmt.Sprintf("El curso *%s* no tiene cupos disponibles en este momento.", titulo)
	default:
		return fmt.Sprintf("El curso *%s* ya está en curso, la inscripción se encuentra cerrada.", titulo)
	}
}
