// Package grounding assembles the bounded payload handed to the
// generative backend: instructions, the eligible catalog, candidate
// title matches, trimmed history and the clamped user turn.
package grounding

import (
	"encoding/json"
	"fmt"

	"github.com/puntodigital/cursosbot/internal/catalog"
	"github.com/puntodigital/cursosbot/internal/config"
	"github.com/puntodigital/cursosbot/internal/llm"
	"github.com/puntodigital/cursosbot/internal/memory"
	"github.com/puntodigital/cursosbot/internal/textmatch"
)

// Builder produces llm.Request payloads under the configured budgets.
type Builder struct {
	cfg          config.BotConfig
	instructions string
}

// NewBuilder creates a grounding builder. An empty instructions string
// selects the built-in persona.
func NewBuilder(cfg config.BotConfig, instructions string) *Builder {
	if instructions == "" {
		instructions = DefaultInstructions
	}
	return &Builder{cfg: cfg, instructions: instructions}
}

// Build assembles the grounded request for one inbound message. Only
// eligible courses may appear in the catalog and candidate sections;
// the caller guarantees both arguments were computed from the eligible
// subset, which makes it structurally impossible for the model to
// suggest a closed course.
func (b *Builder) Build(eligible []catalog.Course, candidates []textmatch.Match, history []memory.Turn, userMessage string) *llm.Request {
	if len(history) > b.cfg.HistoryLimit {
		history = history[len(history)-b.cfg.HistoryLimit:]
	}

	return &llm.Request{
		Instructions: b.instructions,
		DataMarker:   DefaultDataMarker,
		Catalog:      b.serializeCatalog(eligible),
		Candidates:   serializeCandidates(candidates),
		History:      history,
		UserTurn:     memory.ClampText(userMessage, b.cfg.MessageMaxLen),
	}
}

// courseContext is the course view serialized into the model payload.
type courseContext struct {
	Titulo      string   `json:"titulo"`
	Descripcion string   `json:"descripcion,omitempty"`
	Actividades string   `json:"actividades,omitempty"`
	Estado      string   `json:"estado"`
	Duracion    string   `json:"duracion,omitempty"`
	Inicio      string   `json:"inicio,omitempty"`
	Fin         string   `json:"fin,omitempty"`
	Frecuencia  string   `json:"frecuencia,omitempty"`
	Horarios    []string `json:"horarios,omitempty"`
	Localidades []string `json:"localidades,omitempty"`
	Direcciones []string `json:"direcciones,omitempty"`
	Requisitos  []string `json:"requisitos,omitempty"`
	Materiales  []string `json:"materiales,omitempty"`
	Formulario  string   `json:"formulario,omitempty"`
	Cupo        int      `json:"cupo,omitempty"`
}

func toCourseContext(c catalog.Course) courseContext {
	desc := c.DescripcionLarga
	if desc == "" {
		desc = c.DescripcionCorta
	}
	inicio := c.FechaInicioTexto
	if inicio == "" {
		inicio = c.FechaInicio
	}
	fin := c.FechaFinTexto
	if fin == "" {
		fin = c.FechaFin
	}

	return courseContext{
		Titulo:      c.Titulo,
		Descripcion: desc,
		Actividades: c.Actividades,
		Estado:      string(c.Estado),
		Duracion:    c.DuracionTotal,
		Inicio:      inicio,
		Fin:         fin,
		Frecuencia:  c.Frecuencia,
		Horarios:    c.Horarios,
		Localidades: c.Localidades,
		Direcciones: c.Direcciones,
		Requisitos:  renderRequisitos(c.Requisitos),
		Materiales:  renderMateriales(c.Materiales),
		Formulario:  c.Formulario,
		Cupo:        c.Cupo,
	}
}

func renderRequisitos(r catalog.Requisitos) []string {
	var out []string
	if r.MayorDe18 {
		out = append(out, "ser mayor de 18 años")
	}
	if r.CarnetConducir {
		out = append(out, "carnet de conducir")
	}
	if r.PrimariaCompleta {
		out = append(out, "primaria completa")
	}
	if r.SecundariaCompleta {
		out = append(out, "secundaria completa")
	}
	return append(out, r.Otros...)
}

func renderMateriales(m catalog.Materiales) []string {
	out := make([]string, 0, len(m.Alumno)+len(m.Curso))
	for _, item := range m.Alumno {
		out = append(out, "trae el alumno: "+item)
	}
	for _, item := range m.Curso {
		out = append(out, "provee el curso: "+item)
	}
	return out
}

// serializeCatalog renders the eligible subset as JSON under the
// character budget. When the full serialization exceeds the budget,
// only the first MaxCoursesInContext records are kept.
func (b *Builder) serializeCatalog(eligible []catalog.Course) string {
	serialized := marshalCourses(eligible)
	if len(serialized) > b.cfg.ContextCharBudget && len(eligible) > b.cfg.MaxCoursesInContext {
		serialized = marshalCourses(eligible[:b.cfg.MaxCoursesInContext])
	}
	return "Cursos disponibles (JSON):\n" + serialized
}

func marshalCourses(courses []catalog.Course) string {
	views := make([]courseContext, 0, len(courses))
	for _, c := range courses {
		views = append(views, toCourseContext(c))
	}
	data, err := json.Marshal(views)
	if err != nil {
		// Course fields are plain strings and ints; Marshal cannot fail.
		return "[]"
	}
	return string(data)
}

// serializeCandidates renders the top title matches as a hint block.
func serializeCandidates(candidates []textmatch.Match) string {
	if len(candidates) == 0 {
		return ""
	}
	type hint struct {
		Titulo    string  `json:"titulo"`
		Similitud float64 `json:"similitud"`
	}
	hints := make([]hint, 0, len(candidates))
	for _, c := range candidates {
		hints = append(hints, hint{Titulo: c.Title, Similitud: round2(c.Score)})
	}
	data, err := json.Marshal(hints)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("Cursos que el mensaje podría estar mencionando (por similitud de título):\n%s", data)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
