// Package catalog loads and holds the immutable course catalog.
// Records are sanitized once at load time and never mutated afterwards.
package catalog

import (
	"github.com/puntodigital/cursosbot/internal/textmatch"
)

// Estado is the enrollment state of a course. Closed enumeration; synonym
// and casing variants collapse to these canonical values at load time.
type Estado string

const (
	EstadoProximo            Estado = "proximo"
	EstadoInscripcionAbierta Estado = "inscripcion_abierta"
	EstadoUltimosCupos       Estado = "ultimos_cupos"
	EstadoEnCurso            Estado = "en_curso"
	EstadoFinalizado         Estado = "finalizado"
	EstadoCupoCompleto       Estado = "cupo_completo"
)

// Eligible reports whether the assistant may proactively suggest a course
// in this state.
func (e Estado) Eligible() bool {
	switch e {
	case EstadoProximo, EstadoInscripcionAbierta, EstadoUltimosCupos:
		return true
	default:
		return false
	}
}

// Closed reports whether the state means enrollment is no longer possible.
// Direct mentions of courses in these states are answered with a fixed
// template, never the generative backend.
func (e Estado) Closed() bool {
	switch e {
	case EstadoEnCurso, EstadoFinalizado, EstadoCupoCompleto:
		return true
	default:
		return false
	}
}

// estadoSynonyms maps normalized estado labels to canonical values.
var estadoSynonyms = map[string]Estado{
	"proximo":                EstadoProximo,
	"proximamente":           EstadoProximo,
	"inscripcion abierta":    EstadoInscripcionAbierta,
	"inscripciones abiertas": EstadoInscripcionAbierta,
	"abierta":                EstadoInscripcionAbierta,
	"abierto":                EstadoInscripcionAbierta,
	"ultimos cupos":          EstadoUltimosCupos,
	"ultimos lugares":        EstadoUltimosCupos,
	"en curso":               EstadoEnCurso,
	"cursando":               EstadoEnCurso,
	"iniciado":               EstadoEnCurso,
	"finalizado":             EstadoFinalizado,
	"finalizada":             EstadoFinalizado,
	"terminado":              EstadoFinalizado,
	"cerrado":                EstadoFinalizado,
	"cupo completo":          EstadoCupoCompleto,
	"cupos completos":        EstadoCupoCompleto,
	"completo":               EstadoCupoCompleto,
	"lleno":                  EstadoCupoCompleto,
}

// ParseEstado collapses a raw estado label to its canonical value.
// Unrecognized labels map to EstadoProximo: the catalog is operator-curated
// and mapping an unknown label to a closed state would make the assistant
// affirm something false ("ya finalizó") about an open course.
func ParseEstado(raw string) Estado {
	norm := textmatch.Normalize(raw)
	if estado, ok := estadoSynonyms[norm]; ok {
		return estado
	}
	return EstadoProximo
}

// Field caps applied at load time.
const (
	MaxHorasPorClase = 3
	MaxHorarios      = 8
	MaxLocalidades   = 12
	MaxDirecciones   = 8
	MaxOtrosReq      = 10
	MaxMateriales    = 30
)

// Requisitos holds the enrollment requirements of a course.
type Requisitos struct {
	MayorDe18          bool     `json:"mayor_de_18"`
	CarnetConducir     bool     `json:"carnet_conducir"`
	PrimariaCompleta   bool     `json:"primaria_completa"`
	SecundariaCompleta bool     `json:"secundaria_completa"`
	Otros              []string `json:"otros,omitempty"`
}

// Materiales lists what the student brings and what the course provides.
type Materiales struct {
	Alumno []string `json:"alumno,omitempty"`
	Curso  []string `json:"curso,omitempty"`
}

// Course is an immutable, sanitized course record. All free-text fields
// have markup characters neutralized at load time so nothing catalog-supplied
// ever reaches the transport layer unescaped.
type Course struct {
	ID               string     `json:"id"`
	Titulo           string     `json:"titulo"`
	DescripcionCorta string     `json:"descripcion_corta,omitempty"`
	DescripcionLarga string     `json:"descripcion_larga,omitempty"`
	Actividades      string     `json:"actividades,omitempty"`
	DuracionTotal    string     `json:"duracion_total,omitempty"`
	FechaInicio      string     `json:"fecha_inicio,omitempty"` // ISO date or empty
	FechaFin         string     `json:"fecha_fin,omitempty"`    // ISO date or empty
	FechaInicioTexto string     `json:"fecha_inicio_texto,omitempty"`
	FechaFinTexto    string     `json:"fecha_fin_texto,omitempty"`
	Frecuencia       string     `json:"frecuencia,omitempty"`
	HorasPorClase    []string   `json:"horas_por_clase,omitempty"`
	Horarios         []string   `json:"horarios,omitempty"`
	Localidades      []string   `json:"localidades,omitempty"`
	Direcciones      []string   `json:"direcciones,omitempty"`
	Requisitos       Requisitos `json:"requisitos"`
	Materiales       Materiales `json:"materiales"`
	Formulario       string     `json:"formulario,omitempty"` // Registration form URL
	Imagen           string     `json:"imagen,omitempty"`
	Estado           Estado     `json:"estado"`
	InscripcionDesde string     `json:"inscripcion_desde,omitempty"`
	InscripcionHasta string     `json:"inscripcion_hasta,omitempty"`
	Cupo             int        `json:"cupo,omitempty"` // 0 = unspecified
}
