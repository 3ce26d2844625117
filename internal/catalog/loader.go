package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/corpix/uarand"
	"github.com/klauspost/compress/zstd"

	"github.com/puntodigital/cursosbot/internal/config"
	"github.com/puntodigital/cursosbot/internal/logger"
	"github.com/puntodigital/cursosbot/internal/metrics"
)

// rawCourse mirrors the raw catalog object shape. Extraction tolerates
// missing fields; only id and titulo are required for a record to load.
type rawCourse struct {
	ID               string         `json:"id"`
	Titulo           string         `json:"titulo"`
	DescripcionCorta string         `json:"descripcion_corta"`
	DescripcionLarga string         `json:"descripcion_larga"`
	Actividades      string         `json:"actividades"`
	DuracionTotal    string         `json:"duracion_total"`
	FechaInicio      string         `json:"fecha_inicio"`
	FechaFin         string         `json:"fecha_fin"`
	FechaInicioTexto string         `json:"fecha_inicio_texto"`
	FechaFinTexto    string         `json:"fecha_fin_texto"`
	Frecuencia       string         `json:"frecuencia"`
	HorasPorClase    []string       `json:"horas_por_clase"`
	Horarios         []string       `json:"horarios"`
	Localidades      []string       `json:"localidades"`
	Direcciones      []string       `json:"direcciones"`
	Requisitos       *rawRequisitos `json:"requisitos"`
	Materiales       *rawMateriales `json:"materiales"`
	Formulario       string         `json:"formulario"`
	Imagen           string         `json:"imagen"`
	Estado           string         `json:"estado"`
	InscripcionDesde string         `json:"inscripcion_desde"`
	InscripcionHasta string         `json:"inscripcion_hasta"`
	Cupo             int            `json:"cupo"`
}

type rawRequisitos struct {
	MayorDe18          bool     `json:"mayor_de_18"`
	CarnetConducir     bool     `json:"carnet_conducir"`
	PrimariaCompleta   bool     `json:"primaria_completa"`
	SecundariaCompleta bool     `json:"secundaria_completa"`
	Otros              []string `json:"otros"`
}

type rawMateriales struct {
	Alumno []string `json:"alumno"`
	Curso  []string `json:"curso"`
}

// pickCourse extracts a sanitized Course from a raw catalog object.
// Returns false when the record lacks an id or title.
func pickCourse(raw rawCourse) (Course, bool) {
	id := strings.TrimSpace(raw.ID)
	titulo := SanitizeText(raw.Titulo)
	if id == "" || titulo == "" {
		return Course{}, false
	}

	course := Course{
		ID:               id,
		Titulo:           titulo,
		DescripcionCorta: SanitizeText(raw.DescripcionCorta),
		DescripcionLarga: SanitizeText(raw.DescripcionLarga),
		Actividades:      SanitizeText(raw.Actividades),
		DuracionTotal:    SanitizeText(raw.DuracionTotal),
		FechaInicio:      strings.TrimSpace(raw.FechaInicio),
		FechaFin:         strings.TrimSpace(raw.FechaFin),
		FechaInicioTexto: SanitizeText(raw.FechaInicioTexto),
		FechaFinTexto:    SanitizeText(raw.FechaFinTexto),
		Frecuencia:       SanitizeText(raw.Frecuencia),
		HorasPorClase:    sanitizeAll(raw.HorasPorClase, MaxHorasPorClase),
		Horarios:         sanitizeAll(raw.Horarios, MaxHorarios),
		Localidades:      sanitizeAll(raw.Localidades, MaxLocalidades),
		Direcciones:      sanitizeAll(raw.Direcciones, MaxDirecciones),
		Formulario:       strings.TrimSpace(raw.Formulario),
		Imagen:           strings.TrimSpace(raw.Imagen),
		Estado:           ParseEstado(raw.Estado),
		InscripcionDesde: strings.TrimSpace(raw.InscripcionDesde),
		InscripcionHasta: strings.TrimSpace(raw.InscripcionHasta),
		Cupo:             max(raw.Cupo, 0),
	}

	if raw.Requisitos != nil {
		course.Requisitos = Requisitos{
			MayorDe18:          raw.Requisitos.MayorDe18,
			CarnetConducir:     raw.Requisitos.CarnetConducir,
			PrimariaCompleta:   raw.Requisitos.PrimariaCompleta,
			SecundariaCompleta: raw.Requisitos.SecundariaCompleta,
			Otros:              sanitizeAll(raw.Requisitos.Otros, MaxOtrosReq),
		}
	}
	if raw.Materiales != nil {
		course.Materiales = Materiales{
			Alumno: sanitizeAll(raw.Materiales.Alumno, MaxMateriales),
			Curso:  sanitizeAll(raw.Materiales.Curso, MaxMateriales),
		}
	}

	return course, true
}

// Decode parses raw catalog bytes into sanitized courses.
// The root must be a JSON array; records without id or title are skipped.
func Decode(data []byte) ([]Course, error) {
	var raws []rawCourse
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}

	courses := make([]Course, 0, len(raws))
	for _, raw := range raws {
		if course, ok := pickCourse(raw); ok {
			courses = append(courses, course)
		}
	}
	return courses, nil
}

// Loader resolves the configured catalog source and produces a Store.
// Every failure degrades to an empty catalog: the assistant keeps answering
// without course-specific help rather than crashing at startup.
type Loader struct {
	cfg     *config.Config
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewLoader creates a catalog loader.
func NewLoader(cfg *config.Config, log *logger.Logger, m *metrics.Metrics) *Loader {
	return &Loader{
		cfg:     cfg,
		logger:  log.WithModule("catalog"),
		metrics: m,
	}
}

// Load reads the catalog from its configured source and returns a Store.
// The returned Store is never nil.
func (l *Loader) Load(ctx context.Context) *Store {
	source, data, err := l.read(ctx)
	if err != nil {
		l.metrics.RecordCatalogLoad(source, "error")
		l.logger.WithError(err).WithField("source", source).
			Warn("Catalog load failed, continuing with empty catalog")
		return NewStore(nil)
	}

	courses, err := Decode(data)
	if err != nil {
		l.metrics.RecordCatalogLoad(source, "error")
		l.logger.WithError(err).WithField("source", source).
			Warn("Catalog decode failed, continuing with empty catalog")
		return NewStore(nil)
	}

	store := NewStore(courses)
	l.metrics.RecordCatalogLoad(source, "success")
	l.metrics.SetCatalogSize(len(store.All()), len(store.Eligible()))
	l.logger.WithField("courses", len(store.All())).
		WithField("eligible", len(store.Eligible())).
		WithField("source", source).
		Info("Catalog loaded")
	return store
}

// read resolves the source precedence: R2 object, then http(s) URL, then
// local file. Returns the source label for logging and metrics.
func (l *Loader) read(ctx context.Context) (string, []byte, error) {
	switch {
	case l.cfg.R2.Enabled:
		data, err := l.readR2(ctx)
		return "r2", data, err
	case strings.HasPrefix(l.cfg.CatalogPath, "http://"), strings.HasPrefix(l.cfg.CatalogPath, "https://"):
		data, err := l.readHTTP(ctx)
		return "http", data, err
	default:
		data, err := l.readFile()
		return "file", data, err
	}
}

func (l *Loader) readFile() ([]byte, error) {
	data, err := os.ReadFile(l.cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %q: %w", l.cfg.CatalogPath, err)
	}
	return l.maybeDecompress(l.cfg.CatalogPath, data)
}

func (l *Loader) readHTTP(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.CatalogTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.CatalogPath, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: build request: %w", err)
	}
	// Some catalog hosts reject default Go user agents.
	req.Header.Set("User-Agent", uarand.GetRandom())
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: l.cfg.CatalogTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch %q: %w", l.cfg.CatalogPath, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: fetch %q: unexpected status %d", l.cfg.CatalogPath, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("catalog: read body: %w", err)
	}
	return l.maybeDecompress(l.cfg.CatalogPath, data)
}

func (l *Loader) readR2(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.CatalogTimeout)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			l.cfg.R2.AccessKeyID,
			l.cfg.R2.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(l.cfg.R2.Endpoint())
		o.UsePathStyle = true // Required for R2
	})

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.cfg.R2.BucketName),
		Key:    aws.String(l.cfg.R2.CatalogKey),
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: get r2 object %q: %w", l.cfg.R2.CatalogKey, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("catalog: read r2 object: %w", err)
	}
	return l.maybeDecompress(l.cfg.R2.CatalogKey, data)
}

// maybeDecompress handles .zst catalog artifacts.
func (l *Loader) maybeDecompress(name string, data []byte) ([]byte, error) {
	if !strings.HasSuffix(name, ".zst") {
		return data, nil
	}

	reader, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("catalog: zstd reader: %w", err)
	}
	defer reader.Close()

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("catalog: decompress: %w", err)
	}
	return decompressed, nil
}
