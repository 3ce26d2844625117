// Package main provides an offline catalog validation tool.
// It decodes a catalog file the same way the server does and reports
// per-state counts plus records that would degrade answer quality.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/puntodigital/cursosbot/internal/catalog"
)

func main() {
	path := flag.String("file", "data/cursos.json", "catalog JSON file to validate")
	flag.Parse()

	data, err := os.ReadFile(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", *path, err)
		os.Exit(1)
	}

	courses, err := catalog.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode %s: %v\n", *path, err)
		os.Exit(1)
	}

	byEstado := map[catalog.Estado]int{}
	seen := map[string]bool{}
	var problems []string

	for _, c := range courses {
		byEstado[c.Estado]++

		if seen[c.ID] {
			problems = append(problems, fmt.Sprintf("duplicate id %q", c.ID))
		}
		seen[c.ID] = true

		if c.Estado.Eligible() && c.Formulario == "" {
			problems = append(problems, fmt.Sprintf("course %q (%s) is open but has no registration form", c.Titulo, c.ID))
		}
		if c.DescripcionCorta == "" && c.DescripcionLarga == "" {
			problems = append(problems, fmt.Sprintf("course %q (%s) has no description", c.Titulo, c.ID))
		}
	}

	fmt.Printf("catalog: %s\n", *path)
	fmt.Printf("courses: %d\n", len(courses))
	for _, estado := range []catalog.Estado{
		catalog.EstadoProximo,
		catalog.EstadoInscripcionAbierta,
		catalog.EstadoUltimosCupos,
		catalog.EstadoEnCurso,
		catalog.EstadoFinalizado,
		catalog.EstadoCupoCompleto,
	} {
		if n := byEstado[estado]; n > 0 {
			fmt.Printf("  %-20s %d\n", estado, n)
		}
	}

	if len(problems) == 0 {
		fmt.Println("no problems found")
		return
	}

	fmt.Printf("\n%d problem(s):\n", len(problems))
	for _, p := range problems {
		fmt.Println("  " + p)
	}
	os.Exit(1)
}
