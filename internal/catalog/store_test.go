package catalog

import "testing"

func TestStorePartition(t *testing.T) {
	courses := []Course{
		{ID: "a", Titulo: "A", Estado: EstadoProximo},
		{ID: "b", Titulo: "B", Estado: EstadoEnCurso},
		{ID: "c", Titulo: "C", Estado: EstadoInscripcionAbierta},
		{ID: "d", Titulo: "D", Estado: EstadoFinalizado},
		{ID: "e", Titulo: "E", Estado: EstadoUltimosCupos},
		{ID: "f", Titulo: "F", Estado: EstadoCupoCompleto},
	}
	store := NewStore(courses)

	if got := len(store.All()); got != 6 {
		t.Errorf("len(All()) = %d, want 6", got)
	}

	eligible := store.Eligible()
	if len(eligible) != 3 {
		t.Fatalf("len(Eligible()) = %d, want 3", len(eligible))
	}
	// Catalog order is preserved in both views.
	wantOrder := []string{"a", "c", "e"}
	for i, c := range eligible {
		if c.ID != wantOrder[i] {
			t.Errorf("Eligible()[%d].ID = %q, want %q", i, c.ID, wantOrder[i])
		}
	}
}

func TestStoreByID(t *testing.T) {
	store := NewStore([]Course{
		{ID: "c1", Titulo: "Soldadura", Estado: EstadoProximo},
	})

	course, ok := store.ByID("c1")
	if !ok || course.Titulo != "Soldadura" {
		t.Errorf("ByID(c1) = %+v, %v", course, ok)
	}
	if _, ok := store.ByID("missing"); ok {
		t.Error("ByID(missing) should report not found")
	}
}

func TestStoreEmpty(t *testing.T) {
	if !NewStore(nil).Empty() {
		t.Error("NewStore(nil) should be empty")
	}
	if NewStore([]Course{{ID: "x", Titulo: "X"}}).Empty() {
		t.Error("non-empty store reported empty")
	}
}
