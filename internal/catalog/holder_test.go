package catalog

import "testing"

func TestHolderNilInitial(t *testing.T) {
	h := NewHolder(nil)
	if h.Get() == nil {
		t.Fatal("holder should never return nil")
	}
	if !h.Get().Empty() {
		t.Error("nil initial store should read as empty")
	}
}

func TestHolderSwap(t *testing.T) {
	first := NewStore([]Course{{ID: "a", Titulo: "Panadería", Estado: EstadoProximo}})
	h := NewHolder(first)

	if got := h.Get(); got != first {
		t.Error("expected initial snapshot")
	}

	second := NewStore([]Course{
		{ID: "a", Titulo: "Panadería", Estado: EstadoProximo},
		{ID: "b", Titulo: "Herrería", Estado: EstadoEnCurso},
	})
	h.Set(second)
	if got := h.Get(); got != second {
		t.Error("expected swapped snapshot")
	}

	h.Set(nil)
	if got := h.Get(); got != second {
		t.Error("nil swap should be ignored")
	}
}
