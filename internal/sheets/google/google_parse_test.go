package google

import (
	"testing"
)

func TestParseCategories(t *testing.T) {
	values := [][]interface{}{
		{"Categoria", "Palabras clave"},
		{"Transporte", "gasolina, Uber ,taxi"},
		{"Comida", "tacos,pizza"},
		{"comida", "Tacos, sushi"},
		{"", "huerfano"},
		{"Other", "nada"},
		{"Salud"},
	}

	got := parseCategories(values)
	names := []string{"comida", "other", "salud", "transporte"}
	if len(got) != len(names) {
		t.Fatalf("expected %d categories, got %+v", len(names), got)
	}
	for i, name := range names {
		if got[i].Name != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, got[i].Name)
		}
	}

	if kws := got[0].Keywords; len(kws) != 3 || kws[0] != "tacos" || kws[2] != "sushi" {
		t.Fatalf("expected merged comida keywords, got %v", kws)
	}
	if len(got[1].Keywords) != 0 {
		t.Fatalf("fallback category must not carry keywords: %v", got[1].Keywords)
	}
	if len(got[2].Keywords) != 0 {
		t.Fatalf("expected no salud keywords, got %v", got[2].Keywords)
	}
	if kws := got[3].Keywords; len(kws) != 3 || kws[1] != "uber" {
		t.Fatalf("unexpected transporte keywords: %v", kws)
	}
}

func TestParseCategoriesWithoutHeader(t *testing.T) {
	got := parseCategories([][]interface{}{{"Comida", "tacos"}})
	if len(got) != 2 || got[0].Name != "comida" || got[1].Name != "other" {
		t.Fatalf("unexpected result: %+v", got)
	}

	empty := parseCategories(nil)
	if len(empty) != 1 || empty[0].Name != "other" {
		t.Fatalf("expected only the fallback category, got %+v", empty)
	}
}
