package parser

import "testing"

func TestExtractDescription_Payload(t *testing.T) {
	desc, ok := ExtractDescription(loadFixture(t, "item_description.html"))
	if !ok {
		t.Fatalf("expected description")
	}
	want := "מקום עגינה במרינה הרצליה"
	if desc != want {
		t.Fatalf("unexpected description %q", desc)
	}
}

func TestExtractDescription_MetaFallback(t *testing.T) {
	desc, ok := ExtractDescription(loadFixture(t, "item_meta_only.html"))
	if !ok {
		t.Fatalf("expected meta description")
	}
	if desc != "Yamaha 115, marina berth paid until 2027" {
		t.Fatalf("unexpected description %q", desc)
	}
}

func TestExtractDescription_Missing(t *testing.T) {
	if _, ok := ExtractDescription("<html><body>nothing here</body></html>"); ok {
		t.Fatalf("expected no description")
	}
}
