package vector

import "testing"

func TestLiteralRoundTrip(t *testing.T) {
	in := []float32{0.5, -1.25, 0}
	got, err := ParseLiteral(ToLiteral(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("expected %d components, got %d", len(in), len(got))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Fatalf("component %d: got %f want %f", i, got[i], in[i])
		}
	}
}

func TestParseLiteralEmpty(t *testing.T) {
	got, err := ParseLiteral("[]")
	if err != nil {
		t.Fatalf("parse empty: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty vector, got %v", got)
	}
}

func TestParseLiteralMalformed(t *testing.T) {
	for _, s := range []string{"", "1,2,3", "[1,2", "[a,b]"} {
		if _, err := ParseLiteral(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}
