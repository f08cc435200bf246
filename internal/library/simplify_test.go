package library

import "testing"

func TestSimplify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"The Beatles", "beatles"},
		{"Beatles", "beatles"},
		{"Guns N' Roses", "gunsnroses"},
		{"Café del Mar", "cafedelmar"},
		{"The", ""},
		{"  Radiohead  ", "radiohead"},
		{"Sigur Rós", "sigurros"},
	}

	for _, c := range cases {
		if got := Simplify(c.in); got != c.want {
			t.Errorf("Simplify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSimplifyCollapsesNearDuplicates(t *testing.T) {
	if Simplify("The Beatles") != Simplify("beatles") {
		t.Errorf("expected leading-the forms to collapse to the same key")
	}
	if Simplify("Sigur Rós") != Simplify("sigur ros") {
		t.Errorf("expected accented and unaccented forms to collapse to the same key")
	}
}
