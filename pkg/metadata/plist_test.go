package metadata

import "testing"

func TestParseWindowBounds(t *testing.T) {
	x, y, w, h, err := parseWindowBounds("{{20, 10}, {400, 200}}")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if x != 20 || y != 10 || w != 400 || h != 200 {
		t.Errorf("got %g %g %g %g", x, y, w, h)
	}

	// Fractional coordinates and missing spaces both occur in the wild.
	x, y, w, h, err = parseWindowBounds("{{20.5,10},{400,200.25}}")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if x != 20.5 || h != 200.25 {
		t.Errorf("got %g %g %g %g", x, y, w, h)
	}

	for _, bad := range []string{"", "{{1, 2}}", "{{a, b}, {c, d}}"} {
		if _, _, _, _, err := parseWindowBounds(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestFormatWindowBoundsInverse(t *testing.T) {
	cases := [][4]float64{
		{20, 10, 400, 200},
		{0, 0, 1, 1},
		{-5, 30.5, 333.75, 90.25},
	}
	for _, c := range cases {
		s := formatWindowBounds(c[0], c[1], c[2], c[3])
		x, y, w, h, err := parseWindowBounds(s)
		if err != nil {
			t.Fatalf("parse of %q error: %v", s, err)
		}
		if x != c[0] || y != c[1] || w != c[2] || h != c[3] {
			t.Errorf("%v round-tripped via %q to %g %g %g %g", c, s, x, y, w, h)
		}
	}
}

func TestPlistRoundTrip(t *testing.T) {
	in := map[string]interface{}{
		"iconSize":  64.0,
		"arrangeBy": "name",
		"flag":      true,
		"alias":     []byte{1, 2, 3},
	}
	blob, err := encodePlist(in)
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	out, err := decodePlist(blob)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if v, ok := plistInt(out, "iconSize"); !ok || v != 64 {
		t.Errorf("iconSize: %v", out["iconSize"])
	}
	if v, ok := plistString(out, "arrangeBy"); !ok || v != "name" {
		t.Errorf("arrangeBy: %v", out["arrangeBy"])
	}
	if v, ok := plistBool(out, "flag"); !ok || !v {
		t.Errorf("flag: %v", out["flag"])
	}
	if v, ok := plistData(out, "alias"); !ok || len(v) != 3 {
		t.Errorf("alias: %v", out["alias"])
	}
}

func TestDecodePlistRejectsGarbage(t *testing.T) {
	if _, err := decodePlist([]byte("definitely not a plist")); err == nil {
		t.Errorf("expected an error for garbage input")
	}
}
