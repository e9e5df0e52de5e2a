package utilityfn

import "testing"

func TestParseAxis(t *testing.T) {
	axis, err := ParseAxis("x=1:5:5")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if axis.Name != "x" || axis.Lo != 1 || axis.Hi != 5 || axis.Steps != 5 {
		t.Fatalf("unexpected axis: %+v", axis)
	}
	for _, bad := range []string{"x", "=1:2:3", "x=1:2", "x=a:2:3", "x=1:b:3", "x=1:2:c", "x=1:2:0"} {
		if _, err := ParseAxis(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestExpandGrid(t *testing.T) {
	points := ExpandGrid(Args{"z": 9},
		Axis{Name: "x", Lo: 0, Hi: 1, Steps: 3},
		Axis{Name: "y", Lo: 10, Hi: 10, Steps: 1},
	)
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	want := []float64{0, 0.5, 1}
	for i, p := range points {
		if p["x"] != want[i] || p["y"] != 10 || p["z"] != 9 {
			t.Fatalf("unexpected point %d: %+v", i, p)
		}
	}
	if got := ExpandGrid(nil); len(got) != 1 || len(got[0]) != 0 {
		t.Fatalf("expected a single empty point, got %+v", got)
	}
}

func TestParseArgs(t *testing.T) {
	args, err := ParseArgs([]string{"x=4", " y = 2.5"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if args["x"] != 4 || args["y"] != 2.5 {
		t.Fatalf("unexpected args: %+v", args)
	}
	if _, err := ParseArgs([]string{"x"}); err == nil {
		t.Fatal("expected missing value error")
	}
	if _, err := ParseArgs([]string{"x=abc"}); err == nil {
		t.Fatal("expected parse error")
	}
}
