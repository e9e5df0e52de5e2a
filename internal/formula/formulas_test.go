package formula

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestFunctionFormulaValues(t *testing.T) {
	cases := []struct {
		id   string
		a, d float64
		w, x []float64
		c    Coefficients
		want float64
	}{
		{id: CobbDouglas, a: 1, d: 1, w: []float64{0.5, 0.5}, x: []float64{4, 9}, want: 6},
		{id: CobbDouglas, a: 2, d: 2, w: []float64{0.5, 0.5}, x: []float64{4, 9}, want: 72},
		{id: CES, a: 1, d: 1, w: []float64{0.5, 0.5}, x: []float64{4, 4}, c: Coefficients{"p": 0.5}, want: 4},
		{id: CES, a: 1, d: 1, w: []float64{0.25, 0.75}, x: []float64{2, 6}, c: Coefficients{"p": 1}, want: 5},
		{id: Linear, a: 1, d: 1, w: []float64{0.5, 0.5}, x: []float64{2, 4}, want: 3},
		{id: Linear, a: 3, d: 2, w: []float64{0.5, 0.5}, x: []float64{2, 4}, want: 27},
	}
	for _, c := range cases {
		f, err := LookupFunction(c.id)
		if err != nil {
			t.Fatalf("lookup %s: %v", c.id, err)
		}
		if got := f.Value(c.a, c.d, c.w, c.x, c.c); !almostEqual(got, c.want, 1e-12) {
			t.Fatalf("%s value: got=%f want=%f", c.id, got, c.want)
		}
	}
}

func TestIndexFormulaValues(t *testing.T) {
	tol := []float64{1, 2}
	w := []float64{0.5, 0.5}
	cases := []struct {
		id   string
		x    []float64
		want float64
	}{
		{id: Additive, x: []float64{2, 4}, want: 0.5*2 + 0.25*4},
		{id: Inverted, x: []float64{2, 4}, want: 0.5/2 + 0.25/4},
		{id: Logarithm, x: []float64{0, math.E - 1}, want: 0.25},
		{id: Tangent, x: []float64{0.5, 0}, want: 0.5},
		{id: RTangent, x: []float64{0.5, 1}, want: 0.5},
	}
	for _, c := range cases {
		f, err := LookupIndex(c.id)
		if err != nil {
			t.Fatalf("lookup %s: %v", c.id, err)
		}
		if got := f.Value(1, tol, w, c.x); !almostEqual(got, c.want, 1e-12) {
			t.Fatalf("%s value: got=%f want=%f", c.id, got, c.want)
		}
	}
}

func TestFunctionDerivativesMatchFiniteDifference(t *testing.T) {
	const h = 1e-6
	w := []float64{0.3, 0.7}
	x := []float64{2.5, 1.5}
	cases := []struct {
		id   string
		a, d float64
		c    Coefficients
	}{
		{id: CobbDouglas, a: 1, d: 1},
		{id: CobbDouglas, a: 1, d: 0.8},
		{id: CES, a: 1.5, d: 0.9, c: Coefficients{"p": 0.5}},
		{id: CES, a: 1, d: 1, c: Coefficients{"p": -1}},
		{id: Linear, a: 2, d: 1},
		{id: Linear, a: 1, d: 0.5},
	}
	for _, c := range cases {
		f, err := LookupFunction(c.id)
		if err != nil {
			t.Fatalf("lookup %s: %v", c.id, err)
		}
		for i := range x {
			up := append([]float64(nil), x...)
			down := append([]float64(nil), x...)
			up[i] += h
			down[i] -= h
			numeric := (f.Value(c.a, c.d, w, up, c.c) - f.Value(c.a, c.d, w, down, c.c)) / (2 * h)
			analytic := f.Derivative(c.a, c.d, w, x, c.c, i)
			if !almostEqual(numeric, analytic, 1e-5) {
				t.Fatalf("%s d/dx%d: analytic=%f numeric=%f", c.id, i, analytic, numeric)
			}
		}
	}
}

func TestIndexDerivativesMatchFiniteDifference(t *testing.T) {
	const h = 1e-7
	tol := []float64{1, 2}
	w := []float64{0.4, 0.6}
	x := []float64{0.3, 0.6}
	for _, id := range ListIndexFormulas() {
		f, err := LookupIndex(id)
		if err != nil {
			t.Fatalf("lookup %s: %v", id, err)
		}
		for i := range x {
			up := append([]float64(nil), x...)
			down := append([]float64(nil), x...)
			up[i] += h
			down[i] -= h
			numeric := (f.Value(1.2, tol, w, up) - f.Value(1.2, tol, w, down)) / (2 * h)
			analytic := f.Derivative(1.2, tol, w, x, i)
			if !almostEqual(numeric, analytic, 1e-5) {
				t.Fatalf("%s d/dx%d: analytic=%f numeric=%f", id, i, analytic, numeric)
			}
		}
	}
}

func TestCESRequiresPositive(t *testing.T) {
	f, err := LookupFunction(CES)
	if err != nil {
		t.Fatalf("lookup ces: %v", err)
	}
	if !f.RequiresPositive(Coefficients{"p": 0.5}) {
		t.Fatal("expected fractional exponent to require positive inputs")
	}
	if !f.RequiresPositive(Coefficients{"p": -2}) {
		t.Fatal("expected negative exponent to require positive inputs")
	}
	if f.RequiresPositive(Coefficients{"p": 2}) {
		t.Fatal("expected integer exponent to accept non-positive inputs")
	}
}

func TestRegisterFunctionDuplicate(t *testing.T) {
	resetCatalogForTests()
	t.Cleanup(resetCatalogForTests)

	err := RegisterFunction(Function{ID: CES, Value: cesValue, Derivative: cesDerivative})
	if !errors.Is(err, ErrFormulaExists) {
		t.Fatalf("expected ErrFormulaExists, got: %v", err)
	}
}

func TestRegisterCustomFormula(t *testing.T) {
	resetCatalogForTests()
	t.Cleanup(resetCatalogForTests)

	err := RegisterIndex(Index{
		ID: "maximum",
		Value: func(a float64, _, _, x []float64) float64 {
			best := math.Inf(-1)
			for _, v := range x {
				best = math.Max(best, v)
			}
			return best * a
		},
	})
	if err != nil {
		t.Fatalf("register index: %v", err)
	}
	f, err := LookupIndex("maximum")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got := f.Value(2, nil, nil, []float64{1, 3, 2}); got != 6 {
		t.Fatalf("unexpected custom value: got=%f want=6", got)
	}
	if err := RegisterIndex(Index{ID: "broken"}); err == nil {
		t.Fatal("expected missing value function error")
	}
	if err := RegisterFunction(Function{ID: ""}); err == nil {
		t.Fatal("expected empty id error")
	}
}

func TestLookupNotFound(t *testing.T) {
	if _, err := LookupFunction("missing"); !errors.Is(err, ErrFormulaNotFound) {
		t.Fatalf("expected ErrFormulaNotFound, got: %v", err)
	}
	if _, err := LookupIndex(CES); !errors.Is(err, ErrFormulaNotFound) {
		t.Fatalf("expected ces to be absent from index formulas, got: %v", err)
	}
}

func TestListFormulasSorted(t *testing.T) {
	functions := ListFunctionFormulas()
	want := []string{CES, CobbDouglas, Linear}
	if len(functions) != len(want) {
		t.Fatalf("unexpected function formulas: %+v", functions)
	}
	for i := range want {
		if functions[i] != want[i] {
			t.Fatalf("unexpected function formula order: %+v", functions)
		}
	}
	indexes := ListIndexFormulas()
	if len(indexes) != 5 || indexes[0] != Additive || indexes[4] != Tangent {
		t.Fatalf("unexpected index formulas: %+v", indexes)
	}
}

func TestCESValidateCoefficients(t *testing.T) {
	f, err := LookupFunction(CES)
	if err != nil {
		t.Fatalf("lookup ces: %v", err)
	}
	if f.ValidateCoefficients == nil {
		t.Fatal("expected ces to validate its coefficients")
	}
	for _, p := range []float64{0, math.NaN(), math.Inf(1)} {
		if err := f.ValidateCoefficients(Coefficients{"p": p}); err == nil {
			t.Fatalf("expected p=%f to be rejected", p)
		}
	}
	if err := f.ValidateCoefficients(Coefficients{"p": -0.5}); err != nil {
		t.Fatalf("unexpected error for p=-0.5: %v", err)
	}
}
