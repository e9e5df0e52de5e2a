package utility

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestRegisterAndCreateIndexRoundTrip(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterIndex("myidx", "additive", []string{"a", "b"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	node, err := reg.CreateIndex("myidx", IndexConfig{Weights: map[string]float64{"a": 1, "b": 1}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := node.Evaluate(Args{"a": 2, "b": 2})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != 2.0 {
		t.Fatalf("unexpected score: got=%f want=2", got)
	}
}

func TestRegisterValidation(t *testing.T) {
	reg := NewRegistry()
	cases := []struct {
		name string
		err  error
	}{
		{"unknown formula", reg.RegisterIndex("x", "nope", []string{"a"})},
		{"function formula as index", reg.RegisterIndex("x", "ces", []string{"a"})},
		{"empty name", reg.RegisterIndex("", "additive", []string{"a"})},
		{"no parameters", reg.RegisterIndex("x", "additive", nil)},
		{"empty parameter", reg.RegisterIndex("x", "additive", []string{"a", ""})},
		{"duplicate parameter", reg.RegisterIndex("x", "additive", []string{"a", "a"})},
		{"empty coefficient", reg.RegisterFunction("y", "cobbdouglas", []string{"a"}, []string{""})},
		{"missing ces exponent", reg.RegisterFunction("y", "ces", []string{"a", "b"}, nil)},
	}
	for _, c := range cases {
		if !errors.Is(c.err, ErrConfiguration) {
			t.Fatalf("%s: expected ErrConfiguration, got: %v", c.name, c.err)
		}
	}
	if got := reg.Variants(); len(got) != 0 {
		t.Fatalf("expected no variants after failed registrations, got: %+v", got)
	}
}

func TestRegisterConflictingTemplate(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterFunction("u", "cobbdouglas", []string{"b", "a"}, nil); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := reg.RegisterFunction("u", "cobbdouglas", []string{"a", "b"}, nil); err != nil {
		t.Fatalf("identical re-register should be accepted: %v", err)
	}
	if err := reg.RegisterFunction("u", "linear", []string{"a", "b"}, nil); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for conflicting template, got: %v", err)
	}
	if err := reg.RegisterIndex("u", "additive", []string{"a", "b"}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for kind change, got: %v", err)
	}
}

func TestCreateUnknownVariant(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.CreateIndex("missing", IndexConfig{}); !errors.Is(err, ErrUnknownVariant) {
		t.Fatalf("expected ErrUnknownVariant, got: %v", err)
	}
	if _, err := reg.CreateFunction("missing", FunctionConfig{}); !errors.Is(err, ErrUnknownVariant) {
		t.Fatalf("expected ErrUnknownVariant, got: %v", err)
	}
}

func TestCreateWrongKind(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterIndex("idx", "additive", []string{"a"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := reg.CreateFunction("idx", FunctionConfig{}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got: %v", err)
	}
}

func TestVariantsSortedAndCopied(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterFunction("zeta", "ces", []string{"y", "x"}, []string{"p"}); err != nil {
		t.Fatalf("register zeta: %v", err)
	}
	if err := reg.RegisterIndex("alpha", "logarithm", []string{"b", "a"}); err != nil {
		t.Fatalf("register alpha: %v", err)
	}
	variants := reg.Variants()
	if len(variants) != 2 || variants[0].Name != "alpha" || variants[1].Name != "zeta" {
		t.Fatalf("unexpected variants: %+v", variants)
	}
	if variants[1].Parameters[0] != "x" || variants[1].Kind != KindFunction {
		t.Fatalf("expected sorted parameters and function kind: %+v", variants[1])
	}
	variants[1].Parameters[0] = "mutated"
	v, ok := reg.Variant("zeta")
	if !ok || v.Parameters[0] != "x" {
		t.Fatalf("registry state leaked through Variants(): %+v", v)
	}
	if _, ok := reg.Variant("missing"); ok {
		t.Fatal("expected missing variant lookup to fail")
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterIndex("shared", "additive", []string{"a", "b"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 32; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- reg.RegisterIndex("shared", "additive", []string{"b", "a"})
		}()
		go func() {
			defer wg.Done()
			node, err := reg.CreateIndex("shared", IndexConfig{})
			if err != nil {
				errs <- err
				return
			}
			_, err = node.Evaluate(Args{"a": 1, "b": 3})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent access: %v", err)
		}
	}
}

func TestRegistryLogsRegistration(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	reg := NewRegistry(WithLogger(logger))
	if err := reg.RegisterIndex("logged", "additive", []string{"a"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !strings.Contains(buf.String(), "variant=logged") {
		t.Fatalf("expected registration log, got: %q", buf.String())
	}
}

func TestKindString(t *testing.T) {
	if KindIndex.String() != "index" || KindFunction.String() != "function" {
		t.Fatalf("unexpected kind names: %s %s", KindIndex, KindFunction)
	}
	if Kind(9).String() != "kind(9)" {
		t.Fatalf("unexpected unknown kind name: %s", Kind(9))
	}
}
