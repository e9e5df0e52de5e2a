package storage

import (
	"context"
	"testing"
	"time"

	"utilityfn/internal/model"
)

func newRecord(id, modelName string, at time.Time, value float64) model.EvaluationRecord {
	return model.EvaluationRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              id,
		Model:           modelName,
		Root:            "welfare",
		Kind:            model.EvaluationScore,
		Args:            map[string]float64{"x": value},
		Value:           value,
		RecordedAt:      at,
	}
}

func TestMemoryStoreEvaluationRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := newRecord("e1", "household", time.Unix(100, 0), 4)
	input.Kind = model.EvaluationDerivative
	input.Path = []string{"housing", "rooms"}
	if err := store.SaveEvaluation(ctx, input); err != nil {
		t.Fatalf("save evaluation: %v", err)
	}
	input.Path[0] = "mutated"
	input.Args["x"] = -1

	output, ok, err := store.GetEvaluation(ctx, "e1")
	if err != nil {
		t.Fatalf("get evaluation: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted evaluation")
	}
	if output.Path[0] != "housing" || output.Args["x"] != 4 || output.Kind != model.EvaluationDerivative {
		t.Fatalf("unexpected evaluation: %+v", output)
	}

	if _, ok, err := store.GetEvaluation(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing evaluation, ok=%t err=%v", ok, err)
	}
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	base := time.Unix(1000, 0)
	records := []model.EvaluationRecord{
		newRecord("a", "household", base, 1),
		newRecord("b", "household", base.Add(2*time.Second), 2),
		newRecord("c", "firm", base.Add(time.Second), 3),
		newRecord("d", "household", base.Add(time.Second), 4),
	}
	for _, r := range records {
		if err := store.SaveEvaluation(ctx, r); err != nil {
			t.Fatalf("save %s: %v", r.ID, err)
		}
	}

	all, err := store.ListEvaluations(ctx, "", 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 4 || all[0].ID != "b" || all[1].ID != "d" || all[2].ID != "c" || all[3].ID != "a" {
		t.Fatalf("unexpected order: %+v", ids(all))
	}

	household, err := store.ListEvaluations(ctx, "household", 2)
	if err != nil {
		t.Fatalf("list household: %v", err)
	}
	if len(household) != 2 || household[0].ID != "b" || household[1].ID != "d" {
		t.Fatalf("unexpected filtered list: %+v", ids(household))
	}

	if err := store.DeleteEvaluations(ctx, "household"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	remaining, err := store.ListEvaluations(ctx, "", 0)
	if err != nil {
		t.Fatalf("list remaining: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "c" {
		t.Fatalf("unexpected remaining: %+v", ids(remaining))
	}
}

func TestMemoryStoreRequiresInitAndID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.SaveEvaluation(ctx, newRecord("x", "m", time.Now(), 1)); err == nil {
		t.Fatal("expected uninitialized store error")
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := store.SaveEvaluation(ctx, newRecord("", "m", time.Now(), 1)); err == nil {
		t.Fatal("expected missing id error")
	}
}

func ids(records []model.EvaluationRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
