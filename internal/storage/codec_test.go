package storage

import (
	"errors"
	"testing"
	"time"

	"utilityfn/internal/model"
)

func TestEvaluationCodecRoundTrip(t *testing.T) {
	record := newRecord("e1", "household", time.Unix(42, 0).UTC(), 2.5)
	record.Error = "numerical error"
	data, err := EncodeEvaluation(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeEvaluation(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != "e1" || decoded.Value != 2.5 || decoded.Error != record.Error || !decoded.RecordedAt.Equal(record.RecordedAt) {
		t.Fatalf("unexpected decoded record: %+v", decoded)
	}
}

func TestDecodeEvaluationVersionMismatch(t *testing.T) {
	record := newRecord("e1", "household", time.Unix(42, 0), 1)
	record.VersionedRecord = model.VersionedRecord{SchemaVersion: 99, CodecVersion: CurrentCodecVersion}
	data, err := EncodeEvaluation(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeEvaluation(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got: %v", err)
	}
	if _, err := DecodeEvaluation([]byte("{")); err == nil {
		t.Fatal("expected malformed payload error")
	}
}
