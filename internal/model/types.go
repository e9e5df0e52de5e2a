package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

type EvaluationKind string

const (
	EvaluationScore      EvaluationKind = "evaluate"
	EvaluationDerivative EvaluationKind = "derivative"
)

// EvaluationRecord is one recorded evaluation or derivative of a model's root
// node. Node graphs themselves are never persisted; Model and NodeKey identify
// the configuration that produced Value. Infeasible marks a NaN sentinel
// result, stored with Value 0.
type EvaluationRecord struct {
	VersionedRecord
	ID         string             `json:"id"`
	Model      string             `json:"model"`
	Root       string             `json:"root"`
	NodeKey    uint64             `json:"node_key"`
	Kind       EvaluationKind     `json:"kind"`
	Path       []string           `json:"path,omitempty"`
	Args       map[string]float64 `json:"args"`
	Value      float64            `json:"value"`
	Infeasible bool               `json:"infeasible,omitempty"`
	Error      string             `json:"error,omitempty"`
	RecordedAt time.Time          `json:"recorded_at"`
}
