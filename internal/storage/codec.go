package storage

import (
	"encoding/json"
	"errors"

	"utilityfn/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeEvaluation(r model.EvaluationRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeEvaluation(data []byte) (model.EvaluationRecord, error) {
	var record model.EvaluationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.EvaluationRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.EvaluationRecord{}, err
	}
	return record, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
