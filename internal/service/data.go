package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/repository"
)

// GetData reads records of a caller-defined collection.
func (s *Service) GetData(ctx context.Context, collection string, query repository.Query) ([]repository.Record, error) {
	return s.store.Get(ctx, collection, query)
}

// SaveData upserts a record into a caller-defined collection.
func (s *Service) SaveData(ctx context.Context, collection string, rec repository.Record) (repository.Record, error) {
	return s.store.Save(ctx, collection, rec, "")
}

func toRecord(v interface{}) (repository.Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	var rec repository.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return rec, nil
}

func fromRecord(rec repository.Record, v interface{}) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return nil
}
