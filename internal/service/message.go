package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/domain"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/repository"
)

// Communicate logs an inter-agent message and returns its id. Delivery to
// the recipient is not attempted.
func (s *Service) Communicate(ctx context.Context, from, to string, message interface{}, msgType string) (string, error) {
	return s.recordCommunication(ctx, from, to, message, msgType)
}

func (s *Service) recordCommunication(ctx context.Context, from, to string, message interface{}, msgType string) (string, error) {
	comm := domain.Communication{
		ID:        "msg_" + uuid.NewString(),
		FromAgent: from,
		ToAgent:   to,
		Message:   message,
		Type:      msgType,
		Timestamp: time.Now().UTC(),
	}
	rec, err := toRecord(comm)
	if err != nil {
		return "", err
	}
	if _, err := s.store.Save(ctx, domain.CollectionCommunication, rec, comm.ID); err != nil {
		return "", fmt.Errorf("failed to log communication: %w", err)
	}
	return comm.ID, nil
}

// ListCommunications returns logged messages matching query.
func (s *Service) ListCommunications(ctx context.Context, query repository.Query) ([]domain.Communication, error) {
	records, err := s.store.Get(ctx, domain.CollectionCommunication, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list communications: %w", err)
	}
	out := make([]domain.Communication, 0, len(records))
	for _, r := range records {
		var c domain.Communication
		if err := fromRecord(r, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
