package firerecorder

import (
	"context"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/domain"
)

type noopRecorder struct{}

func NewNoopRecorder() domain.FireRecorder {
	return &noopRecorder{}
}

func (n *noopRecorder) RecordFire(_ context.Context, _ domain.FireRecord) error {
	return nil
}

func (n *noopRecorder) Close() error {
	return nil
}
