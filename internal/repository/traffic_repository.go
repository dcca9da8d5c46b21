package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/site-analyzer/portal/internal/domain"
	"github.com/site-analyzer/portal/internal/observability"
)

type TrafficRepository interface {
	Append(event *domain.TrafficEvent) error
	// Recent returns up to limit events in ascending capture order, ending
	// with the newest persisted event.
	Recent(limit int) ([]domain.TrafficEvent, error)
}

type GormTrafficRepository struct{ db *gorm.DB }

func NewTrafficRepository(db *gorm.DB) TrafficRepository { return &GormTrafficRepository{db: db} }

func (r *GormTrafficRepository) Append(event *domain.TrafficEvent) error {
	err := r.db.Create(event).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "traffic", "append", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "traffic", "append", "success")
	return nil
}

func (r *GormTrafficRepository) Recent(limit int) ([]domain.TrafficEvent, error) {
	var events []domain.TrafficEvent
	err := r.db.Order("id DESC").Limit(limit).Find(&events).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "traffic", "recent", "error")
		return nil, err
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	observability.RecordRepositoryOperation(context.Background(), "traffic", "recent", "success")
	return events, nil
}
