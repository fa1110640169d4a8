package repository

import (
	"context"

	"github.com/asuogyaman/constituency-gateway/internal/model"
	"github.com/asuogyaman/constituency-gateway/pkg/pg"
	"github.com/google/uuid"
)

type MessageLogRepository struct {
	*pg.DB
}

func NewMessageLogRepository(db *pg.DB) *MessageLogRepository {
	return &MessageLogRepository{
		db,
	}
}

// CreateBatch persists one log row per recipient of a delivered batch. IDs
// are assigned here so the write works the same on every dialect.
func (r *MessageLogRepository) CreateBatch(ctx context.Context, logs []*model.MessageLog) ([]*model.MessageLog, error) {
	if len(logs) == 0 {
		return nil, nil
	}

	entities := make([]*MessageLogEntity, len(logs))
	for i, l := range logs {
		e := toMessageLogEntity(l)
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		entities[i] = e
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entities).Error; err != nil {
		return nil, err
	}

	return toMessageLogModels(entities), nil
}

func (r *MessageLogRepository) List(ctx context.Context, f model.MessageLogFilter) ([]*model.MessageLog, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&MessageLogEntity{})

	if f.SenderID != nil && *f.SenderID != "" {
		q = q.Where("sender_id = ?", *f.SenderID)
	}
	if f.Recipient != nil && *f.Recipient != "" {
		q = q.Where("recipient = ?", *f.Recipient)
	}
	if f.BatchID != nil && *f.BatchID != "" {
		q = q.Where("batch_id = ?", *f.BatchID)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at"
	if f.Desc {
		order += " DESC"
	} else {
		order += " ASC"
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*MessageLogEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toMessageLogModels(entities), total, nil
}
