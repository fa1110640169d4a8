package repository

import (
	"context"
	"errors"

	"github.com/asuogyaman/constituency-gateway/internal/model"
	"github.com/asuogyaman/constituency-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrContributionNotFound is returned when no record matches the
	// payment reference.
	ErrContributionNotFound = errors.New("contribution not found")
)

type ContributionRepository struct {
	*pg.DB
}

func NewContributionRepository(db *pg.DB) *ContributionRepository {
	return &ContributionRepository{
		db,
	}
}

func (r *ContributionRepository) Create(ctx context.Context, c *model.Contribution) (*model.Contribution, error) {
	entity := toContributionEntity(c)
	if entity.Status == "" {
		entity.Status = string(model.ContributionStatusPending)
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toContributionModel(entity), nil
}

func (r *ContributionRepository) GetByReference(ctx context.Context, reference string) (*model.Contribution, error) {
	var entity ContributionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("payment_reference = ?", reference).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContributionNotFound
		}
		return nil, err
	}
	return toContributionModel(&entity), nil
}

// TransitionFromPending flips the record's status to the given terminal state,
// conditioned on it still being pending. The returned bool reports whether
// this call performed the transition; false means another delivery got there
// first (or the record does not exist). This conditional update is the only
// mutual exclusion protecting the status field, so webhook redelivery can
// never double-apply a terminal transition.
func (r *ContributionRepository) TransitionFromPending(ctx context.Context, reference string, to model.ContributionStatus) (bool, error) {
	res := r.Write(ctx).WithContext(ctx).
		Model(&ContributionEntity{}).
		Where("payment_reference = ? AND status = ?", reference, string(model.ContributionStatusPending)).
		Update("status", string(to))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ContributionRepository) List(ctx context.Context, f model.ContributionFilter) ([]*model.Contribution, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&ContributionEntity{})

	if f.Reference != nil && *f.Reference != "" {
		q = q.Where("payment_reference = ?", *f.Reference)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
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

	var entities []*ContributionEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toContributionModels(entities), total, nil
}
