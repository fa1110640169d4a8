package repository

import (
	"context"
	"errors"

	"github.com/asuogyaman/constituency-gateway/internal/model"
	"github.com/asuogyaman/constituency-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrProfileNotFound is returned when no profile exists for the user.
	ErrProfileNotFound = errors.New("profile not found")
)

type ProfileRepository struct {
	*pg.DB
}

func NewProfileRepository(db *pg.DB) *ProfileRepository {
	return &ProfileRepository{
		db,
	}
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	var entity ProfileEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("user_id = ?", userID).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return toProfileModel(&entity), nil
}
