package repository

import (
	"time"

	"github.com/asuogyaman/constituency-gateway/internal/model"
)

type ProfileEntity struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	UserID    string    `gorm:"column:user_id;not null;uniqueIndex"`
	FullName  string    `gorm:"column:full_name"`
	Phone     string    `gorm:"column:phone"`
	Role      string    `gorm:"column:role;not null;default:constituent"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ProfileEntity) TableName() string {
	return "profiles"
}

func toProfileModel(e *ProfileEntity) *model.Profile {
	if e == nil {
		return nil
	}
	return &model.Profile{
		ID:        e.ID,
		UserID:    e.UserID,
		FullName:  e.FullName,
		Phone:     e.Phone,
		Role:      model.Role(e.Role),
		CreatedAt: e.CreatedAt,
	}
}
