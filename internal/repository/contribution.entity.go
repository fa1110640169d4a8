package repository

import (
	"time"

	"github.com/asuogyaman/constituency-gateway/internal/model"
)

type ContributionEntity struct {
	ID               int64     `gorm:"primaryKey;autoIncrement;column:id"`
	PaymentReference string    `gorm:"column:payment_reference;not null;uniqueIndex"`
	ContributorName  string    `gorm:"column:contributor_name"`
	ContributorPhone string    `gorm:"column:contributor_phone"`
	AmountGHS        float64   `gorm:"column:amount_ghs;type:numeric(12,2);not null"`
	Purpose          string    `gorm:"column:purpose"`
	Channel          string    `gorm:"column:channel"`
	Status           string    `gorm:"column:status;not null;default:pending"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ContributionEntity) TableName() string {
	return "contributions"
}

func toContributionEntity(m *model.Contribution) *ContributionEntity {
	if m == nil {
		return nil
	}
	return &ContributionEntity{
		ID:               m.ID,
		PaymentReference: m.PaymentReference,
		ContributorName:  m.ContributorName,
		ContributorPhone: m.ContributorPhone,
		AmountGHS:        m.AmountGHS,
		Purpose:          m.Purpose,
		Channel:          m.Channel,
		Status:           string(m.Status),
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func toContributionModel(e *ContributionEntity) *model.Contribution {
	if e == nil {
		return nil
	}
	return &model.Contribution{
		ID:               e.ID,
		PaymentReference: e.PaymentReference,
		ContributorName:  e.ContributorName,
		ContributorPhone: e.ContributorPhone,
		AmountGHS:        e.AmountGHS,
		Purpose:          e.Purpose,
		Channel:          e.Channel,
		Status:           model.ContributionStatus(e.Status),
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func toContributionModels(entities []*ContributionEntity) []*model.Contribution {
	if entities == nil {
		return nil
	}
	models := make([]*model.Contribution, len(entities))
	for i, e := range entities {
		models[i] = toContributionModel(e)
	}
	return models
}
