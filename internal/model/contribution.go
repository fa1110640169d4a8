package model

import (
	"time"
)

// ContributionStatus is the lifecycle state of a contribution.
type ContributionStatus string

const (
	ContributionStatusPending   ContributionStatus = "pending"
	ContributionStatusCompleted ContributionStatus = "completed"
	ContributionStatusFailed    ContributionStatus = "failed"
)

// AmountEpsilon is the tolerance used when comparing the amount reported by
// the payment gateway (converted from pesewas) against the expected amount.
const AmountEpsilon = 0.01

type Contribution struct {
	ID               int64              `json:"id"                gorm:"primaryKey;autoIncrement;column:id"`
	PaymentReference string             `json:"payment_reference" gorm:"column:payment_reference;not null;uniqueIndex"`
	ContributorName  string             `json:"contributor_name"  gorm:"column:contributor_name"`
	ContributorPhone string             `json:"contributor_phone" gorm:"column:contributor_phone"`
	AmountGHS        float64            `json:"amount_ghs"        gorm:"column:amount_ghs;type:numeric(12,2);not null"`
	Purpose          string             `json:"purpose"           gorm:"column:purpose"`
	Channel          string             `json:"channel"           gorm:"column:channel"`
	Status           ContributionStatus `json:"status"            gorm:"column:status;not null;default:pending"`
	CreatedAt        time.Time          `json:"created_at"        gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `json:"updated_at"        gorm:"column:updated_at;autoUpdateTime"`
}

func (Contribution) TableName() string { return "contributions" }

// ContributionFilter controls List queries.
type ContributionFilter struct {
	Reference *string
	Statuses  []ContributionStatus
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
	Desc      bool
}
