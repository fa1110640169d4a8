package fixtures

import (
	"time"

	"github.com/asuogyaman/constituency-gateway/internal/model"
)

var (
	TestAdminProfile = model.Profile{
		ID:       1,
		UserID:   "admin-1",
		FullName: "Efua Owusu",
		Phone:    "0240000001",
		Role:     model.RoleAdmin,
	}

	TestAssemblymanProfile = model.Profile{
		ID:       2,
		UserID:   "assemblyman-1",
		FullName: "Kofi Asante",
		Phone:    "0240000002",
		Role:     model.RoleAssemblyman,
	}

	TestConstituentProfile = model.Profile{
		ID:       3,
		UserID:   "constituent-1",
		FullName: "Yaa Serwaa",
		Phone:    "0240000003",
		Role:     model.RoleConstituent,
	}
)

func NewTestContribution(reference string, amountGHS float64, status model.ContributionStatus) *model.Contribution {
	return &model.Contribution{
		PaymentReference: reference,
		ContributorName:  "Ama Mensah",
		ContributorPhone: "0241234567",
		AmountGHS:        amountGHS,
		Purpose:          "borehole project",
		Channel:          "mobile_money",
		Status:           status,
		CreatedAt:        time.Now(),
	}
}

func NewTestRecipient(phone, name string) model.Recipient {
	return model.Recipient{Phone: phone, DisplayName: name}
}

var (
	ValidPhoneNumbers = []string{
		"0241234567",
		"0209876543",
		"0551112223",
		"+233241234567",
	}

	InvalidMessageContents = []string{
		"",
		"   ",
		"\n\t",
	}
)

func PendingContribution(reference string, amountGHS float64) *model.Contribution {
	return NewTestContribution(reference, amountGHS, model.ContributionStatusPending)
}

func CompletedContribution(reference string, amountGHS float64) *model.Contribution {
	return NewTestContribution(reference, amountGHS, model.ContributionStatusCompleted)
}
