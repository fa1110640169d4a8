package services

import (
	"context"
	"errors"
	"testing"

	gateway "github.com/asuogyaman/constituency-gateway/internal/gateways"
	"github.com/asuogyaman/constituency-gateway/internal/model"
	"github.com/asuogyaman/constituency-gateway/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSmsGateway struct {
	mock.Mock
}

func (m *MockSmsGateway) Configured() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockSmsGateway) Send(ctx context.Context, p gateway.BatchRequest) (*gateway.BatchResult, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.BatchResult), args.Error(1)
}

type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) GetByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

type MockMessageLogStore struct {
	mock.Mock
}

func (m *MockMessageLogStore) CreateBatch(ctx context.Context, logs []*model.MessageLog) ([]*model.MessageLog, error) {
	args := m.Called(ctx, logs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.MessageLog), args.Error(1)
}

func adminProfile(userID string) *model.Profile {
	return &model.Profile{ID: 1, UserID: userID, FullName: "Efua Owusu", Role: model.RoleAdmin}
}

func TestSmsService_Dispatch(t *testing.T) {
	req := DispatchRequest{
		Recipients: []model.Recipient{{Phone: "0241234567"}},
		Message:    "Meeting tomorrow",
	}

	t.Run("admin dispatch writes one log per recipient", func(t *testing.T) {
		gw := new(MockSmsGateway)
		profiles := new(MockProfileStore)
		logs := new(MockMessageLogStore)
		svc := NewSmsService(gw, profiles, logs, "ASUOGYAMAN")

		profiles.On("GetByUserID", mock.Anything, "user-1").Return(adminProfile("user-1"), nil)
		gw.On("Send", mock.Anything, gateway.BatchRequest{
			Text:         "Meeting tomorrow",
			Sender:       "ASUOGYAMAN",
			Destinations: []string{"0241234567"},
		}).Return(&gateway.BatchResult{BatchID: "b-1", Accepted: 1}, nil)
		logs.On("CreateBatch", mock.Anything, mock.MatchedBy(func(rows []*model.MessageLog) bool {
			return len(rows) == 1 &&
				rows[0].SenderID == "user-1" &&
				rows[0].Recipient == "0241234567" &&
				rows[0].Body == "Meeting tomorrow||NAME||0241234567" &&
				rows[0].Type == model.MessageTypeSMS &&
				rows[0].Status == model.MessageStatusSent &&
				rows[0].BatchID == "b-1"
		})).Return([]*model.MessageLog{{}}, nil)

		result, err := svc.Dispatch(context.Background(), "user-1", req)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Sent)
		assert.Equal(t, "b-1", result.BatchID)
		gw.AssertExpectations(t)
		logs.AssertExpectations(t)
	})

	t.Run("named recipient uses display name in body", func(t *testing.T) {
		gw := new(MockSmsGateway)
		profiles := new(MockProfileStore)
		logs := new(MockMessageLogStore)
		svc := NewSmsService(gw, profiles, logs, "ASUOGYAMAN")

		profiles.On("GetByUserID", mock.Anything, "user-1").Return(adminProfile("user-1"), nil)
		gw.On("Send", mock.Anything, mock.Anything).Return(&gateway.BatchResult{BatchID: "b-2", Accepted: 1}, nil)
		logs.On("CreateBatch", mock.Anything, mock.MatchedBy(func(rows []*model.MessageLog) bool {
			return len(rows) == 1 && rows[0].Body == "Meeting tomorrow||NAME||Kwame Boateng"
		})).Return([]*model.MessageLog{{}}, nil)

		named := DispatchRequest{
			Recipients: []model.Recipient{{Phone: "0209876543", DisplayName: "Kwame Boateng"}},
			Message:    "Meeting tomorrow",
		}
		_, err := svc.Dispatch(context.Background(), "user-1", named)
		require.NoError(t, err)
		logs.AssertExpectations(t)
	})

	t.Run("under-privileged role is rejected before any gateway call", func(t *testing.T) {
		gw := new(MockSmsGateway)
		profiles := new(MockProfileStore)
		logs := new(MockMessageLogStore)
		svc := NewSmsService(gw, profiles, logs, "ASUOGYAMAN")

		profiles.On("GetByUserID", mock.Anything, "user-2").Return(&model.Profile{
			UserID: "user-2", Role: model.RoleConstituent,
		}, nil)

		_, err := svc.Dispatch(context.Background(), "user-2", req)
		assert.ErrorIs(t, err, ErrForbidden)
		gw.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
		logs.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
	})

	t.Run("assemblyman role may send", func(t *testing.T) {
		gw := new(MockSmsGateway)
		profiles := new(MockProfileStore)
		logs := new(MockMessageLogStore)
		svc := NewSmsService(gw, profiles, logs, "ASUOGYAMAN")

		profiles.On("GetByUserID", mock.Anything, "user-3").Return(&model.Profile{
			UserID: "user-3", Role: model.RoleAssemblyman,
		}, nil)
		gw.On("Send", mock.Anything, mock.Anything).Return(&gateway.BatchResult{Accepted: 1}, nil)
		logs.On("CreateBatch", mock.Anything, mock.Anything).Return([]*model.MessageLog{{}}, nil)

		_, err := svc.Dispatch(context.Background(), "user-3", req)
		require.NoError(t, err)
	})

	t.Run("missing profile is forbidden", func(t *testing.T) {
		gw := new(MockSmsGateway)
		profiles := new(MockProfileStore)
		svc := NewSmsService(gw, profiles, new(MockMessageLogStore), "ASUOGYAMAN")

		profiles.On("GetByUserID", mock.Anything, "ghost").Return(nil, repository.ErrProfileNotFound)

		_, err := svc.Dispatch(context.Background(), "ghost", req)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("validation failures", func(t *testing.T) {
		gw := new(MockSmsGateway)
		profiles := new(MockProfileStore)
		svc := NewSmsService(gw, profiles, new(MockMessageLogStore), "ASUOGYAMAN")

		profiles.On("GetByUserID", mock.Anything, "user-1").Return(adminProfile("user-1"), nil)

		_, err := svc.Dispatch(context.Background(), "user-1", DispatchRequest{Message: "hi"})
		assert.ErrorIs(t, err, ErrInvalidRequest)

		_, err = svc.Dispatch(context.Background(), "user-1", DispatchRequest{
			Recipients: []model.Recipient{{Phone: "0241234567"}},
			Message:    "   ",
		})
		assert.ErrorIs(t, err, ErrInvalidRequest)

		gw.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("explicit sender name overrides default", func(t *testing.T) {
		gw := new(MockSmsGateway)
		profiles := new(MockProfileStore)
		logs := new(MockMessageLogStore)
		svc := NewSmsService(gw, profiles, logs, "ASUOGYAMAN")

		profiles.On("GetByUserID", mock.Anything, "user-1").Return(adminProfile("user-1"), nil)
		gw.On("Send", mock.Anything, mock.MatchedBy(func(p gateway.BatchRequest) bool {
			return p.Sender == "MCE-OFFICE"
		})).Return(&gateway.BatchResult{Accepted: 1}, nil)
		logs.On("CreateBatch", mock.Anything, mock.Anything).Return([]*model.MessageLog{{}}, nil)

		override := req
		override.SenderName = "MCE-OFFICE"
		_, err := svc.Dispatch(context.Background(), "user-1", override)
		require.NoError(t, err)
		gw.AssertExpectations(t)
	})

	t.Run("gateway failure writes no logs", func(t *testing.T) {
		gw := new(MockSmsGateway)
		profiles := new(MockProfileStore)
		logs := new(MockMessageLogStore)
		svc := NewSmsService(gw, profiles, logs, "ASUOGYAMAN")

		profiles.On("GetByUserID", mock.Anything, "user-1").Return(adminProfile("user-1"), nil)
		gw.On("Send", mock.Anything, mock.Anything).Return(nil, &gateway.SendError{StatusCode: 200, Label: "ERR_ACCOUNT_SUSPENDED"})

		_, err := svc.Dispatch(context.Background(), "user-1", req)
		var sendErr *gateway.SendError
		require.True(t, errors.As(err, &sendErr))
		logs.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
	})

	t.Run("batch id is generated for logs when gateway omits it", func(t *testing.T) {
		gw := new(MockSmsGateway)
		profiles := new(MockProfileStore)
		logs := new(MockMessageLogStore)
		svc := NewSmsService(gw, profiles, logs, "ASUOGYAMAN")

		profiles.On("GetByUserID", mock.Anything, "user-1").Return(adminProfile("user-1"), nil)
		gw.On("Send", mock.Anything, mock.Anything).Return(&gateway.BatchResult{Accepted: 1}, nil)
		logs.On("CreateBatch", mock.Anything, mock.MatchedBy(func(rows []*model.MessageLog) bool {
			return len(rows) == 1 && rows[0].BatchID != ""
		})).Return([]*model.MessageLog{{}}, nil)

		result, err := svc.Dispatch(context.Background(), "user-1", req)
		require.NoError(t, err)
		assert.Empty(t, result.BatchID)
		logs.AssertExpectations(t)
	})
}
