package helpers

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/asuogyaman/constituency-gateway/internal/repository"
	"github.com/asuogyaman/constituency-gateway/pkg/pg"
	"github.com/asuogyaman/constituency-gateway/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&repository.ContributionEntity{},
		&repository.MessageLogEntity{},
		&repository.ProfileEntity{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Unique connection name per test to avoid global adapter caching issues
	connName := fmt.Sprintf("test-%d", time.Now().UnixNano())
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestContribution(t *testing.T, db *pg.DB, reference string, amountGHS float64, status string) *repository.ContributionEntity {
	ctx := context.Background()
	contribution := &repository.ContributionEntity{
		PaymentReference: reference,
		ContributorName:  "Ama Mensah",
		ContributorPhone: "0241234567",
		AmountGHS:        amountGHS,
		Purpose:          "borehole project",
		Channel:          "mobile_money",
		Status:           status,
	}
	err := db.Write(ctx).Create(contribution).Error
	require.NoError(t, err)
	return contribution
}

func CreateTestProfile(t *testing.T, db *pg.DB, userID, fullName, role string) *repository.ProfileEntity {
	ctx := context.Background()
	profile := &repository.ProfileEntity{
		UserID:   userID,
		FullName: fullName,
		Phone:    "0209876543",
		Role:     role,
	}
	err := db.Write(ctx).Create(profile).Error
	require.NoError(t, err)
	return profile
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
