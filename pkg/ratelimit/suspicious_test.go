package ratelimit_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/cache"
	"github.com/LeadFlux/AbuseGate/pkg/common"
	"github.com/LeadFlux/AbuseGate/pkg/ratelimit"
	"github.com/go-redis/redismock/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSuspiciousRegistry_Add(t *testing.T) {
	redisClient, mock := redismock.NewClientMock()
	registry := ratelimit.NewSuspiciousRegistry(logrus.New(), cache.NewCacheWithClient(redisClient))

	entryKey := fmt.Sprintf(cache.SuspiciousIPEntryKey, "203.0.113.9")
	countryKey := fmt.Sprintf(cache.SuspiciousIPCountryKey, "RU")

	mock.ExpectTxPipeline()
	mock.ExpectSet(entryKey, "RU", 30*time.Minute).SetVal("OK")
	mock.ExpectSAdd(cache.SuspiciousIPGlobalKey, "203.0.113.9").SetVal(1)
	mock.ExpectExpire(cache.SuspiciousIPGlobalKey, common.SuspiciousIPTTL).SetVal(true)
	mock.ExpectSAdd(countryKey, "203.0.113.9").SetVal(1)
	mock.ExpectExpire(countryKey, common.SuspiciousIPTTL).SetVal(true)
	mock.ExpectTxPipelineExec()

	err := registry.Add(context.Background(), "203.0.113.9", "RU", 30*time.Minute)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSuspiciousRegistry_Add_DefaultTTLWithoutCountry(t *testing.T) {
	redisClient, mock := redismock.NewClientMock()
	registry := ratelimit.NewSuspiciousRegistry(logrus.New(), cache.NewCacheWithClient(redisClient))

	entryKey := fmt.Sprintf(cache.SuspiciousIPEntryKey, "203.0.113.9")

	mock.ExpectTxPipeline()
	mock.ExpectSet(entryKey, "", common.SuspiciousIPTTL).SetVal("OK")
	mock.ExpectSAdd(cache.SuspiciousIPGlobalKey, "203.0.113.9").SetVal(1)
	mock.ExpectExpire(cache.SuspiciousIPGlobalKey, common.SuspiciousIPTTL).SetVal(true)
	mock.ExpectTxPipelineExec()

	err := registry.Add(context.Background(), "203.0.113.9", "", 0)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSuspiciousRegistry_IsSuspicious(t *testing.T) {
	redisClient, mock := redismock.NewClientMock()
	registry := ratelimit.NewSuspiciousRegistry(logrus.New(), cache.NewCacheWithClient(redisClient))

	entryKey := fmt.Sprintf(cache.SuspiciousIPEntryKey, "203.0.113.9")
	mock.ExpectExists(entryKey).SetVal(1)
	assert.True(t, registry.IsSuspicious(context.Background(), "203.0.113.9"))

	cleanKey := fmt.Sprintf(cache.SuspiciousIPEntryKey, "198.51.100.1")
	mock.ExpectExists(cleanKey).SetVal(0)
	assert.False(t, registry.IsSuspicious(context.Background(), "198.51.100.1"))
}

func TestSuspiciousRegistry_IsSuspicious_StoreErrorReadsClean(t *testing.T) {
	redisClient, mock := redismock.NewClientMock()
	registry := ratelimit.NewSuspiciousRegistry(logrus.New(), cache.NewCacheWithClient(redisClient))

	entryKey := fmt.Sprintf(cache.SuspiciousIPEntryKey, "203.0.113.9")
	mock.ExpectExists(entryKey).SetErr(fmt.Errorf("connection refused"))

	assert.False(t, registry.IsSuspicious(context.Background(), "203.0.113.9"))
}

func TestSuspiciousRegistry_CountryMembers(t *testing.T) {
	redisClient, mock := redismock.NewClientMock()
	registry := ratelimit.NewSuspiciousRegistry(logrus.New(), cache.NewCacheWithClient(redisClient))

	countryKey := fmt.Sprintf(cache.SuspiciousIPCountryKey, "CN")
	mock.ExpectSMembers(countryKey).SetVal([]string{"203.0.113.9", "203.0.113.10"})

	members, err := registry.CountryMembers(context.Background(), "CN")
	assert.NoError(t, err)
	assert.Len(t, members, 2)
}
