package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
)

func TestMigrationsCreateEveryTable(t *testing.T) {
	raw, err := migrationFS.ReadFile("migrations/0001_init.sql")
	require.NoError(t, err)
	schema := string(raw)

	for _, table := range []any{
		roleModel{}, userModel{}, passwordHistoryModel{}, deviceModel{},
		twoFactorCredentialModel{}, backupCodeModel{}, loginActivityModel{},
		securityOutboxModel{}, passwordResetTokenModel{}, emailVerificationTokenModel{},
	} {
		name := table.(interface{ TableName() string }).TableName()
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+name+" (", "missing table %s", name)
	}
	for _, role := range []domain.Role{
		domain.RoleAdmin, domain.RoleEventTeam, domain.RoleVolunteer,
		domain.RoleStudent, domain.RoleFoodStall, domain.RoleGameStall,
	} {
		assert.True(t, strings.Contains(schema, "('"+string(role)+"')"), "role %s not seeded", role)
	}
}

func TestDeviceLocationColumn(t *testing.T) {
	loc := &domain.Location{City: "Paris", Country: "FR", Latitude: 48.8566, Longitude: 2.3522}
	seen := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	row := deviceModel{
		DeviceID:   "dev-1",
		UserID:     uuid.New(),
		LastIP:     nullableString(" 203.0.113.9 "),
		Location:   encodeLocation(loc),
		LastUsedAt: seen,
	}

	device := toDomainDevice(row)
	require.NotNil(t, device.Location)
	assert.Equal(t, *loc, *device.Location)
	assert.Equal(t, "203.0.113.9", device.LastIP)

	sighting := toSighting(row)
	assert.Equal(t, seen, sighting.SeenAt)
	assert.Equal(t, "Paris", sighting.Location.City)
}

func TestDeviceLocationUnreadable(t *testing.T) {
	garbage := "{not json"
	device := toDomainDevice(deviceModel{Location: &garbage})
	assert.Nil(t, device.Location)
	assert.Nil(t, encodeLocation(nil))
	assert.Empty(t, toDomainDevice(deviceModel{}).LastIP)
}

func TestToDomainActivity(t *testing.T) {
	record := toDomainActivity(loginActivityModel{
		ID:        7,
		Kind:      string(domain.ActivityLoginFailed),
		IPAddress: nullableString(""),
	})
	assert.Equal(t, domain.ActivityLoginFailed, record.Kind)
	assert.True(t, record.Kind.Valid())
	assert.Empty(t, record.IPAddress)
}

func TestOneTimeTokenTablesMatchSchema(t *testing.T) {
	raw, err := migrationFS.ReadFile("migrations/0001_init.sql")
	require.NoError(t, err)
	schema := string(raw)

	assert.Equal(t, passwordResetTokenModel{}.TableName(), passwordResetTokens.name)
	assert.Equal(t, emailVerificationTokenModel{}.TableName(), emailVerificationTokens.name)
	for _, table := range []oneTimeTokenTable{passwordResetTokens, emailVerificationTokens} {
		start := strings.Index(schema, "CREATE TABLE IF NOT EXISTS "+table.name+" (")
		require.GreaterOrEqual(t, start, 0)
		body := schema[start : start+strings.Index(schema[start:], ");")]
		assert.Contains(t, body, table.consumedColumn+" TIMESTAMPTZ", table.name)
		assert.Contains(t, body, "token_hash", table.name)
	}
}

func TestToOutboxRecord(t *testing.T) {
	lastErr := "broker down"
	at := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	row := securityOutboxModel{
		OutboxID:     uuid.New(),
		EventType:    "security.alert.new_device",
		PartitionKey: "a@example.com",
		Payload:      `{"alert":"new_device"}`,
		RetryCount:   2,
		LastError:    &lastErr,
		LastErrorAt:  &at,
		CreatedAt:    at,
	}

	rec := toOutboxRecord(row)
	assert.Equal(t, row.OutboxID, rec.OutboxID)
	assert.Equal(t, "a@example.com", rec.PartitionKey)
	assert.JSONEq(t, row.Payload, string(rec.Payload))
	assert.Equal(t, 2, rec.RetryCount)
	assert.Equal(t, &lastErr, rec.LastError)
	assert.Nil(t, rec.PublishedAt)
}

func TestStampUserID(t *testing.T) {
	id := uuid.MustParse("6f1c2a7e-2d1b-4a55-9a31-0d6f1e3b7c42")

	assert.JSONEq(t, `{"email":"ada@example.com","user_id":"6f1c2a7e-2d1b-4a55-9a31-0d6f1e3b7c42"}`,
		string(stampUserID([]byte(`{"email":"ada@example.com"}`), id)))
	assert.JSONEq(t, `{"user_id":"6f1c2a7e-2d1b-4a55-9a31-0d6f1e3b7c42"}`, string(stampUserID(nil, id)))
	assert.Equal(t, `["not","an","object"]`, string(stampUserID([]byte(`["not","an","object"]`), id)))
}
