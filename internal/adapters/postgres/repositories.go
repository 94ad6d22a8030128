package postgres

import (
	"time"

	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
	"gorm.io/gorm"
)

// SecretSealer encrypts TOTP secrets before they reach the database.
type SecretSealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

type Repositories struct {
	Users       ports.UserRepository
	Credentials ports.CredentialRepository
	Devices     ports.DeviceRepository
	TwoFactor   ports.TwoFactorRepository
	Activities  ports.ActivityRepository
	Recovery    ports.RecoveryRepository
	Outbox      ports.OutboxRepository
}

func NewRepositories(db *gorm.DB, sealer SecretSealer) Repositories {
	return Repositories{
		Users:       &userRepository{db: db},
		Credentials: &credentialRepository{db: db},
		Devices:     &deviceRepository{db: db},
		TwoFactor:   &twoFactorRepository{db: db, sealer: sealer},
		Activities:  &activityRepository{db: db},
		Recovery:    &recoveryRepository{db: db},
		Outbox:      &outboxRepository{db: db, now: func() time.Time { return time.Now().UTC() }},
	}
}
