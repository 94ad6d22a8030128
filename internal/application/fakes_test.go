package application

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
)

const testPassword = "Str0ng!Passw0rd"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	service    *Service
	clock      *testClock
	users      *fakeUsers
	devices    *fakeDevices
	twoFactor  *fakeTwoFactor
	activities *fakeActivities
	recovery   *fakeRecovery
	outbox     *fakeOutbox
	sessions   *fakeSessionStore
	challenges *fakeChallenges
	tokens     *fakeTokens
	geo        *fakeGeo
	notifier   *fakeNotifier
}

func newFixture() *fixture {
	return newFixtureWithConfig(Config{})
}

func newFixtureWithConfig(cfg Config) *fixture {
	clock := newTestClock()
	outbox := &fakeOutbox{}
	users := &fakeUsers{
		byEmail: make(map[string]domain.User),
		byID:    make(map[uuid.UUID]domain.User),
		outbox:  outbox,
	}
	f := &fixture{
		clock:      clock,
		users:      users,
		devices:    &fakeDevices{items: make(map[string]domain.Device)},
		twoFactor:  &fakeTwoFactor{creds: make(map[uuid.UUID]domain.TwoFactorCredential), codes: make(map[uuid.UUID]map[string]bool)},
		activities: &fakeActivities{},
		recovery:   newFakeRecovery(),
		outbox:     outbox,
		sessions:   &fakeSessionStore{items: make(map[string]fakeSessionEntry), now: clock.Now},
		challenges: &fakeChallenges{items: make(map[string]ports.PendingChallenge), failures: make(map[string]int64)},
		tokens:     &fakeTokens{claims: make(map[string]ports.TokenClaims), now: clock.Now},
		geo:        &fakeGeo{locations: make(map[string]domain.Location)},
		notifier:   &fakeNotifier{},
	}
	f.service = NewService(Dependencies{
		Config:      cfg,
		Users:       users,
		Credentials: &fakeCredentials{users: users, history: make(map[uuid.UUID][]string)},
		Devices:     f.devices,
		TwoFactor:   f.twoFactor,
		Activities:  f.activities,
		Recovery:    f.recovery,
		Outbox:      outbox,
		RateLimits:  &fakeRateLimits{buckets: make(map[string]ports.RateLimitBucket)},
		Sessions:    f.sessions,
		Challenges:  f.challenges,
		Tokens:      f.tokens,
		Hasher:      &fakeHasher{},
		OTP:         &fakeOTP{},
		Geo:         f.geo,
		Notifier:    f.notifier,
		Now:         clock.Now,
	})
	return f
}

// seedUser stores a verified account directly, bypassing registration.
func (f *fixture) seedUser(email string) domain.User {
	user := domain.User{
		UserID:        uuid.New(),
		Email:         email,
		FullName:      "Test User",
		PasswordHash:  "hash:" + testPassword,
		Role:          domain.RoleStudent,
		EmailVerified: true,
		IsActive:      true,
		CreatedAt:     f.clock.Now(),
		UpdatedAt:     f.clock.Now(),
	}
	f.users.put(user)
	return user
}

// enableTwoFactor gives user an Enabled credential with the given backup codes.
func (f *fixture) enableTwoFactor(userID uuid.UUID, backupCodes ...string) {
	enabledAt := f.clock.Now()
	f.twoFactor.creds[userID] = domain.TwoFactorCredential{
		UserID:    userID,
		Secret:    "SECRET",
		Enabled:   true,
		CreatedAt: enabledAt,
		EnabledAt: &enabledAt,
	}
	codes := make(map[string]bool, len(backupCodes))
	for _, code := range backupCodes {
		codes[hashBackupCode(code)] = true
	}
	f.twoFactor.codes[userID] = codes
}

func (f *fixture) loginRequest(email, ip string) LoginRequest {
	return LoginRequest{
		Email:     email,
		Password:  testPassword,
		IPAddress: ip,
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Headers:   map[string]string{"Accept-Language": "en-US"},
	}
}

type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]domain.User
	byID    map[uuid.UUID]domain.User
	outbox  *fakeOutbox
}

func (f *fakeUsers) put(user domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byEmail[user.Email] = user
	f.byID[user.UserID] = user
}

func (f *fakeUsers) CreateWithOutboxTx(ctx context.Context, params ports.CreateUserParams, event ports.OutboxEvent) (domain.User, error) {
	f.mu.Lock()
	if _, exists := f.byEmail[params.Email]; exists {
		f.mu.Unlock()
		return domain.User{}, domain.ErrConflict
	}
	user := domain.User{
		UserID:        uuid.New(),
		Email:         params.Email,
		FullName:      params.FullName,
		PasswordHash:  params.PasswordHash,
		Role:          params.Role,
		EmailVerified: params.EmailVerified,
		IsActive:      true,
		CreatedAt:     params.RegisteredAt,
		UpdatedAt:     params.RegisteredAt,
	}
	f.byEmail[user.Email] = user
	f.byID[user.UserID] = user
	f.mu.Unlock()
	return user, f.outbox.Enqueue(ctx, event)
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

func (f *fakeUsers) GetByID(_ context.Context, userID uuid.UUID) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

type fakeCredentials struct {
	users   *fakeUsers
	history map[uuid.UUID][]string
}

func (f *fakeCredentials) RecentPasswordHashes(_ context.Context, userID uuid.UUID, limit int) ([]string, error) {
	hashes := f.history[userID]
	if user, err := f.users.GetByID(context.Background(), userID); err == nil && len(hashes) == 0 {
		hashes = []string{user.PasswordHash}
	}
	if len(hashes) > limit {
		hashes = hashes[:limit]
	}
	return hashes, nil
}

func (f *fakeCredentials) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string, keep int, updatedAt time.Time) error {
	user, err := f.users.GetByID(context.Background(), userID)
	if err != nil {
		return err
	}
	if len(f.history[userID]) == 0 {
		f.history[userID] = []string{user.PasswordHash}
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = updatedAt
	f.users.put(user)

	history := append([]string{passwordHash}, f.history[userID]...)
	if len(history) > keep {
		history = history[:keep]
	}
	f.history[userID] = history
	return nil
}

func (f *fakeCredentials) SetEmailVerified(_ context.Context, userID uuid.UUID, verified bool, updatedAt time.Time) error {
	user, err := f.users.GetByID(context.Background(), userID)
	if err != nil {
		return err
	}
	user.EmailVerified = verified
	user.UpdatedAt = updatedAt
	f.users.put(user)
	return nil
}

type fakeDevices struct {
	mu    sync.Mutex
	items map[string]domain.Device
}

func (f *fakeDevices) Upsert(_ context.Context, device domain.Device) (domain.Device, *domain.DeviceSighting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.items[device.DeviceID]
	if !ok {
		f.items[device.DeviceID] = device
		return device, nil, nil
	}
	previous := &domain.DeviceSighting{IP: existing.LastIP, Location: existing.Location, SeenAt: existing.LastUsedAt}
	existing.DisplayName = device.DisplayName
	existing.FingerprintHash = device.FingerprintHash
	existing.UserAgent = device.UserAgent
	existing.LastIP = device.LastIP
	existing.LastUsedAt = device.LastUsedAt
	if device.Location != nil {
		existing.Location = device.Location
	}
	f.items[device.DeviceID] = existing
	return existing, previous, nil
}

func (f *fakeDevices) GetByID(_ context.Context, deviceID string) (domain.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	device, ok := f.items[deviceID]
	if !ok {
		return domain.Device{}, domain.ErrNotFound
	}
	return device, nil
}

func (f *fakeDevices) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Device, 0)
	for _, device := range f.items {
		if device.UserID == userID {
			out = append(out, device)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUsedAt.After(out[j].LastUsedAt) })
	return out, nil
}

func (f *fakeDevices) SetTrusted(_ context.Context, deviceID string, userID uuid.UUID, trusted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	device, ok := f.items[deviceID]
	if !ok || device.UserID != userID {
		return domain.ErrNotFound
	}
	device.Trusted = trusted
	f.items[deviceID] = device
	return nil
}

func (f *fakeDevices) Delete(_ context.Context, deviceID string, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	device, ok := f.items[deviceID]
	if !ok || device.UserID != userID {
		return domain.ErrNotFound
	}
	delete(f.items, deviceID)
	return nil
}

func (f *fakeDevices) IncrementSuspicious(_ context.Context, deviceID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	device, ok := f.items[deviceID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	device.SuspiciousCount++
	f.items[deviceID] = device
	return device.SuspiciousCount, nil
}

func (f *fakeDevices) only() domain.Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, device := range f.items {
		return device
	}
	return domain.Device{}
}

type fakeTwoFactor struct {
	creds map[uuid.UUID]domain.TwoFactorCredential
	codes map[uuid.UUID]map[string]bool
}

func (f *fakeTwoFactor) Get(_ context.Context, userID uuid.UUID) (*domain.TwoFactorCredential, error) {
	cred, ok := f.creds[userID]
	if !ok {
		return nil, nil
	}
	return &cred, nil
}

func (f *fakeTwoFactor) SavePending(_ context.Context, cred domain.TwoFactorCredential, backupCodeHashes []string) error {
	f.creds[cred.UserID] = cred
	codes := make(map[string]bool, len(backupCodeHashes))
	for _, h := range backupCodeHashes {
		codes[h] = true
	}
	f.codes[cred.UserID] = codes
	return nil
}

func (f *fakeTwoFactor) Enable(_ context.Context, userID uuid.UUID, enabledAt time.Time) error {
	cred, ok := f.creds[userID]
	if !ok {
		return domain.ErrNotFound
	}
	cred.Enabled = true
	cred.EnabledAt = &enabledAt
	f.creds[userID] = cred
	return nil
}

func (f *fakeTwoFactor) Delete(_ context.Context, userID uuid.UUID) error {
	delete(f.creds, userID)
	delete(f.codes, userID)
	return nil
}

func (f *fakeTwoFactor) ConsumeBackupCode(_ context.Context, userID uuid.UUID, codeHash string) (bool, error) {
	if !f.codes[userID][codeHash] {
		return false, nil
	}
	delete(f.codes[userID], codeHash)
	return true, nil
}

func (f *fakeTwoFactor) CountBackupCodes(_ context.Context, userID uuid.UUID) (int, error) {
	return len(f.codes[userID]), nil
}

type fakeActivities struct {
	mu      sync.Mutex
	records []domain.LoginActivityRecord
}

func (f *fakeActivities) Append(_ context.Context, record domain.LoginActivityRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record.ID = int64(len(f.records) + 1)
	f.records = append(f.records, record)
	return nil
}

func (f *fakeActivities) CountSince(_ context.Context, userID uuid.UUID, kind domain.ActivityKind, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, rec := range f.records {
		if rec.UserID == userID && rec.Kind == kind && !rec.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeActivities) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]domain.LoginActivityRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.LoginActivityRecord, 0)
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].UserID == userID {
			out = append(out, f.records[i])
		}
	}
	if offset >= len(out) {
		return []domain.LoginActivityRecord{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeActivities) kinds(userID uuid.UUID) []domain.ActivityKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.ActivityKind, 0)
	for _, rec := range f.records {
		if rec.UserID == userID {
			out = append(out, rec.Kind)
		}
	}
	return out
}

type fakeRecoveryToken struct {
	userID    uuid.UUID
	expiresAt time.Time
	used      bool
}

type fakeRecovery struct {
	resets        map[string]*fakeRecoveryToken
	verifications map[string]*fakeRecoveryToken
}

func newFakeRecovery() *fakeRecovery {
	return &fakeRecovery{
		resets:        make(map[string]*fakeRecoveryToken),
		verifications: make(map[string]*fakeRecoveryToken),
	}
}

func (f *fakeRecovery) CreatePasswordResetToken(_ context.Context, userID uuid.UUID, tokenHash string, _, expiresAt time.Time) error {
	f.resets[tokenHash] = &fakeRecoveryToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (f *fakeRecovery) ConsumePasswordResetToken(_ context.Context, tokenHash string, usedAt time.Time) (uuid.UUID, error) {
	return consumeFakeToken(f.resets, tokenHash, usedAt)
}

func (f *fakeRecovery) CreateEmailVerificationToken(_ context.Context, userID uuid.UUID, tokenHash string, _, expiresAt time.Time) error {
	f.verifications[tokenHash] = &fakeRecoveryToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (f *fakeRecovery) ConsumeEmailVerificationToken(_ context.Context, tokenHash string, verifiedAt time.Time) (uuid.UUID, error) {
	return consumeFakeToken(f.verifications, tokenHash, verifiedAt)
}

func consumeFakeToken(tokens map[string]*fakeRecoveryToken, tokenHash string, at time.Time) (uuid.UUID, error) {
	token, ok := tokens[tokenHash]
	if !ok || token.used || !at.Before(token.expiresAt) {
		return uuid.Nil, domain.ErrNotFound
	}
	token.used = true
	return token.userID, nil
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []ports.OutboxEvent
}

func (f *fakeOutbox) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) ClaimUnpublished(context.Context, int, string, time.Time) ([]ports.OutboxRecord, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkPublished(context.Context, uuid.UUID, string, time.Time) error { return nil }

func (f *fakeOutbox) MarkFailed(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

func (f *fakeOutbox) MarkDeadLettered(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

func (f *fakeOutbox) last(eventType string) (ports.OutboxEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].EventType == eventType {
			return f.events[i], true
		}
	}
	return ports.OutboxEvent{}, false
}

type fakeRateLimits struct {
	mu      sync.Mutex
	buckets map[string]ports.RateLimitBucket
	err     error
}

func (f *fakeRateLimits) Hit(_ context.Context, key string, window time.Duration, now time.Time) (ports.RateLimitBucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return ports.RateLimitBucket{}, f.err
	}
	bucket, ok := f.buckets[key]
	if !ok || now.Sub(bucket.WindowStart) >= window {
		bucket = ports.RateLimitBucket{WindowStart: now}
	}
	bucket.Count++
	f.buckets[key] = bucket
	return bucket, nil
}

type fakeSessionEntry struct {
	record    ports.SessionRecord
	expiresAt time.Time
}

type fakeSessionStore struct {
	mu    sync.Mutex
	items map[string]fakeSessionEntry
	now   func() time.Time
}

func (f *fakeSessionStore) live(token string) (fakeSessionEntry, bool) {
	entry, ok := f.items[token]
	if !ok {
		return fakeSessionEntry{}, false
	}
	if !f.now().Before(entry.expiresAt) {
		delete(f.items, token)
		return fakeSessionEntry{}, false
	}
	return entry, true
}

func (f *fakeSessionStore) Put(_ context.Context, token string, record ports.SessionRecord, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[token] = fakeSessionEntry{record: record, expiresAt: f.now().Add(ttl)}
	return nil
}

func (f *fakeSessionStore) Get(_ context.Context, token string) (*ports.StoredSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.live(token)
	if !ok {
		return nil, nil
	}
	return &ports.StoredSession{Token: token, Record: entry.record, TTL: entry.expiresAt.Sub(f.now())}, nil
}

func (f *fakeSessionStore) Touch(_ context.Context, token string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.live(token)
	if !ok {
		return false, nil
	}
	entry.record.LastActivity = at
	f.items[token] = entry
	return true, nil
}

func (f *fakeSessionStore) Expire(_ context.Context, token string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.live(token)
	if !ok {
		return false, nil
	}
	entry.expiresAt = f.now().Add(ttl)
	f.items[token] = entry
	return true, nil
}

func (f *fakeSessionStore) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, token)
	return nil
}

func (f *fakeSessionStore) All(_ context.Context) ([]ports.StoredSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ports.StoredSession, 0, len(f.items))
	for token := range f.items {
		entry, ok := f.live(token)
		if !ok {
			continue
		}
		out = append(out, ports.StoredSession{Token: token, Record: entry.record, TTL: entry.expiresAt.Sub(f.now())})
	}
	return out, nil
}

func (f *fakeSessionStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

type fakeChallenges struct {
	mu       sync.Mutex
	items    map[string]ports.PendingChallenge
	failures map[string]int64
}

func (f *fakeChallenges) Put(_ context.Context, id string, challenge ports.PendingChallenge, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[id] = challenge
	return nil
}

func (f *fakeChallenges) Get(_ context.Context, id string) (*ports.PendingChallenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	challenge, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	return &challenge, nil
}

func (f *fakeChallenges) Delete(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[id]
	delete(f.items, id)
	return ok, nil
}

func (f *fakeChallenges) RecordFailure(_ context.Context, id string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[id]++
	return f.failures[id], nil
}

// fakeTokens hands out opaque tokens and remembers their claims.
type fakeTokens struct {
	mu     sync.Mutex
	claims map[string]ports.TokenClaims
	now    func() time.Time
}

func (f *fakeTokens) Issue(subject string, claims ports.TokenClaims, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims.Subject = subject
	claims.IssuedAt = f.now()
	claims.ExpiresAt = claims.IssuedAt.Add(ttl)
	token := "tok-" + uuid.NewString()
	f.claims[token] = claims
	return token, nil
}

func (f *fakeTokens) Validate(token string) (ports.TokenClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.claims[token]
	if !ok {
		return ports.TokenClaims{}, domain.ErrInvalidToken
	}
	if !f.now().Before(claims.ExpiresAt) {
		return ports.TokenClaims{}, domain.ErrTokenExpired
	}
	return claims, nil
}

type fakeHasher struct{}

func (f *fakeHasher) Hash(password string) (string, error) { return "hash:" + password, nil }

func (f *fakeHasher) Compare(hash, password string) error {
	if hash != "hash:"+password {
		return domain.ErrInvalidCredentials
	}
	return nil
}

// fakeOTP accepts exactly validTOTPCode for any secret.
type fakeOTP struct{}

const validTOTPCode = "123456"

func (f *fakeOTP) Generate(accountName string) (ports.OTPKey, error) {
	return ports.OTPKey{
		Secret:          "SECRET",
		ProvisioningURI: "otpauth://totp/Test:" + accountName + "?secret=SECRET",
		QRCodePNG:       []byte{0x89, 'P', 'N', 'G'},
	}, nil
}

func (f *fakeOTP) Validate(_, code string, _ time.Time) bool {
	return code == validTOTPCode
}

type fakeGeo struct {
	mu        sync.Mutex
	locations map[string]domain.Location
}

func (f *fakeGeo) set(ip string, loc domain.Location) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locations[ip] = loc
}

func (f *fakeGeo) Resolve(_ context.Context, ip string) (domain.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	loc, ok := f.locations[ip]
	if !ok {
		return domain.Location{}, domain.ErrGeoUnavailable
	}
	return loc, nil
}

type sentAlert struct {
	email   string
	kind    domain.AlertKind
	details map[string]any
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []sentAlert
}

func (f *fakeNotifier) SendSecurityAlert(_ context.Context, email string, kind domain.AlertKind, details map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, sentAlert{email: email, kind: kind, details: details})
	return nil
}

func (f *fakeNotifier) count(kind domain.AlertKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.alerts {
		if a.kind == kind {
			n++
		}
	}
	return n
}

type stripSanitizer struct{}

func (stripSanitizer) Sanitize(input string) string {
	return strings.NewReplacer("<", "", ">", "").Replace(input)
}
