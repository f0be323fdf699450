// auth_test.go

package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/communityshare/server/internal/core"
	"github.com/communityshare/server/internal/mail"
	"github.com/communityshare/server/internal/secret"
	"github.com/communityshare/server/internal/user"
)

type fakeUsers struct {
	byID    map[int64]*user.User
	nextID  int64
	touched []int64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[int64]*user.User), nextID: 1}
}

func (f *fakeUsers) Create(_ context.Context, u *user.User) error {
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return fmt.Errorf("email already registered: %w", core.ErrDuplicateKey)
		}
	}
	u.ID = f.nextID
	f.nextID++
	u.Active = true
	copied := *u
	f.byID[u.ID] = &copied
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range f.byID {
		if u.Email == email && u.Active {
			copied := *u
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
}

func (f *fakeUsers) Update(_ context.Context, u *user.User) error {
	copied := *u
	f.byID[u.ID] = &copied
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	u, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsers) TouchLastActive(_ context.Context, id int64) error {
	f.touched = append(f.touched, id)
	return nil
}

func (f *fakeUsers) List(context.Context, user.ListParams) ([]*user.User, error) {
	return nil, nil
}

type fakeSecrets struct {
	byKey  map[string]*secret.Secret
	nextID int
}

func newFakeSecrets() *fakeSecrets {
	return &fakeSecrets{byKey: make(map[string]*secret.Secret)}
}

func (f *fakeSecrets) Create(
	_ context.Context,
	info map[string]any,
	durationHours int,
) (*secret.Secret, error) {
	payload, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("encode secret payload: %w", core.ErrInvalidInput)
	}

	f.nextID++
	s := &secret.Secret{
		Key:         fmt.Sprintf("key-%d", f.nextID),
		InfoJSON:    payload,
		ExpiresAt:   time.Now().Add(time.Duration(durationHours) * time.Hour),
		DateCreated: time.Now(),
	}
	f.byKey[s.Key] = s
	copied := *s
	return &copied, nil
}

func (f *fakeSecrets) Lookup(_ context.Context, key string) (*secret.Secret, error) {
	s, ok := f.byKey[key]
	if !ok {
		return nil, fmt.Errorf("secret: %w", core.ErrNotFound)
	}
	if err := s.Validate(time.Now()); err != nil {
		return nil, err
	}
	copied := *s
	return &copied, nil
}

func (f *fakeSecrets) Consume(ctx context.Context, key string) (*secret.Secret, error) {
	s, err := f.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	f.byKey[key].Used = true
	s.Used = true
	return s, nil
}

type recordingMailer struct {
	sent []mail.Message
}

func (r *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	r.sent = append(r.sent, msg)
	return nil
}

type zeroCounter struct{}

func (zeroCounter) CountByRole(context.Context, int64, string) (int, error) {
	return 0, nil
}

type fixture struct {
	users    *fakeUsers
	secrets  *fakeSecrets
	mailer   *recordingMailer
	resolver *Resolver
	handler  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	users := newFakeUsers()
	secrets := newFakeSecrets()
	mailer := &recordingMailer{}
	logger := slog.Default()

	userRes := user.NewResource(users, zeroCounter{})
	resolver := NewResolver(users, secrets, logger)
	authHandler := NewHandler(
		users, userRes, secrets, mailer, "http://localhost:8080", logger,
	)

	r := chi.NewRouter()
	r.Use(resolver.Middleware)
	authHandler.RegisterRoutes(r)

	return &fixture{
		users:    users,
		secrets:  secrets,
		mailer:   mailer,
		resolver: resolver,
		handler:  r,
	}
}

func (f *fixture) seedUser(t *testing.T, name, email, password string) *user.User {
	t.Helper()
	hash, err := core.HashPassword(password)
	require.NoError(t, err)
	u := &user.User{Name: name, Email: email, PasswordHash: hash}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func basicAuth(identity, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString(
		[]byte(identity+":"+password),
	)
}

func TestResolvePassword(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "Dana", "dana@example.org", "opensesame")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", basicAuth("dana@example.org", "opensesame"))
	req := f.resolver.Resolve(r)
	require.NotNil(t, req)
	require.Equal(t, "Dana", req.Name)

	r.Header.Set("Authorization", basicAuth("dana@example.org", "wrong"))
	require.Nil(t, f.resolver.Resolve(r))

	r.Header.Set("Authorization", basicAuth("nobody@example.org", "opensesame"))
	require.Nil(t, f.resolver.Resolve(r))
}

func TestResolveAPIKey(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "Dana", "dana@example.org", "opensesame")

	s, err := f.secrets.Create(context.Background(), map[string]any{
		"userId": u.ID, "action": "api_key",
	}, 24)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+s.Key)
	req := f.resolver.Resolve(r)
	require.NotNil(t, req)
	require.Equal(t, u.ID, req.ID)

	// Same key through Basic api:<key>.
	r.Header.Set("Authorization", basicAuth("api", s.Key))
	require.NotNil(t, f.resolver.Resolve(r))

	// Wrong action does not authenticate.
	reset, err := f.secrets.Create(context.Background(), map[string]any{
		"userId": u.ID, "action": "password_reset",
	}, 1)
	require.NoError(t, err)
	r.Header.Set("Authorization", "Bearer "+reset.Key)
	require.Nil(t, f.resolver.Resolve(r))

	// Expired key does not authenticate.
	f.secrets.byKey[s.Key].ExpiresAt = time.Now().Add(-time.Minute)
	r.Header.Set("Authorization", "Bearer "+s.Key)
	require.Nil(t, f.resolver.Resolve(r))
}

func TestResolveInactiveUser(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "Dana", "dana@example.org", "opensesame")
	s, err := f.secrets.Create(context.Background(), map[string]any{
		"userId": u.ID, "action": "api_key",
	}, 24)
	require.NoError(t, err)

	f.users.byID[u.ID].Active = false

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+s.Key)
	require.Nil(t, f.resolver.Resolve(r))
}

func TestMiddlewareBumpsLastActive(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "Dana", "dana@example.org", "opensesame")

	r := httptest.NewRequest(http.MethodGet, "/requester", nil)
	r.Header.Set("Authorization", basicAuth("dana@example.org", "opensesame"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, f.users.touched, u.ID)
}

func TestSignup(t *testing.T) {
	f := newFixture(t)

	body := strings.NewReader(
		`{"name":"Dana","email":"dana@example.org","password":"opensesame"}`,
	)
	r := httptest.NewRequest(http.MethodPost, "/signup", body)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data APIKeyResponse `json:"data"`
		User map[string]any `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.NotEmpty(t, envelope.Data.APIKey)
	require.Equal(t, "Dana", envelope.User["name"])
	require.Equal(t, "dana@example.org", envelope.User["email"])

	// The returned key authenticates immediately.
	r = httptest.NewRequest(http.MethodGet, "/requester", nil)
	r.Header.Set("Authorization", "Bearer "+envelope.Data.APIKey)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSignupDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "Dana", "dana@example.org", "opensesame")

	body := strings.NewReader(
		`{"name":"Other","email":"dana@example.org","password":"opensesame"}`,
	)
	r := httptest.NewRequest(http.MethodPost, "/signup", body)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "already registered")
}

func TestSignupShortPassword(t *testing.T) {
	f := newFixture(t)

	body := strings.NewReader(
		`{"name":"Dana","email":"dana@example.org","password":"short"}`,
	)
	r := httptest.NewRequest(http.MethodPost, "/signup", body)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAPIKeyRequiresCredentials(t *testing.T) {
	f := newFixture(t)

	r := httptest.NewRequest(http.MethodPost, "/api_key", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAPIKeyWithPassword(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "Dana", "dana@example.org", "opensesame")

	r := httptest.NewRequest(http.MethodPost, "/api_key", nil)
	r.Header.Set("Authorization", basicAuth("dana@example.org", "opensesame"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data APIKeyResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.NotEmpty(t, envelope.Data.APIKey)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "Dana", "dana@example.org", "oldpassword")

	// Request a reset; an email goes out with the secret key.
	body := strings.NewReader(`{"email":"dana@example.org"}`)
	r := httptest.NewRequest(http.MethodPost, "/password_reset", body)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.mailer.sent, 1)
	require.Equal(t, "dana@example.org", f.mailer.sent[0].To)

	var key string
	for k, s := range f.secrets.byKey {
		info, err := s.Info()
		require.NoError(t, err)
		if info["action"] == "password_reset" {
			key = k
		}
	}
	require.NotEmpty(t, key)
	require.Contains(t, f.mailer.sent[0].Text, key)

	// Confirm with the key.
	body = strings.NewReader(fmt.Sprintf(
		`{"key":%q,"password":"newpassword"}`, key,
	))
	r = httptest.NewRequest(http.MethodPost, "/password_reset/confirm", body)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)
	require.Equal(t, http.StatusOK, rec.Code)

	valid, err := core.VerifyPassword("newpassword", f.users.byID[u.ID].PasswordHash)
	require.NoError(t, err)
	require.True(t, valid)

	// The key is single use.
	body = strings.NewReader(fmt.Sprintf(
		`{"key":%q,"password":"anotherpassword"}`, key,
	))
	r = httptest.NewRequest(http.MethodPost, "/password_reset/confirm", body)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "already been used")
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	f := newFixture(t)

	body := strings.NewReader(`{"email":"nobody@example.org"}`)
	r := httptest.NewRequest(http.MethodPost, "/password_reset", body)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)

	// Same response as for a known email, and no mail goes out.
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, f.mailer.sent)
}

func TestAPIKeyCannotResetPassword(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "Dana", "dana@example.org", "opensesame")

	apiKey, err := f.secrets.Create(context.Background(), map[string]any{
		"userId": u.ID, "action": "api_key",
	}, 24)
	require.NoError(t, err)

	body := strings.NewReader(fmt.Sprintf(
		`{"key":%q,"password":"newpassword"}`, apiKey.Key,
	))
	r := httptest.NewRequest(http.MethodPost, "/password_reset/confirm", body)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
