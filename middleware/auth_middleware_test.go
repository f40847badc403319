package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/ninehub/storefront/config"
	"github.com/ninehub/storefront/internal/observability"
	"github.com/ninehub/storefront/models"
	"github.com/ninehub/storefront/services"
	"github.com/ninehub/storefront/utils"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockTokenValidator is a mock implementation of TokenValidator
type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) IsExpired(token string) bool {
	return m.Called(token).Bool(0)
}

func (m *MockTokenValidator) ExtractUsername(token string) (string, bool) {
	args := m.Called(token)
	return args.String(0), args.Bool(1)
}

// MockUserStore is a mock implementation of UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) LoadByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if user := args.Get(0); user != nil {
		return user.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockTokenRecordStore is a mock implementation of TokenRecordStore
type MockTokenRecordStore struct {
	mock.Mock
}

func (m *MockTokenRecordStore) LoadByValue(ctx context.Context, raw string) (*models.TokenRecord, error) {
	args := m.Called(ctx, raw)
	if record := args.Get(0); record != nil {
		return record.(*models.TokenRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

type fixture struct {
	validator *MockTokenValidator
	users     *MockUserStore
	tokens    *MockTokenRecordStore
}

func newFixture() *fixture {
	return &fixture{
		validator: new(MockTokenValidator),
		users:     new(MockUserStore),
		tokens:    new(MockTokenRecordStore),
	}
}

func (f *fixture) authenticator() *RequestAuthenticator {
	return NewRequestAuthenticator(f.validator, f.users, f.tokens, zap.NewNop())
}

func (f *fixture) middleware(policy string) *AuthMiddleware {
	return NewAuthMiddleware(f.authenticator(), policy, zap.NewNop())
}

func (f *fixture) assertNoLookups(t *testing.T) {
	t.Helper()
	f.users.AssertNotCalled(t, "LoadByUsername", mock.Anything, mock.Anything)
	f.tokens.AssertNotCalled(t, "LoadByValue", mock.Anything, mock.Anything)
}

// alice holds only ADMIN_READ
func alice() *models.User {
	return &models.User{
		ID:          uuid.New(),
		Username:    "alice",
		Role:        models.RoleAdmin,
		Active:      true,
		Authorities: []string{models.AuthorityAdminRead},
	}
}

// recorder captures how often next ran and with which identity
type recorder struct {
	calls    int
	identity *Identity
}

func (rec *recorder) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.calls++
		rec.identity = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func bearerRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAuthenticate_SkipsWithoutBearerHeader(t *testing.T) {
	headers := map[string]string{
		"no header":     "",
		"token scheme":  "Token abc123",
		"lower case":    "bearer abc123",
		"basic auth":    "Basic dXNlcjpwYXNz",
		"missing space": "Bearerabc123",
		"leading space": " Bearer abc123",
	}

	for name, header := range headers {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			rec := &recorder{}

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()

			f.middleware(config.LookupFailureAbort).Authenticate(rec.handler()).ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, 1, rec.calls)
			assert.Nil(t, rec.identity)
			f.validator.AssertNotCalled(t, "IsExpired", mock.Anything)
			f.validator.AssertNotCalled(t, "ExtractUsername", mock.Anything)
			f.assertNoLookups(t)
		})
	}
}

func TestAuthenticate_InstallsIdentity(t *testing.T) {
	f := newFixture()
	user := alice()

	f.validator.On("IsExpired", "abc123").Return(false)
	f.validator.On("ExtractUsername", "abc123").Return("alice", true)
	f.users.On("LoadByUsername", mock.Anything, "alice").Return(user, nil)
	f.tokens.On("LoadByValue", mock.Anything, "abc123").
		Return(&models.TokenRecord{Value: "abc123"}, nil)

	rec := &recorder{}
	w := httptest.NewRecorder()
	f.middleware(config.LookupFailureAbort).Authenticate(rec.handler()).ServeHTTP(w, bearerRequest("abc123"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, rec.calls)
	require.NotNil(t, rec.identity)
	assert.Equal(t, []string{models.AuthorityAdminRead}, rec.identity.Authorities)
	assert.Equal(t, user.ID, rec.identity.UserID)
	assert.Equal(t, "alice", rec.identity.Username)
	assert.Equal(t, "abc123", rec.identity.Token)

	f.validator.AssertExpectations(t)
	f.users.AssertExpectations(t)
	f.tokens.AssertExpectations(t)
}

func TestAuthenticate_IdentityDoesNotAliasUser(t *testing.T) {
	f := newFixture()
	user := alice()

	f.validator.On("IsExpired", "abc123").Return(false)
	f.validator.On("ExtractUsername", "abc123").Return("alice", true)
	f.users.On("LoadByUsername", mock.Anything, "alice").Return(user, nil)
	f.tokens.On("LoadByValue", mock.Anything, "abc123").Return(&models.TokenRecord{}, nil)

	identity, err := f.authenticator().Authenticate(bearerRequest("abc123"))
	require.NoError(t, err)
	require.NotNil(t, identity)

	identity.Authorities[0] = "MUTATED"
	assert.Equal(t, models.AuthorityAdminRead, user.Authorities[0])
}

func TestAuthenticate_RevokedRecord(t *testing.T) {
	tests := []struct {
		name   string
		record *models.TokenRecord
	}{
		{"deactivated", &models.TokenRecord{Deactivated: true}},
		{"expired", &models.TokenRecord{Expired: true}},
		{"both", &models.TokenRecord{Expired: true, Deactivated: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.validator.On("IsExpired", "abc123").Return(false)
			f.validator.On("ExtractUsername", "abc123").Return("alice", true)
			f.users.On("LoadByUsername", mock.Anything, "alice").Return(alice(), nil)
			f.tokens.On("LoadByValue", mock.Anything, "abc123").Return(tt.record, nil)

			rec := &recorder{}
			w := httptest.NewRecorder()
			f.middleware(config.LookupFailureAbort).Authenticate(rec.handler()).ServeHTTP(w, bearerRequest("abc123"))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, 1, rec.calls)
			assert.Nil(t, rec.identity)
		})
	}
}

func TestAuthenticate_UnusableClaims(t *testing.T) {
	tests := []struct {
		name        string
		expired     bool
		username    string
		hasUsername bool
	}{
		{"expired token", true, "alice", true},
		{"no username", false, "", false},
		{"expired and no username", true, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.validator.On("IsExpired", "abc123").Return(tt.expired)
			f.validator.On("ExtractUsername", "abc123").Return(tt.username, tt.hasUsername)

			rec := &recorder{}
			w := httptest.NewRecorder()
			f.middleware(config.LookupFailureAbort).Authenticate(rec.handler()).ServeHTTP(w, bearerRequest("abc123"))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, 1, rec.calls)
			assert.Nil(t, rec.identity)
			f.validator.AssertExpectations(t)
			f.assertNoLookups(t)
		})
	}
}

func TestAuthenticate_Idempotent(t *testing.T) {
	f := newFixture()
	f.validator.On("IsExpired", "abc123").Return(false)
	f.validator.On("ExtractUsername", "abc123").Return("alice", true)

	existing := &Identity{Username: "alice", Authorities: []string{"ADMIN_READ"}, Token: "abc123"}
	req := bearerRequest("abc123")
	req = req.WithContext(WithIdentity(req.Context(), existing))

	rec := &recorder{}
	w := httptest.NewRecorder()
	f.middleware(config.LookupFailureAbort).Authenticate(rec.handler()).ServeHTTP(w, req)

	assert.Equal(t, 1, rec.calls)
	assert.Same(t, existing, rec.identity)
	f.assertNoLookups(t)
}

func TestAuthenticate_TwoPassesLookupOnce(t *testing.T) {
	f := newFixture()
	f.validator.On("IsExpired", "abc123").Return(false)
	f.validator.On("ExtractUsername", "abc123").Return("alice", true)
	f.users.On("LoadByUsername", mock.Anything, "alice").Return(alice(), nil).Once()
	f.tokens.On("LoadByValue", mock.Anything, "abc123").Return(&models.TokenRecord{}, nil).Once()

	m := f.middleware(config.LookupFailureAbort)
	rec := &recorder{}
	handler := m.Authenticate(m.Authenticate(rec.handler()))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, bearerRequest("abc123"))

	assert.Equal(t, 1, rec.calls)
	require.NotNil(t, rec.identity)
	f.users.AssertNumberOfCalls(t, "LoadByUsername", 1)
	f.tokens.AssertNumberOfCalls(t, "LoadByValue", 1)
}

func TestAuthenticate_CountsEachRequestOnce(t *testing.T) {
	authenticated := observability.AuthDecisionsTotal.WithLabelValues(observability.AuthAuthenticated)

	t.Run("identity already attached", func(t *testing.T) {
		f := newFixture()
		f.validator.On("IsExpired", "abc123").Return(false)
		f.validator.On("ExtractUsername", "abc123").Return("alice", true)

		req := bearerRequest("abc123")
		req = req.WithContext(WithIdentity(req.Context(), &Identity{Username: "alice", Token: "abc123"}))

		before := testutil.ToFloat64(authenticated)
		f.middleware(config.LookupFailureAbort).Authenticate((&recorder{}).handler()).
			ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, before, testutil.ToFloat64(authenticated))
	})

	t.Run("nested passes", func(t *testing.T) {
		f := newFixture()
		f.validator.On("IsExpired", "abc123").Return(false)
		f.validator.On("ExtractUsername", "abc123").Return("alice", true)
		f.users.On("LoadByUsername", mock.Anything, "alice").Return(alice(), nil).Once()
		f.tokens.On("LoadByValue", mock.Anything, "abc123").Return(&models.TokenRecord{}, nil).Once()

		m := f.middleware(config.LookupFailureAbort)
		handler := m.Authenticate(m.Authenticate((&recorder{}).handler()))

		before := testutil.ToFloat64(authenticated)
		handler.ServeHTTP(httptest.NewRecorder(), bearerRequest("abc123"))

		assert.Equal(t, before+1, testutil.ToFloat64(authenticated))
	})
}

func TestAuthenticate_LookupFailurePolicy(t *testing.T) {
	notFoundUser := services.NewDomainError(services.ErrorTypeNotFound, "user not found", nil)
	notFoundToken := services.NewDomainError(services.ErrorTypeNotFound, "token record not found", nil)
	storeDown := errors.New("connection refused")

	tests := []struct {
		name       string
		policy     string
		userErr    error
		tokenErr   error
		wantStatus int
		wantNext   int
	}{
		{"abort unknown user", config.LookupFailureAbort, notFoundUser, nil, http.StatusUnauthorized, 0},
		{"abort missing record", config.LookupFailureAbort, nil, notFoundToken, http.StatusUnauthorized, 0},
		{"abort store failure", config.LookupFailureAbort, storeDown, nil, http.StatusInternalServerError, 0},
		{"skip unknown user", config.LookupFailureSkip, notFoundUser, nil, http.StatusOK, 1},
		{"skip missing record", config.LookupFailureSkip, nil, notFoundToken, http.StatusOK, 1},
		{"skip store failure", config.LookupFailureSkip, nil, storeDown, http.StatusOK, 1},
		{"unknown policy aborts", "bogus", notFoundUser, nil, http.StatusUnauthorized, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.validator.On("IsExpired", "abc123").Return(false)
			f.validator.On("ExtractUsername", "abc123").Return("alice", true)
			if tt.userErr != nil {
				f.users.On("LoadByUsername", mock.Anything, "alice").Return(nil, tt.userErr)
			} else {
				f.users.On("LoadByUsername", mock.Anything, "alice").Return(alice(), nil)
				f.tokens.On("LoadByValue", mock.Anything, "abc123").Return(nil, tt.tokenErr)
			}

			rec := &recorder{}
			w := httptest.NewRecorder()
			f.middleware(tt.policy).Authenticate(rec.handler()).ServeHTTP(w, bearerRequest("abc123"))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantNext, rec.calls)
			assert.Nil(t, rec.identity)

			if tt.wantNext == 0 {
				var body utils.ErrorResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
				assert.NotEmpty(t, body.Error)
			}
		})
	}
}

func TestAuthenticate_LookupErrorStage(t *testing.T) {
	f := newFixture()
	f.validator.On("IsExpired", "abc123").Return(false)
	f.validator.On("ExtractUsername", "abc123").Return("alice", true)
	f.users.On("LoadByUsername", mock.Anything, "alice").Return(alice(), nil)
	f.tokens.On("LoadByValue", mock.Anything, "abc123").Return(nil, services.ErrTokenNotFound)

	_, err := f.authenticator().Authenticate(bearerRequest("abc123"))

	var lookupErr *LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, "token", lookupErr.Stage)
	assert.ErrorIs(t, err, services.ErrTokenNotFound)
}

func TestRequireAuthority(t *testing.T) {
	m := NewAuthMiddleware(nil, config.LookupFailureAbort, zap.NewNop())

	tests := []struct {
		name       string
		identity   *Identity
		wantStatus int
		wantError  string
	}{
		{"no identity", nil, http.StatusUnauthorized, "unauthorized"},
		{"missing authority", &Identity{Authorities: []string{"ROLE_USER"}}, http.StatusForbidden, "forbidden"},
		{"granted", &Identity{Authorities: []string{"ADMIN_READ"}}, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			req := httptest.NewRequest(http.MethodGet, "/user/all", nil)
			if tt.identity != nil {
				req = req.WithContext(WithIdentity(req.Context(), tt.identity))
			}
			w := httptest.NewRecorder()

			m.RequireAuthority("ADMIN_READ")(rec.handler()).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantError == "" {
				assert.Equal(t, 1, rec.calls)
				return
			}
			assert.Equal(t, 0, rec.calls)
			var body utils.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.wantError, body.Error)
		})
	}
}

func TestRequireAuthenticated(t *testing.T) {
	m := NewAuthMiddleware(nil, config.LookupFailureAbort, zap.NewNop())

	t.Run("anonymous", func(t *testing.T) {
		rec := &recorder{}
		w := httptest.NewRecorder()
		m.RequireAuthenticated(rec.handler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user/me", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, 0, rec.calls)
	})

	t.Run("authenticated", func(t *testing.T) {
		rec := &recorder{}
		req := httptest.NewRequest(http.MethodGet, "/user/me", nil)
		req = req.WithContext(WithIdentity(req.Context(), &Identity{Username: "alice"}))
		w := httptest.NewRecorder()
		m.RequireAuthenticated(rec.handler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, rec.calls)
	})
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer a b")

	token, ok := bearerToken(req)
	assert.True(t, ok)
	assert.Equal(t, "a b", token)
}
