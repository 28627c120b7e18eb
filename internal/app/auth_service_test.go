package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/model"
	"taskhub/internal/pkg/jwtutil"
)

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Create(user *model.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserStore) GetByID(id string) (*model.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserStore) GetByEmail(email string) (*model.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserStore) GetByUsername(username string) (*model.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserStore) ListAll() ([]model.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserStore) Save(user *model.User) error {
	args := m.Called(user)
	return args.Error(0)
}

type MockRevoker struct {
	mock.Mock
}

func (m *MockRevoker) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	args := m.Called(ctx, token, ttl)
	return args.Error(0)
}

func (m *MockRevoker) IsRevoked(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, n model.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func newAuthService(users *MockUserStore, revoked *MockRevoker, notifier NotificationPublisher) *AuthService {
	return NewAuthService(users, revoked, notifier, "test-secret", 24*time.Hour)
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestSignup(t *testing.T) {
	tests := []struct {
		name      string
		input     SignupInput
		mockSetup func(*MockUserStore, *MockPublisher)
		wantErr   error
		check     func(*testing.T, *model.User)
	}{
		{
			name:  "successful signup defaults role and lowercases email",
			input: SignupInput{Username: "newuser", Email: "New.User@Example.COM", Password: "secret1"},
			mockSetup: func(users *MockUserStore, notifier *MockPublisher) {
				users.On("GetByEmail", "new.user@example.com").Return(nil, nil)
				users.On("GetByUsername", "newuser").Return(nil, nil)
				users.On("Create", mock.AnythingOfType("*model.User")).Return(nil)
				notifier.On("Publish", mock.Anything, mock.AnythingOfType("model.Notification")).Return(nil)
			},
			check: func(t *testing.T, user *model.User) {
				assert.Equal(t, "new.user@example.com", user.Email)
				assert.Equal(t, model.RoleUser, user.Role)
				assert.NotEqual(t, "secret1", user.PasswordHash)
			},
		},
		{
			name:    "rejects malformed email",
			input:   SignupInput{Username: "newuser", Email: "not an email", Password: "secret1"},
			wantErr: ErrInvalidEmail,
		},
		{
			name:    "rejects short password",
			input:   SignupInput{Username: "newuser", Email: "a@b.co", Password: "five5"},
			wantErr: ErrPasswordTooShort,
		},
		{
			name:    "rejects short username",
			input:   SignupInput{Username: "ab", Email: "a@b.co", Password: "secret1"},
			wantErr: ErrInvalidInput,
		},
		{
			name:  "rejects duplicate email",
			input: SignupInput{Username: "newuser", Email: "taken@example.com", Password: "secret1"},
			mockSetup: func(users *MockUserStore, notifier *MockPublisher) {
				users.On("GetByEmail", "taken@example.com").Return(&model.User{ID: "u1"}, nil)
			},
			wantErr: ErrEmailExists,
		},
		{
			name:  "rejects duplicate username",
			input: SignupInput{Username: "taken", Email: "a@b.co", Password: "secret1"},
			mockSetup: func(users *MockUserStore, notifier *MockPublisher) {
				users.On("GetByEmail", "a@b.co").Return(nil, nil)
				users.On("GetByUsername", "taken").Return(&model.User{ID: "u1"}, nil)
			},
			wantErr: ErrUsernameExists,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserStore)
			notifier := new(MockPublisher)
			if tt.mockSetup != nil {
				tt.mockSetup(users, notifier)
			}

			svc := newAuthService(users, new(MockRevoker), notifier)
			user, err := svc.Signup(tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, user)
			}
			users.AssertExpectations(t)
		})
	}
}

func TestLogin(t *testing.T) {
	users := new(MockUserStore)
	stored := &model.User{
		ID:           "user-1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hashOf(t, "correct-horse"),
		Role:         model.RoleAdmin,
	}
	users.On("GetByEmail", "alice@example.com").Return(stored, nil)
	users.On("GetByEmail", "ghost@example.com").Return(nil, nil)

	svc := newAuthService(users, new(MockRevoker), nil)

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(LoginInput{Email: "ghost@example.com", Password: "whatever"})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(LoginInput{Email: "alice@example.com", Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("successful login issues a 24h token", func(t *testing.T) {
		result, err := svc.Login(LoginInput{Email: "Alice@Example.com", Password: "correct-horse"})
		require.NoError(t, err)

		claims, err := jwtutil.ParseToken("test-secret", result.Token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "Admin", claims.Role)
		assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, 5*time.Second)
	})
}

func TestLogout(t *testing.T) {
	t.Run("revokes a live token for its remaining lifetime", func(t *testing.T) {
		token, err := jwtutil.GenerateToken("test-secret", time.Hour, "user-1", "User")
		require.NoError(t, err)

		revoked := new(MockRevoker)
		revoked.On("Revoke", mock.Anything, token, mock.MatchedBy(func(ttl time.Duration) bool {
			return ttl > 55*time.Minute && ttl <= time.Hour
		})).Return(nil)

		svc := newAuthService(new(MockUserStore), revoked, nil)
		require.NoError(t, svc.Logout(context.Background(), token))
		revoked.AssertExpectations(t)
	})

	t.Run("ignores tokens that no longer parse", func(t *testing.T) {
		revoked := new(MockRevoker)
		svc := newAuthService(new(MockUserStore), revoked, nil)
		require.NoError(t, svc.Logout(context.Background(), "garbage"))
		revoked.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestListUsers(t *testing.T) {
	t.Run("empty store", func(t *testing.T) {
		users := new(MockUserStore)
		users.On("ListAll").Return([]model.User{}, nil)

		svc := newAuthService(users, new(MockRevoker), nil)
		_, err := svc.ListUsers()
		assert.ErrorIs(t, err, ErrNoUsers)
	})

	t.Run("returns all users", func(t *testing.T) {
		users := new(MockUserStore)
		users.On("ListAll").Return([]model.User{{ID: "u1"}, {ID: "u2"}}, nil)

		svc := newAuthService(users, new(MockRevoker), nil)
		got, err := svc.ListUsers()
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestChangePassword(t *testing.T) {
	t.Run("rejects short new password before touching the store", func(t *testing.T) {
		users := new(MockUserStore)
		svc := newAuthService(users, new(MockRevoker), nil)

		err := svc.ChangePassword("user-1", "old-pass", "five5")
		assert.ErrorIs(t, err, ErrPasswordTooShort)
		users.AssertNotCalled(t, "GetByID", mock.Anything)
	})

	t.Run("rejects wrong old password", func(t *testing.T) {
		users := new(MockUserStore)
		users.On("GetByID", "user-1").Return(&model.User{
			ID:           "user-1",
			PasswordHash: hashOf(t, "actual-old"),
		}, nil)

		svc := newAuthService(users, new(MockRevoker), nil)
		err := svc.ChangePassword("user-1", "guessed-old", "brand-new")
		assert.ErrorIs(t, err, ErrWrongOldPassword)
	})

	t.Run("rehashes and saves on success", func(t *testing.T) {
		users := new(MockUserStore)
		stored := &model.User{
			ID:           "user-1",
			Email:        "alice@example.com",
			PasswordHash: hashOf(t, "actual-old"),
		}
		users.On("GetByID", "user-1").Return(stored, nil)
		users.On("Save", mock.MatchedBy(func(u *model.User) bool {
			return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("brand-new")) == nil
		})).Return(nil)

		notifier := new(MockPublisher)
		notifier.On("Publish", mock.Anything, mock.AnythingOfType("model.Notification")).Return(nil)

		svc := newAuthService(users, new(MockRevoker), notifier)
		require.NoError(t, svc.ChangePassword("user-1", "actual-old", "brand-new"))
		users.AssertExpectations(t)
	})
}
