// internal/service/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storelinker-service/internal/config"
	"storelinker-service/internal/domain/auth"
	xerrors "storelinker-service/internal/pkg/errors"
	"storelinker-service/internal/pkg/jwt"
	"storelinker-service/internal/pkg/password"
	"storelinker-service/internal/pkg/session"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// UserRepository is the account storage the service needs.
type UserRepository interface {
	Create(ctx context.Context, u *auth.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*auth.User, error)
	FindByEmail(ctx context.Context, email string) (*auth.User, error)
	FindByEmailAndType(ctx context.Context, email string, userType auth.UserType) (*auth.User, error)
	FindByEmailInsensitive(ctx context.Context, email string) (*auth.User, error)
	FindByEmailPrefix(ctx context.Context, prefix string, limit int) ([]auth.User, error)
	UpdateProfile(ctx context.Context, u *auth.User) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
}

// LoginLimiter throttles login attempts per ip+email.
type LoginLimiter interface {
	CheckLoginAttempt(ctx context.Context, ip, email string) bool
	ResetLoginAttempts(ctx context.Context, ip, email string)
}

// SessionNotifier pushes session lifecycle events to connected clients.
type SessionNotifier interface {
	SessionEnded(userID, sessionID, reason string)
	AllSessionsEnded(userID string, count int)
}

type AuthService struct {
	users      UserRepository
	sessions   session.SessionStore
	jwtManager *jwt.Manager
	hasher     *password.Hasher
	limiter    LoginLimiter
	notifier   SessionNotifier
	legacy     config.LegacyConfig
	validate   *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

func NewAuthService(
	users UserRepository,
	sessions session.SessionStore,
	jwtManager *jwt.Manager,
	hasher *password.Hasher,
	limiter LoginLimiter,
	notifier SessionNotifier,
	legacy config.LegacyConfig,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      users,
		sessions:   sessions,
		jwtManager: jwtManager,
		hasher:     hasher,
		limiter:    limiter,
		notifier:   notifier,
		legacy:     legacy,
		validate:   validator.New(),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ========== Registration ==========

// Register creates an account, records its first session and returns a token.
func (s *AuthService) Register(ctx context.Context, req *auth.RegisterRequest) (*auth.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	userType := req.UserType
	if userType == "" {
		userType = auth.UserTypeCustomer
	}

	fields := map[string]string{}
	if err := s.validate.Var(email, "required,email"); err != nil {
		fields["email"] = "a valid email is required"
	}
	if len(req.Password) < 5 {
		fields["password"] = "password must be at least 5 characters"
	}
	switch {
	case !userType.Valid():
		fields["userType"] = "unknown user type"
	case userType == auth.UserTypeAdmin:
		fields["userType"] = "admin accounts cannot be self-registered"
	case userType == auth.UserTypeVendor && strings.TrimSpace(req.StoreName) == "":
		fields["storeName"] = "store name is required for vendors"
	}
	if len(fields) > 0 {
		return nil, xerrors.NewValidationError(fields)
	}

	if _, err := s.users.FindByEmailInsensitive(ctx, email); err == nil {
		return nil, xerrors.ErrDuplicateAccount
	} else if !errors.Is(err, xerrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	first, last := req.FirstName, req.LastName
	if first == "" && last == "" {
		first, last = splitName(req.Name)
	}

	now := s.now()
	user := &auth.User{
		Email:        email,
		Password:     hashed,
		UserType:     userType,
		Role:         auth.RoleFor(userType),
		FirstName:    strings.TrimSpace(first),
		LastName:     strings.TrimSpace(last),
		Phone:        strings.TrimSpace(req.Phone),
		Address:      req.Address,
		IsActive:     true,
		LoginHistory: []auth.LoginEntry{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if userType == auth.UserTypeVendor {
		user.StoreName = strings.TrimSpace(req.StoreName)
		user.StoreDescription = strings.TrimSpace(req.StoreDescription)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, xerrors.ErrDuplicateAccount) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID.Hex()),
		zap.String("user_type", string(user.UserType)),
	)

	device := req.DeviceInfo
	if device == "" {
		device = req.UserAgent
	}
	return s.startSession(ctx, user, req.IPAddress, device)
}

// ========== Login ==========

// Login authenticates with email and password. The account is looked up
// through a chain of strategies; the emergency paths only exist when the
// legacy flag is on.
func (s *AuthService) Login(ctx context.Context, req *auth.LoginRequest) (*auth.AuthResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, xerrors.NewValidationError(map[string]string{
			"credentials": "email and password are required",
		})
	}

	if s.limiter != nil {
		if !s.limiter.CheckLoginAttempt(ctx, req.IPAddress, email) {
			s.logger.Warn("login rate limit exceeded", zap.String("ip", req.IPAddress))
			return nil, xerrors.ErrRateLimited
		}
	}

	user, strategy, err := s.lookupUser(ctx, req, email)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			s.logger.Info("login failed: no matching account", zap.String("ip", req.IPAddress))
			return nil, xerrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if !s.checkPassword(ctx, user, req) {
		if _, err := s.sessions.RecordLogin(ctx, user, session.LoginEvent{
			IPAddress: req.IPAddress,
			Device:    req.Device(),
			Success:   false,
		}); err != nil {
			s.logger.Warn("failed to record failed login", zap.Error(err))
		}
		s.logger.Info("login failed: bad password",
			zap.String("user_id", user.ID.Hex()),
			zap.String("strategy", strategy),
		)
		return nil, xerrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, xerrors.ErrInactiveAccount
	}

	if s.limiter != nil {
		s.limiter.ResetLoginAttempts(ctx, req.IPAddress, email)
	}

	s.logger.Info("login succeeded",
		zap.String("user_id", user.ID.Hex()),
		zap.String("strategy", strategy),
	)
	return s.startSession(ctx, user, req.IPAddress, req.Device())
}

type lookupStrategy struct {
	name string
	find func(ctx context.Context) (*auth.User, error)
}

func (s *AuthService) lookupStrategies(req *auth.LoginRequest, email string) []lookupStrategy {
	var out []lookupStrategy

	if req.UserType != "" {
		out = append(out, lookupStrategy{"email+type", func(ctx context.Context) (*auth.User, error) {
			return s.users.FindByEmailAndType(ctx, email, req.UserType)
		}})
	}
	out = append(out, lookupStrategy{"email", func(ctx context.Context) (*auth.User, error) {
		return s.users.FindByEmail(ctx, email)
	}})
	if req.UserType == "" {
		out = append(out,
			lookupStrategy{"email+vendor", func(ctx context.Context) (*auth.User, error) {
				return s.users.FindByEmailAndType(ctx, email, auth.UserTypeVendor)
			}},
			lookupStrategy{"email+customer", func(ctx context.Context) (*auth.User, error) {
				return s.users.FindByEmailAndType(ctx, email, auth.UserTypeCustomer)
			}},
		)
	}
	out = append(out, lookupStrategy{"email-insensitive", func(ctx context.Context) (*auth.User, error) {
		return s.users.FindByEmailInsensitive(ctx, email)
	}})

	if req.Emergency && s.legacy.EmergencyLogin {
		out = append(out, lookupStrategy{"emergency-prefix", func(ctx context.Context) (*auth.User, error) {
			return s.findByLocalPart(ctx, email)
		}})
	}
	return out
}

func (s *AuthService) lookupUser(ctx context.Context, req *auth.LoginRequest, email string) (*auth.User, string, error) {
	for _, st := range s.lookupStrategies(req, email) {
		user, err := st.find(ctx)
		if err == nil {
			return user, st.name, nil
		}
		if !errors.Is(err, xerrors.ErrNotFound) {
			return nil, st.name, err
		}
		s.logger.Debug("login lookup miss", zap.String("strategy", st.name))
	}
	return nil, "", xerrors.ErrNotFound
}

// findByLocalPart picks the single account whose email starts with the part
// before '@'. Ambiguous prefixes match nothing.
func (s *AuthService) findByLocalPart(ctx context.Context, email string) (*auth.User, error) {
	local := email
	if i := strings.Index(email, "@"); i >= 0 {
		local = email[:i]
	}
	if local == "" {
		return nil, xerrors.ErrNotFound
	}

	candidates, err := s.users.FindByEmailPrefix(ctx, local, 2)
	if err != nil {
		return nil, err
	}
	if len(candidates) != 1 {
		return nil, xerrors.ErrNotFound
	}

	s.logger.Warn("AUDIT emergency login matched account by email prefix",
		zap.String("user_id", candidates[0].ID.Hex()),
		zap.String("prefix", local),
	)
	return &candidates[0], nil
}

func (s *AuthService) checkPassword(ctx context.Context, user *auth.User, req *auth.LoginRequest) bool {
	res := s.hasher.Verify(req.Password, user.Password)
	if res.OK {
		if res.NeedsRehash {
			s.rehash(ctx, user, req.Password)
		}
		return true
	}

	if !req.Emergency || !s.legacy.EmergencyLogin || !looksPrivileged(user) {
		return false
	}
	for _, tp := range s.legacy.TestPasswords {
		if tp != "" && tp == req.Password {
			s.logger.Warn("AUDIT emergency login accepted a test password",
				zap.String("user_id", user.ID.Hex()),
				zap.String("ip", req.IPAddress),
			)
			return true
		}
	}
	return false
}

func (s *AuthService) rehash(ctx context.Context, user *auth.User, plain string) {
	hashed, err := s.hasher.Hash(plain)
	if err != nil {
		s.logger.Error("failed to rehash password", zap.Error(err))
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hashed); err != nil {
		s.logger.Error("failed to persist rehashed password", zap.String("user_id", user.ID.Hex()), zap.Error(err))
		return
	}
	user.Password = hashed
	s.logger.Info("password migrated to current hash", zap.String("user_id", user.ID.Hex()))
}

// startSession records a successful login and mints its token.
func (s *AuthService) startSession(ctx context.Context, user *auth.User, ip, device string) (*auth.AuthResponse, error) {
	rec, err := s.sessions.RecordLogin(ctx, user, session.LoginEvent{
		IPAddress: ip,
		Device:    device,
		Success:   true,
	})
	if err != nil {
		return nil, err
	}

	token, err := s.issueToken(user, rec.SessionID)
	if err != nil {
		return nil, err
	}

	return &auth.AuthResponse{
		Token:     token,
		User:      auth.NewUserInfo(user),
		SessionID: rec.SessionID,
	}, nil
}

func (s *AuthService) issueToken(user *auth.User, sessionID string) (string, error) {
	sub := jwt.Subject{
		UserID:    user.ID.Hex(),
		Email:     user.Email,
		UserType:  string(user.UserType),
		Role:      string(user.EffectiveRole()),
		SessionID: sessionID,
	}
	if user.IsVendor() {
		sub.StoreName = user.StoreName
	}

	token, _, err := s.jwtManager.Generator.Generate(sub)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

// ========== Helpers ==========

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func splitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if i := strings.IndexByte(name, ' '); i > 0 {
		return name[:i], strings.TrimSpace(name[i+1:])
	}
	return name, ""
}

func looksPrivileged(u *auth.User) bool {
	haystack := strings.ToLower(u.Email + " " + u.FullName())
	for _, marker := range []string{"admin", "test", "vendor"} {
		if strings.Contains(haystack, marker) {
			return true
		}
	}
	return false
}
