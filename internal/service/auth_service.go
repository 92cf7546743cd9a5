package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edupath/enroll-api/internal/authz"
	"github.com/edupath/enroll-api/internal/models"
	appErrors "github.com/edupath/enroll-api/pkg/errors"
)

// Subject kinds persisted with refresh tokens.
const (
	SubjectKindUser    = "user"
	SubjectKindTeacher = "teacher"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, user *models.User) error
}

type authTeacherRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
}

type tokenStore interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id string, revokedAt time.Time) error
	RevokeAllForSubject(ctx context.Context, subjectID string) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
}

// RegisterRequest holds the payload for creating an account.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// AuthService provides authentication use cases for users and teachers.
type AuthService struct {
	users     authUserRepository
	teachers  authTeacherRepository
	tokens    tokenStore
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, teachers authTeacherRepository, tokens tokenStore, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, teachers: teachers, tokens: tokens, validator: validate, logger: logger, config: config}
}

// RegisterUser creates a student account.
func (s *AuthService) RegisterUser(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	taken, err := s.users.ExistsByEmail(ctx, email, "")
	if err != nil {
		return nil, appErrors.Internal(err, "USER_REGISTRATION_FAILED")
	}
	if taken {
		return nil, appErrors.Conflict("Email already exists", "Use a different email address")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err, "USER_REGISTRATION_FAILED")
	}
	user := &models.User{
		FullName:     strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         string(authz.KindStudent),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Internal(err, "USER_REGISTRATION_FAILED")
	}
	return user, nil
}

// RegisterTeacher creates a teacher account.
func (s *AuthService) RegisterTeacher(ctx context.Context, req RegisterRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	taken, err := s.teachers.ExistsByEmail(ctx, email, "")
	if err != nil {
		return nil, appErrors.Internal(err, "TEACHER_REGISTRATION_FAILED")
	}
	if taken {
		return nil, appErrors.Conflict("Email already exists", "Use a different email address")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err, "TEACHER_REGISTRATION_FAILED")
	}
	teacher := &models.Teacher{
		FullName:     strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         string(authz.KindTeacher),
	}
	if err := s.teachers.Create(ctx, teacher); err != nil {
		return nil, appErrors.Internal(err, "TEACHER_REGISTRATION_FAILED")
	}
	return teacher, nil
}

// LoginUser authenticates a student or admin account.
func (s *AuthService) LoginUser(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Internal(err, "LOGIN_FAILED")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	role := authz.Role{Kind: authz.KindStudent}
	if user.Role == string(authz.KindAdmin) {
		role = authz.Role{Kind: authz.KindAdmin, OwnerID: user.ID}
	}
	account := models.AccountInfo{ID: user.ID, Email: user.Email, Name: user.FullName, Role: user.Role}
	return s.issueTokens(ctx, account, role, SubjectKindUser, req.IP, req.UserAgent)
}

// LoginTeacher authenticates a teacher account.
func (s *AuthService) LoginTeacher(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	teacher, err := s.teachers.FindByEmail(ctx, strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Internal(err, "LOGIN_FAILED")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(teacher.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	role := authz.Role{Kind: authz.KindTeacher, OwnerID: teacher.ID}
	account := models.AccountInfo{ID: teacher.ID, Email: teacher.Email, Name: teacher.FullName, Role: teacher.Role}
	return s.issueTokens(ctx, account, role, SubjectKindTeacher, req.IP, req.UserAgent)
}

// Refresh exchanges a refresh token for a new token pair, rotating the
// stored session.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload")
	}

	stored, err := s.tokens.FindByToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found")
		}
		return nil, appErrors.Internal(err, "REFRESH_FAILED")
	}
	if stored.Revoked || time.Now().UTC().After(stored.ExpiresAt) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is expired or revoked")
	}

	var account models.AccountInfo
	var role authz.Role
	switch stored.SubjectKind {
	case SubjectKindTeacher:
		teacher, err := s.teachers.FindByID(ctx, stored.SubjectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrUnauthorized, "associated account no longer exists")
			}
			return nil, appErrors.Internal(err, "REFRESH_FAILED")
		}
		account = models.AccountInfo{ID: teacher.ID, Email: teacher.Email, Name: teacher.FullName, Role: teacher.Role}
		role = authz.Role{Kind: authz.KindTeacher, OwnerID: teacher.ID}
	default:
		user, err := s.users.FindByID(ctx, stored.SubjectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrUnauthorized, "associated account no longer exists")
			}
			return nil, appErrors.Internal(err, "REFRESH_FAILED")
		}
		account = models.AccountInfo{ID: user.ID, Email: user.Email, Name: user.FullName, Role: user.Role}
		role = authz.Role{Kind: authz.KindStudent}
		if user.Role == string(authz.KindAdmin) {
			role = authz.Role{Kind: authz.KindAdmin, OwnerID: user.ID}
		}
	}

	if err := s.tokens.Revoke(ctx, stored.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to revoke used refresh token", zap.Error(err))
	}

	login, err := s.issueTokens(ctx, account, role, stored.SubjectKind, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}
	return &models.RefreshTokenResponse{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
		ExpiresIn:    login.ExpiresIn,
		IssuedAt:     login.IssuedAt,
	}, nil
}

// ValidateToken parses and validates an access token. The role claim is
// decoded eagerly so malformed claims fail here, once, instead of at every
// authorization check.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, authz.Role, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, authz.Role{}, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}

	role, err := authz.ParseRole(claims.RoleClaim)
	if err != nil {
		return nil, authz.Role{}, appErrors.Clone(appErrors.ErrUnauthorized, "invalid role claim")
	}
	return claims, role, nil
}

func (s *AuthService) issueTokens(ctx context.Context, account models.AccountInfo, role authz.Role, subjectKind, ip, userAgent string) (*models.LoginResponse, error) {
	now := time.Now().UTC()
	accessToken, err := s.generateAccessToken(account, role, now)
	if err != nil {
		return nil, appErrors.Internal(err, "TOKEN_ISSUE_FAILED")
	}

	refreshValue, err := generateRefreshTokenString()
	if err != nil {
		return nil, appErrors.Internal(err, "TOKEN_ISSUE_FAILED")
	}
	sessionID, err := uuid.NewV7()
	if err != nil {
		return nil, appErrors.Internal(err, "TOKEN_ISSUE_FAILED")
	}
	refresh := &models.RefreshToken{
		ID:          sessionID.String(),
		SubjectID:   account.ID,
		SubjectKind: subjectKind,
		Token:       refreshValue,
		ExpiresAt:   now.Add(s.config.RefreshTokenExpiry),
		CreatedAt:   now,
		IPAddress:   ip,
		UserAgent:   userAgent,
	}
	if err := s.tokens.Create(ctx, refresh); err != nil {
		return nil, appErrors.Internal(err, "TOKEN_ISSUE_FAILED")
	}

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refresh.Token,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     now,
		Account:      account,
	}, nil
}

func (s *AuthService) generateAccessToken(account models.AccountInfo, role authz.Role, now time.Time) (string, error) {
	claims := models.JWTClaims{
		AccountID: account.ID,
		RoleClaim: role.Claim(),
		Email:     account.Email,
		Name:      account.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTokenExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}

func generateRefreshTokenString() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
