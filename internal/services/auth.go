package services

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/openhealth/shared-backend/internal/platform/logger"
	"github.com/openhealth/shared-backend/internal/repos"
	"github.com/openhealth/shared-backend/internal/requestdata"
	"github.com/openhealth/shared-backend/internal/types"
)

// JWTClaims carries the authenticated principal. Admin tokens set IsAdmin and
// Role; founder tokens leave both zero.
type JWTClaims struct {
	jwt.RegisteredClaims
	IsAdmin bool   `json:"is_admin,omitempty"`
	Role    string `json:"role,omitempty"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type AuthService interface {
	RegisterUser(ctx context.Context, user *types.User) (*types.User, *TokenPair, error)
	LoginUser(ctx context.Context, email, password string) (*types.User, *TokenPair, error)
	LoginAdmin(ctx context.Context, email, password string) (*types.AdminUser, *TokenPair, error)
	RefreshUser(ctx context.Context, refreshToken string) (*TokenPair, error)
	LogoutUser(ctx context.Context) error
	// SetContextFromToken validates the bearer token and stores the resulting
	// RequestData on the context for downstream handlers.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	adminRepo     repos.AdminUserRepo
	userTokenRepo repos.UserTokenRepo
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	adminRepo repos.AdminUserRepo,
	userTokenRepo repos.UserTokenRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	return &authService{
		db:            db,
		log:           baseLog.With("service", "AuthService"),
		userRepo:      userRepo,
		adminRepo:     adminRepo,
		userTokenRepo: userTokenRepo,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (as *authService) RegisterUser(ctx context.Context, user *types.User) (*types.User, *TokenPair, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Name = strings.TrimSpace(user.Name)
	if user.Email == "" || !strings.Contains(user.Email, "@") {
		return nil, nil, eris.New("valid email required")
	}
	if user.Name == "" {
		return nil, nil, eris.New("name required")
	}
	if len(user.Password) < 8 {
		return nil, nil, eris.New("password must be at least 8 characters")
	}

	exists, err := as.userRepo.EmailExists(ctx, nil, user.Email)
	if err != nil {
		return nil, nil, eris.Wrap(err, "check email")
	}
	if exists {
		return nil, nil, eris.New("email already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, eris.Wrap(err, "hash password")
	}
	user.Password = string(hashed)

	var pair *TokenPair
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, cErr := as.userRepo.Create(ctx, tx, user)
		if cErr != nil {
			return eris.Wrap(cErr, "create user")
		}
		pair, cErr = as.issueTokens(ctx, tx, created.ID, false, "")
		return cErr
	})
	if err != nil {
		return nil, nil, err
	}
	as.log.Info("User registered", "user_id", user.ID, "email", user.Email)
	return user, pair, nil
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (*types.User, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := as.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		return nil, nil, eris.Wrap(err, "load user")
	}
	if user == nil {
		return nil, nil, eris.New("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, nil, eris.New("invalid email or password")
	}

	var pair *TokenPair
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if dErr := as.userTokenRepo.DeleteExpired(ctx, tx); dErr != nil {
			return eris.Wrap(dErr, "prune expired tokens")
		}
		var iErr error
		pair, iErr = as.issueTokens(ctx, tx, user.ID, false, "")
		return iErr
	})
	if err != nil {
		return nil, nil, err
	}
	if tErr := as.userRepo.TouchLastActive(ctx, nil, user.ID); tErr != nil {
		as.log.Warn("Failed to touch last_active", "user_id", user.ID, "error", tErr)
	}
	return user, pair, nil
}

func (as *authService) LoginAdmin(ctx context.Context, email, password string) (*types.AdminUser, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	admin, err := as.adminRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		return nil, nil, eris.Wrap(err, "load admin")
	}
	if admin == nil {
		return nil, nil, eris.New("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)); err != nil {
		return nil, nil, eris.New("invalid email or password")
	}

	var pair *TokenPair
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var iErr error
		pair, iErr = as.issueTokens(ctx, tx, admin.ID, true, admin.Role)
		return iErr
	})
	if err != nil {
		return nil, nil, err
	}
	if tErr := as.adminRepo.TouchLastLogin(ctx, nil, admin.ID); tErr != nil {
		as.log.Warn("Failed to touch last_login", "admin_id", admin.ID, "error", tErr)
	}
	return admin, pair, nil
}

func (as *authService) RefreshUser(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, eris.New("refresh token required")
	}

	var pair *TokenPair
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, fErr := as.userTokenRepo.GetByToken(ctx, tx, refreshToken)
		if fErr != nil {
			return eris.Wrap(fErr, "load refresh token")
		}
		if existing == nil || existing.ExpiresAt.Before(time.Now()) {
			return eris.New("refresh token expired")
		}

		// Rotate: new pair replaces the old refresh token entirely.
		if dErr := as.userTokenRepo.DeleteByUser(ctx, tx, existing.UserID); dErr != nil {
			return eris.Wrap(dErr, "delete old tokens")
		}

		isAdmin, role := false, ""
		if admin, aErr := as.adminRepo.GetByID(ctx, tx, existing.UserID); aErr == nil && admin != nil {
			isAdmin, role = true, admin.Role
		}
		var iErr error
		pair, iErr = as.issueTokens(ctx, tx, existing.UserID, isAdmin, role)
		return iErr
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (as *authService) LogoutUser(ctx context.Context) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return eris.New("no request data in context")
	}
	return as.userTokenRepo.DeleteByUser(ctx, nil, rd.UserID)
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, eris.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, eris.Wrap(err, "parse token")
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, eris.New("invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, eris.Wrap(err, "parse subject")
	}

	rd := &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		IsAdmin:     claims.IsAdmin,
		AdminRole:   claims.Role,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}

func (as *authService) issueTokens(ctx context.Context, tx *gorm.DB, subjectID uuid.UUID, isAdmin bool, role string) (*TokenPair, error) {
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		IsAdmin: isAdmin,
		Role:    role,
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(as.jwtSecretKey))
	if err != nil {
		return nil, eris.Wrap(err, "sign access token")
	}

	refreshToken := uuid.New().String()
	if _, err := as.userTokenRepo.Create(ctx, tx, &types.UserToken{
		UserID:    subjectID,
		Token:     refreshToken,
		ExpiresAt: time.Now().Add(as.refreshTTL),
	}); err != nil {
		return nil, eris.Wrap(err, "store refresh token")
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
