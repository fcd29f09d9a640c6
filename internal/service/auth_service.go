package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/asset-desk-api/internal/models"
	appErrors "github.com/noah-isme/asset-desk-api/pkg/errors"
	"github.com/noah-isme/asset-desk-api/pkg/events"
)

type authUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// AuthConfig describes how access tokens from the hosted auth provider are verified.
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience []string
}

// AuthService turns bearer tokens into actors. Credentials never reach this
// service; it only verifies tokens and provisions the matching user row.
type AuthService struct {
	repo   authUserRepository
	logger *zap.Logger
	config AuthConfig
	opts   serviceOptions
	notify notifier
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, logger *zap.Logger, config AuthConfig, opts ...ServiceOption) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := buildOptions(opts)
	return &AuthService{repo: repo, logger: logger, config: config, opts: o, notify: newNotifier(o.publisher, o.metrics, logger)}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.AuthClaims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.opts.now),
	}
	if s.config.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &models.AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, parserOpts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.AuthClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token has no subject")
	}
	if !s.audienceAllowed(claims.Audience) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token audience not accepted")
	}
	return claims, nil
}

// Authenticate validates the token and resolves the stored user, creating it
// with the user role on first sight.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.Actor, *models.User, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.Provision(ctx, claims)
	if err != nil {
		return nil, nil, err
	}
	return &models.Actor{UserID: user.ID, Role: user.Role, Email: user.Email}, user, nil
}

// Provision returns the user row for the token subject, inserting it when
// missing. The role always comes from the store; token role claims are ignored.
func (s *AuthService) Provision(ctx context.Context, claims *models.AuthClaims) (*models.User, error) {
	actor := &models.Actor{UserID: claims.Subject}
	oc := opContext{op: "provision user", actor: actor, entity: "user", entityID: claims.Subject}

	user, err := s.repo.FindByID(ctx, claims.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, storeError(ctx, s.logger, oc, err)
	}

	user = &models.User{
		ID:    claims.Subject,
		Email: claims.Email,
		Role:  models.RoleUser,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, storeError(ctx, s.logger, oc, err)
	}
	// A concurrent first login may have inserted the row already.
	stored, err := s.repo.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, storeError(ctx, s.logger, oc, err)
	}
	s.logger.Info("provisioned user on first authentication", zap.String("user_id", stored.ID))
	s.notify.emit(ctx, events.New(events.UserChanged, "users", stored.ID, stored.ID, stored))
	return stored, nil
}

func (s *AuthService) audienceAllowed(aud jwt.ClaimStrings) bool {
	if len(s.config.Audience) == 0 {
		return true
	}
	for _, want := range s.config.Audience {
		for _, got := range aud {
			if want == got {
				return true
			}
		}
	}
	return false
}
