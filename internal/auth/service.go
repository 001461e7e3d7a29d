package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"backend-frimining/internal/db"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
	defaultRole     = "operator"

	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"
)

var (
	ErrMissingFields       = errors.New("email, full_name, password required")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("refresh token invalid")
	ErrInvalidToken        = errors.New("token invalid")
)

var (
	hashPasswordFn    = bcrypt.GenerateFromPassword
	parseWithClaimsFn = jwt.ParseWithClaims
	signTokenFn       = (*Service).signToken
)

type Service struct {
	secret []byte
	db     db.Querier
}

// Claims identify the operator and whether the token authorizes requests
// (access) or only mints new pairs (refresh).
type Claims struct {
	OperatorID string `json:"operator_id"`
	Use        string `json:"use"`
	jwt.RegisteredClaims
}

func NewService(secret string, db db.Querier) *Service {
	return &Service{
		secret: []byte(secret),
		db:     db,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (Operator, TokenResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || strings.TrimSpace(req.FullName) == "" || req.Password == "" {
		return Operator{}, TokenResponse{}, ErrMissingFields
	}
	hash, err := hashPasswordFn([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return Operator{}, TokenResponse{}, err
	}

	op := Operator{
		ID:           uuid.NewString(),
		Email:        req.Email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: string(hash),
		MineCode:     req.MineCode,
		Role:         defaultRole,
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO operators (id, email, full_name, password_hash, mine_code, role)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at
	`, op.ID, op.Email, op.FullName, op.PasswordHash, op.MineCode, op.Role)
	if err := row.Scan(&op.CreatedAt, &op.UpdatedAt); err != nil {
		return Operator{}, TokenResponse{}, err
	}

	tokens, err := s.GenerateTokens(ctx, op.ID)
	if err != nil {
		return Operator{}, TokenResponse{}, err
	}
	return op, tokens, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (Operator, TokenResponse, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, email, full_name, password_hash, mine_code, role, created_at, updated_at
		FROM operators WHERE email = $1
	`, normalizeEmail(req.Email))

	var op Operator
	if err := row.Scan(&op.ID, &op.Email, &op.FullName, &op.PasswordHash, &op.MineCode, &op.Role, &op.CreatedAt, &op.UpdatedAt); err != nil {
		return Operator{}, TokenResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(req.Password)); err != nil {
		return Operator{}, TokenResponse{}, ErrInvalidCredentials
	}

	tokens, err := s.GenerateTokens(ctx, op.ID)
	if err != nil {
		return Operator{}, TokenResponse{}, err
	}
	return op, tokens, nil
}

func (s *Service) GenerateTokens(ctx context.Context, operatorID string) (TokenResponse, error) {
	access, err := signTokenFn(s, operatorID, tokenUseAccess)
	if err != nil {
		return TokenResponse{}, err
	}

	refresh, err := signTokenFn(s, operatorID, tokenUseRefresh)
	if err != nil {
		return TokenResponse{}, err
	}

	if err := s.saveRefreshToken(ctx, refresh, operatorID, refreshTokenTTL); err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
	}, nil
}

func (s *Service) ValidateRefreshToken(ctx context.Context, token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err)
	}
	if claims.Use != tokenUseRefresh {
		return "", ErrInvalidRefreshToken
	}

	operatorID, expiresAt, err := s.lookupRefreshToken(ctx, token)
	if err != nil || operatorID != claims.OperatorID || time.Now().After(expiresAt) {
		return "", ErrInvalidRefreshToken
	}
	return claims.OperatorID, nil
}

// Rotate exchanges a refresh token for a new pair. The presented token is
// revoked so it cannot be replayed.
func (s *Service) Rotate(ctx context.Context, token string) (TokenResponse, error) {
	operatorID, err := s.ValidateRefreshToken(ctx, token)
	if err != nil {
		return TokenResponse{}, err
	}
	if _, err := s.db.Exec(ctx, `UPDATE refresh_tokens SET revoked_at = now() WHERE token = $1`, token); err != nil {
		return TokenResponse{}, err
	}
	return s.GenerateTokens(ctx, operatorID)
}

func (s *Service) ValidateAccessToken(token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", err
	}
	if claims.Use != tokenUseAccess {
		return "", ErrInvalidToken
	}
	return claims.OperatorID, nil
}

func (s *Service) signToken(operatorID, use string) (string, error) {
	ttl := accessTokenTTL
	if use == tokenUseRefresh {
		ttl = refreshTokenTTL
	}
	now := time.Now()
	claims := Claims{
		OperatorID: operatorID,
		Use:        use,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	parsed, err := parseWithClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) saveRefreshToken(ctx context.Context, token, operatorID string, ttl time.Duration) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, operator_id, token, expires_at)
		VALUES ($1,$2,$3,$4)
	`, uuid.NewString(), operatorID, token, time.Now().Add(ttl))
	return err
}

func (s *Service) lookupRefreshToken(ctx context.Context, token string) (string, time.Time, error) {
	row := s.db.QueryRow(ctx, `
		SELECT operator_id::text, expires_at
		FROM refresh_tokens
		WHERE token = $1 AND revoked_at IS NULL
	`, token)
	var operatorID string
	var expiresAt time.Time
	if err := row.Scan(&operatorID, &expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return operatorID, expiresAt, nil
}
