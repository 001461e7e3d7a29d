package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pashagolub/pgxmock/v3"
	"golang.org/x/crypto/bcrypt"
)

var operatorColumns = []string{"id", "email", "full_name", "password_hash", "mine_code", "role", "created_at", "updated_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func expectRefreshInsert(mock pgxmock.PgxPoolIface, operatorID any) *pgxmock.ExpectedExec {
	return mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), operatorID, pgxmock.AnyArg(), pgxmock.AnyArg())
}

func TestRegisterAndLogin(t *testing.T) {
	mock := newMock(t)
	createdAt := time.Now().Add(-time.Minute)
	updatedAt := time.Now().Add(-time.Minute)

	mock.ExpectQuery(`INSERT INTO operators`).
		WithArgs(pgxmock.AnyArg(), "ana@mina.co", "Ana Restrepo", pgxmock.AnyArg(), "RPP-0042", "operator").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(createdAt, updatedAt))
	expectRefreshInsert(mock, pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService("test-secret", mock)
	op, tokens, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "  Ana@Mina.co ",
		FullName: "Ana Restrepo",
		Password: "password123",
		MineCode: "RPP-0042",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if op.ID == "" || tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected operator and tokens")
	}
	if op.Email != "ana@mina.co" || op.Role != "operator" {
		t.Fatalf("unexpected operator %+v", op)
	}

	mock.ExpectQuery(`SELECT id, email, full_name, password_hash, mine_code, role, created_at, updated_at`).
		WithArgs("ana@mina.co").
		WillReturnRows(pgxmock.NewRows(operatorColumns).
			AddRow(op.ID, op.Email, op.FullName, op.PasswordHash, op.MineCode, op.Role, createdAt, updatedAt))
	expectRefreshInsert(mock, op.ID).WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, loginTokens, err := svc.Login(context.Background(), LoginRequest{Email: "ANA@mina.co", Password: "password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loginTokens.AccessToken == "" || loginTokens.RefreshToken == "" {
		t.Fatalf("expected login tokens")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestValidateRefreshToken(t *testing.T) {
	mock := newMock(t)
	expectRefreshInsert(mock, "op-1").WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService("test-secret", mock)
	tokens, err := svc.GenerateTokens(context.Background(), "op-1")
	if err != nil {
		t.Fatalf("generate tokens: %v", err)
	}

	mock.ExpectQuery(`SELECT operator_id::text, expires_at`).
		WithArgs(tokens.RefreshToken).
		WillReturnRows(pgxmock.NewRows([]string{"operator_id", "expires_at"}).AddRow("op-1", time.Now().Add(5*time.Minute)))

	operatorID, err := svc.ValidateRefreshToken(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("validate refresh: %v", err)
	}
	if operatorID != "op-1" {
		t.Fatalf("unexpected operator_id: %s", operatorID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRotateRevokesPresentedToken(t *testing.T) {
	mock := newMock(t)
	expectRefreshInsert(mock, "op-1").WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService("test-secret", mock)
	tokens, err := svc.GenerateTokens(context.Background(), "op-1")
	if err != nil {
		t.Fatalf("generate tokens: %v", err)
	}

	mock.ExpectQuery(`SELECT operator_id::text, expires_at`).
		WithArgs(tokens.RefreshToken).
		WillReturnRows(pgxmock.NewRows([]string{"operator_id", "expires_at"}).AddRow("op-1", time.Now().Add(time.Hour)))
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at`).
		WithArgs(tokens.RefreshToken).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectRefreshInsert(mock, "op-1").WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rotated, err := svc.Rotate(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if rotated.RefreshToken == tokens.RefreshToken {
		t.Fatalf("expected a fresh refresh token")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRegisterMissingFields(t *testing.T) {
	svc := NewService("test-secret", newMock(t))
	cases := []RegisterRequest{
		{Email: "", FullName: "u", Password: "p"},
		{Email: "a@b.co", FullName: " ", Password: "p"},
		{Email: "a@b.co", FullName: "u"},
	}
	for _, req := range cases {
		if _, _, err := svc.Register(context.Background(), req); !errors.Is(err, ErrMissingFields) {
			t.Fatalf("expected missing fields for %+v, got %v", req, err)
		}
	}
}

func TestLoginInvalidPassword(t *testing.T) {
	mock := newMock(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)

	mock.ExpectQuery(`SELECT id, email, full_name, password_hash`).
		WithArgs("ana@mina.co").
		WillReturnRows(pgxmock.NewRows(operatorColumns).
			AddRow("op-1", "ana@mina.co", "Ana", string(hash), "", "operator", time.Now(), time.Now()))

	svc := NewService("test-secret", mock)
	_, _, err := svc.Login(context.Background(), LoginRequest{Email: "ana@mina.co", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGenerateTokensSaveRefreshError(t *testing.T) {
	mock := newMock(t)
	expectRefreshInsert(mock, "op-1").WillReturnError(pgErr)

	svc := NewService("test-secret", mock)
	if _, err := svc.GenerateTokens(context.Background(), "op-1"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGenerateTokensAccessSignError(t *testing.T) {
	oldSign := signTokenFn
	signTokenFn = func(_ *Service, _, _ string) (string, error) {
		return "", pgErr
	}
	defer func() { signTokenFn = oldSign }()

	svc := NewService("test-secret", nil)
	if _, err := svc.GenerateTokens(context.Background(), "op-1"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGenerateTokensRefreshSignError(t *testing.T) {
	oldSign := signTokenFn
	call := 0
	signTokenFn = func(_ *Service, _, _ string) (string, error) {
		call++
		if call == 2 {
			return "", pgErr
		}
		return "token", nil
	}
	defer func() { signTokenFn = oldSign }()

	svc := NewService("test-secret", nil)
	if _, err := svc.GenerateTokens(context.Background(), "op-1"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRegisterHashError(t *testing.T) {
	oldHash := hashPasswordFn
	hashPasswordFn = func(_ []byte, _ int) ([]byte, error) {
		return nil, pgErr
	}
	defer func() { hashPasswordFn = oldHash }()

	svc := NewService("test-secret", nil)
	_, _, err := svc.Register(context.Background(), RegisterRequest{Email: "a@b.co", FullName: "A", Password: "pass"})
	if !errors.Is(err, pgErr) {
		t.Fatalf("expected hash error, got %v", err)
	}
}

func TestParseTokenInvalid(t *testing.T) {
	oldParse := parseWithClaimsFn
	parseWithClaimsFn = func(_ string, _ jwt.Claims, _ jwt.Keyfunc, _ ...jwt.ParserOption) (*jwt.Token, error) {
		return &jwt.Token{Valid: false, Claims: &Claims{}}, nil
	}
	defer func() { parseWithClaimsFn = oldParse }()

	svc := NewService("test-secret", nil)
	if _, err := svc.parseToken("token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestParseTokenRejectsOtherSecret(t *testing.T) {
	token, err := NewService("other-secret", nil).signToken("op-1", tokenUseAccess)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := NewService("test-secret", nil).ValidateAccessToken(token); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestValidateAccessTokenInvalid(t *testing.T) {
	svc := NewService("test-secret", nil)
	if _, err := svc.ValidateAccessToken("invalid-token"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRegisterDBError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO operators`).
		WithArgs(pgxmock.AnyArg(), "a@b.co", "A", pgxmock.AnyArg(), "", "operator").
		WillReturnError(pgErr)

	svc := NewService("test-secret", mock)
	_, _, err := svc.Register(context.Background(), RegisterRequest{Email: "a@b.co", FullName: "A", Password: "pass"})
	if err == nil {
		t.Fatalf("expected db error")
	}
}

func TestLoginQueryError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM operators WHERE email`).WithArgs("a@b.co").WillReturnError(pgErr)

	svc := NewService("test-secret", mock)
	if _, _, err := svc.Login(context.Background(), LoginRequest{Email: "a@b.co", Password: "pass"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRegisterGenerateTokensError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO operators`).
		WithArgs(pgxmock.AnyArg(), "a@b.co", "A", pgxmock.AnyArg(), "", "operator").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))
	expectRefreshInsert(mock, pgxmock.AnyArg()).WillReturnError(pgErr)

	svc := NewService("test-secret", mock)
	_, _, err := svc.Register(context.Background(), RegisterRequest{Email: "a@b.co", FullName: "A", Password: "pass"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoginGenerateTokensError(t *testing.T) {
	mock := newMock(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("pass"), bcrypt.MinCost)

	mock.ExpectQuery(`FROM operators WHERE email`).
		WithArgs("a@b.co").
		WillReturnRows(pgxmock.NewRows(operatorColumns).
			AddRow("op-1", "a@b.co", "A", string(hash), "", "operator", time.Now(), time.Now()))
	expectRefreshInsert(mock, "op-1").WillReturnError(pgErr)

	svc := NewService("test-secret", mock)
	if _, _, err := svc.Login(context.Background(), LoginRequest{Email: "a@b.co", Password: "pass"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateRefreshTokenExpired(t *testing.T) {
	mock := newMock(t)
	expectRefreshInsert(mock, "op-2").WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService("test-secret", mock)
	tokens, err := svc.GenerateTokens(context.Background(), "op-2")
	if err != nil {
		t.Fatalf("generate tokens: %v", err)
	}

	mock.ExpectQuery(`SELECT operator_id::text, expires_at`).
		WithArgs(tokens.RefreshToken).
		WillReturnRows(pgxmock.NewRows([]string{"operator_id", "expires_at"}).AddRow("op-2", time.Now().Add(-time.Minute)))

	if _, err = svc.ValidateRefreshToken(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected expired token error, got %v", err)
	}
}

func TestValidateRefreshTokenLookupError(t *testing.T) {
	mock := newMock(t)
	svc := NewService("test-secret", mock)

	expectRefreshInsert(mock, "op-3").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	tokens, err := svc.GenerateTokens(context.Background(), "op-3")
	if err != nil {
		t.Fatalf("generate tokens: %v", err)
	}

	mock.ExpectQuery(`SELECT operator_id::text, expires_at`).
		WithArgs(tokens.RefreshToken).
		WillReturnError(pgErr)

	if _, err = svc.ValidateRefreshToken(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token, got %v", err)
	}
}

var pgErr = errors.New("db error")

func TestTokenUseIsEnforced(t *testing.T) {
	svc := NewService("test-secret", nil)
	access, err := svc.signToken("op-1", tokenUseAccess)
	if err != nil {
		t.Fatalf("sign access: %v", err)
	}
	refresh, err := svc.signToken("op-1", tokenUseRefresh)
	if err != nil {
		t.Fatalf("sign refresh: %v", err)
	}

	if _, err := svc.ValidateAccessToken(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected refresh token rejected as access, got %v", err)
	}
	if _, err := svc.ValidateRefreshToken(context.Background(), access); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected access token rejected as refresh, got %v", err)
	}
}
