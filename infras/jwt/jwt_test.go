package jwt_test

import (
	"campus/config"
	"campus/infras/jwt"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "campus"
	cfg.JWT.AccessSecret = "test-secret"
	cfg.JWT.AccessExpireMin = 5

	return cfg
}

func TestGenerateAndValidate(t *testing.T) {
	svc := jwt.New(newConfig())

	token, err := svc.GenerateAccessToken("staff-7", "staff")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "staff-7", claims.UserID)
	assert.Equal(t, "staff", claims.Role)
	assert.Equal(t, "campus", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := jwt.New(newConfig()).GenerateAccessToken("staff-7", "staff")
	require.NoError(t, err)

	other := newConfig()
	other.JWT.AccessSecret = "rotated"

	_, err = jwt.New(other).ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestValidateToken_Expired(t *testing.T) {
	cfg := newConfig()
	past := time.Now().Add(-time.Hour)

	claims := jwt.Claims{
		UserID: "teacher-1",
		Role:   "teacher",
		RegisteredClaims: gojwt.RegisteredClaims{
			ExpiresAt: gojwt.NewNumericDate(past),
			IssuedAt:  gojwt.NewNumericDate(past.Add(-time.Minute)),
		},
	}

	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWT.AccessSecret))
	require.NoError(t, err)

	_, err = jwt.New(cfg).ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrExpiredToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	_, err := jwt.New(newConfig()).ValidateToken("not.a.token")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestExtractTokenFromHeader(t *testing.T) {
	token, err := jwt.ExtractTokenFromHeader("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	_, err = jwt.ExtractTokenFromHeader("")
	assert.ErrorIs(t, err, jwt.ErrMissingToken)

	_, err = jwt.ExtractTokenFromHeader("Basic abc")
	assert.ErrorIs(t, err, jwt.ErrTokenScheme)

	_, err = jwt.ExtractTokenFromHeader("Bearer ")
	assert.ErrorIs(t, err, jwt.ErrTokenScheme)
}
