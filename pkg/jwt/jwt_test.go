package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-access-secret-key-for-testing-purposes"
	testIssuer = "tripnest"
)

func testProfile() Profile {
	return Profile{
		FirstName: "Kim",
		LastName:  "Park",
		Email:     "kim@example.com",
		Phone:     "0771234567",
	}
}

func TestNewService(t *testing.T) {
	service := NewService(testSecret, testIssuer, time.Hour)

	assert.NotNil(t, service)
	assert.Equal(t, testSecret, service.secret)
	assert.Equal(t, testIssuer, service.issuer)
	assert.Equal(t, time.Hour, service.accessTokenExpiry)
}

func TestGenerateAccessToken(t *testing.T) {
	service := NewService(testSecret, testIssuer, time.Hour)
	memberID := uuid.New()

	token, err := service.GenerateAccessToken(memberID, testProfile())
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	// Validate the generated token
	claims, err := service.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, memberID, claims.MemberID)
	assert.Equal(t, testProfile(), claims.Profile)
	assert.Equal(t, AccessToken, claims.TokenType)
	assert.Equal(t, testIssuer, claims.Issuer)
	assert.Equal(t, memberID.String(), claims.Subject)
}

func TestValidateAccessToken_Rejects(t *testing.T) {
	service := NewService(testSecret, testIssuer, time.Hour)
	token, err := service.GenerateAccessToken(uuid.New(), testProfile())
	require.NoError(t, err)

	tests := []struct {
		name    string
		service *Service
		token   string
	}{
		{"garbage", service, "invalid.token.here"},
		{"wrong secret", NewService("wrong-secret", testIssuer, time.Hour), token},
		{"wrong issuer", NewService(testSecret, "someone-else", time.Hour), token},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.service.ValidateAccessToken(tt.token)
			assert.Error(t, err)
			assert.NotErrorIs(t, err, ErrTokenExpired)
		})
	}
}

func TestValidateAccessToken_WrongTokenType(t *testing.T) {
	claims := Claims{
		MemberID:  uuid.New(),
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewService(testSecret, testIssuer, time.Hour).ValidateAccessToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token type")
}

func TestValidateAccessToken_MissingMemberID(t *testing.T) {
	service := NewService(testSecret, testIssuer, time.Hour)
	token, err := service.GenerateAccessToken(uuid.Nil, testProfile())
	require.NoError(t, err)

	_, err = service.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	expiredService := NewService(testSecret, testIssuer, -time.Hour)

	token, err := expiredService.GenerateAccessToken(uuid.New(), testProfile())
	require.NoError(t, err)

	_, err = expiredService.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenSigningMethod(t *testing.T) {
	service := NewService(testSecret, testIssuer, time.Hour)

	token, err := service.GenerateAccessToken(uuid.New(), testProfile())
	require.NoError(t, err)

	parsedToken, err := jwt.ParseWithClaims(token, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)

	_, ok := parsedToken.Method.(*jwt.SigningMethodHMAC)
	assert.True(t, ok, "Token should use HMAC signing method")

	// alg=none must never validate
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, parsedToken.Claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = service.ValidateAccessToken(unsigned)
	assert.Error(t, err)
}

func TestConcurrentTokenGeneration(t *testing.T) {
	service := NewService(testSecret, testIssuer, time.Hour)

	done := make(chan bool)
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		go func() {
			token, err := service.GenerateAccessToken(uuid.New(), testProfile())
			if err != nil {
				errs <- err
				done <- true
				return
			}

			if _, err := service.ValidateAccessToken(token); err != nil {
				errs <- err
			}
			done <- true
		}()
	}

	for i := 0; i < 100; i++ {
		<-done
	}

	close(errs)
	assert.Empty(t, errs)
}
