package auth

import (
	"testing"
	"time"
)

const testSecret = "test-secret-key-must-be-32-chars!"

func TestNewJWTService_ValidConfig(t *testing.T) {
	service, err := NewJWTService(JWTConfig{
		Secret:        testSecret,
		Issuer:        "test-issuer",
		TokenDuration: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if service == nil {
		t.Fatal("Expected service to be non-nil")
	}
}

func TestNewJWTService_EmptySecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{Secret: "", Issuer: "test-issuer"})
	if err == nil {
		t.Fatal("Expected error for empty secret")
	}
}

func TestNewJWTService_ShortSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{Secret: "short", Issuer: "test-issuer"})
	if err == nil {
		t.Fatal("Expected error for short secret")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	service, _ := NewJWTService(JWTConfig{
		Secret:        testSecret,
		Issuer:        "test-issuer",
		TokenDuration: 15 * time.Minute,
	})

	token, err := service.GenerateToken("operator-1", "admin")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if token == "" {
		t.Fatal("Expected non-empty token")
	}

	claims, err := service.ValidateToken(token)
	if err != nil {
		t.Fatalf("Expected valid token, got: %v", err)
	}
	if claims.Subject != "operator-1" {
		t.Errorf("Expected subject operator-1, got %q", claims.Subject)
	}
	if !claims.IsAdmin() {
		t.Error("Expected admin role")
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	service, _ := NewJWTService(JWTConfig{Secret: testSecret, Issuer: "iss"})
	other, _ := NewJWTService(JWTConfig{Secret: "another-secret-key-that-is-32-ch!", Issuer: "iss"})

	token, _ := service.GenerateToken("user", "operator")
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatal("Expected error validating with wrong secret")
	}
}

func TestValidateToken_WrongIssuer(t *testing.T) {
	service, _ := NewJWTService(JWTConfig{Secret: testSecret, Issuer: "iss-a"})
	other, _ := NewJWTService(JWTConfig{Secret: testSecret, Issuer: "iss-b"})

	token, _ := service.GenerateToken("user", "operator")
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatal("Expected error for issuer mismatch")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	service, _ := NewJWTService(JWTConfig{
		Secret:        testSecret,
		Issuer:        "iss",
		TokenDuration: -time.Minute,
	})

	token, _ := service.GenerateToken("user", "operator")
	if _, err := service.ValidateToken(token); err == nil {
		t.Fatal("Expected error for expired token")
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	service, _ := NewJWTService(JWTConfig{Secret: testSecret, Issuer: "iss"})
	if _, err := service.ValidateToken("not.a.token"); err == nil {
		t.Fatal("Expected error for malformed token")
	}
}
