// file: utils/jwt_test.go
package utils

import (
	"testing"

	"CASCTF/models"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")

	user := models.User{ID: 7, Username: "player1", Role: models.RolePlayer}
	token, err := GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken returned error: %v", err)
	}
	if claims.UserID != 7 || claims.Username != "player1" || claims.Role != models.RolePlayer {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestParseTokenRejectsBadInput(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")

	if _, err := ParseToken("not-a-token"); err == nil {
		t.Error("garbage token should be rejected")
	}

	user := models.User{ID: 1, Username: "admin", Role: models.RoleAdmin}
	token, err := GenerateToken(user)
	if err != nil {
		t.Fatal(err)
	}

	// 换密钥之后旧 Token 必须失效
	t.Setenv("JWT_SECRET_KEY", "rotated-secret")
	if _, err := ParseToken(token); err == nil {
		t.Error("token signed with the old secret should be rejected")
	}
}
