package domain

import "github.com/golang-jwt/jwt/v5"

// CustomClaims — полезная нагрузка токена, который выпускает identity-сервис
// CRM. Мы токены не выпускаем, только проверяем подпись RS256.
type CustomClaims struct {
	UserID string          `json:"user_id"`
	OrgID  string          `json:"org_id"`
	Scopes map[string]bool `json:"scopes"` // "autopilot.read": true, "autopilot.operate": true
	jwt.RegisteredClaims
}

// HasScope — безопасная проверка (мапа в claims может быть nil).
func (c *CustomClaims) HasScope(scope string) bool {
	if c == nil || c.Scopes == nil {
		return false
	}
	return c.Scopes[scope]
}
