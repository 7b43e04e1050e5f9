// Package auth выдаёт и проверяет подписанную куку сессии покупателя.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	cookieName   = "yotpo_session"
	cookieMaxAge = 30 * 24 * 60 * 60 // 30 дней
)

type ctxKey struct{}

type Auth struct {
	SecretKey string
}

func New(secret string) *Auth {
	return &Auth{SecretKey: secret}
}

// Создать подпись
func (a *Auth) sign(customerID string) string {
	mac := hmac.New(sha256.New, []byte(a.SecretKey))
	mac.Write([]byte(customerID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Создать куку типа: yotpo_session=customerID:signature
func (a *Auth) issueCookie(w http.ResponseWriter) string {
	customerID := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    a.SignCookieValue(customerID),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   cookieMaxAge,
	})
	return customerID
}

// GetOrSetCustomerID возвращает покупателя из куки или выдаёт новую сессию.
func (a *Auth) GetOrSetCustomerID(w http.ResponseWriter, r *http.Request) string {
	if id, ok := a.ValidateCustomerID(r); ok {
		return id
	}
	return a.issueCookie(w)
}

// ValidateCustomerID проверяет куку сессии.
func (a *Auth) ValidateCustomerID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	parts := strings.SplitN(cookie.Value, ":", 2)
	if len(parts) != 2 || parts[0] == "" || !hmac.Equal([]byte(a.sign(parts[0])), []byte(parts[1])) {
		return "", false
	}

	return parts[0], true
}

// SignCookieValue возвращает значение куки для покупателя.
func (a *Auth) SignCookieValue(customerID string) string {
	return fmt.Sprintf("%s:%s", customerID, a.sign(customerID))
}

// Middleware кладёт ID покупателя в контекст запроса.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := a.GetOrSetCustomerID(w, r)
		next.ServeHTTP(w, r.WithContext(WithCustomerID(r.Context(), id)))
	})
}

// WithCustomerID сохраняет ID покупателя в контексте.
func WithCustomerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// CustomerID извлекает ID покупателя из контекста.
func CustomerID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}
