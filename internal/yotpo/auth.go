package yotpo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Totarae/YotpoBridge/internal/config"
)

// ErrRejected: Yotpo ответил статусом ошибки.
var ErrRejected = errors.New("yotpo rejected request")

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Authenticator получает utoken для выгрузки покупок.
type Authenticator struct {
	svc Caller
}

// NewAuthenticator создаёт Authenticator поверх сервиса токенов.
func NewAuthenticator(svc Caller) *Authenticator {
	return &Authenticator{svc: svc}
}

// Token запрашивает utoken для app key локали.
func (a *Authenticator) Token(ctx context.Context, lc config.LocaleConfig) (string, error) {
	res, err := a.svc.Call(ctx, tokenRequest{
		ClientID:     lc.AppKey,
		ClientSecret: lc.ClientSecret,
		GrantType:    "client_credentials",
	})
	if err != nil {
		return "", fmt.Errorf("token for %s: %w", lc.Locale, err)
	}
	if !res.OK() {
		return "", fmt.Errorf("token for %s: %w: status %d", lc.Locale, ErrRejected, res.StatusCode)
	}

	var tok tokenResponse
	if err := json.Unmarshal([]byte(bodyText(res.Object)), &tok); err != nil {
		return "", fmt.Errorf("token for %s: decode: %w", lc.Locale, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token for %s: %w: empty access_token", lc.Locale, ErrRejected)
	}
	return tok.AccessToken, nil
}

func bodyText(obj any) string {
	switch v := obj.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}
