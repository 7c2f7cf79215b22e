package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/ridegate/adapters/accounts"
	"github.com/layer-3/ridegate/adapters/events"
	"github.com/layer-3/ridegate/adapters/store"
	"github.com/layer-3/ridegate/adapters/tokenizer"
	"github.com/layer-3/ridegate/core"
	"github.com/layer-3/ridegate/service"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	testAccessSecret  = []byte("access-secret")
	testRefreshSecret = []byte("refresh-secret")
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestAuthService(t *testing.T) *service.AuthService {
	t.Helper()

	revocations := store.NewMemoryStore(time.Minute)
	t.Cleanup(revocations.Close)

	tok := tokenizer.NewJWTTokenizer(testAccessSecret, testRefreshSecret, 15*time.Minute, 7*24*time.Hour)
	return service.NewAuthService(
		accounts.NewMemoryRepository(), revocations, tok,
		events.NopPublisher{}, quietLogger(),
		15*time.Minute, 7*24*time.Hour,
	)
}

func registerAccount(t *testing.T, auth *service.AuthService, email string, role core.Role) (*core.Account, *service.TokenPair) {
	t.Helper()
	account, pair, err := auth.Register(context.Background(), service.RegisterParams{
		Email:    email,
		Password: "Password123",
		Role:     role,
	})
	require.NoError(t, err)
	return account, pair
}

// expiredAccessToken mints a token with the service's secrets that is
// already past its expiry.
func expiredAccessToken(t *testing.T, account *core.Account) string {
	t.Helper()
	expired := tokenizer.NewJWTTokenizer(testAccessSecret, testRefreshSecret, -time.Minute, -time.Minute)
	token, err := expired.AccountToAccessToken(account)
	require.NoError(t, err)
	return token
}

func perform(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Success)
	return body.Code
}
