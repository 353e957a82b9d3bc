package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-overtime-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/idempotency"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_StartReplaysWithIdempotencyKey(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := newTestEnv(t, idempotency.NewStore(rdb, time.Hour))
	token := env.token(t, user.RoleEmployee)

	send := func(data string) *httptest.ResponseRecorder {
		req := multipartRequest(t, "/api/v1/overtime/ot-1/start", data, nil)
		req.Header.Set(middleware.HeaderIdempotencyKey, "start-ot-1-attempt")
		return doRequest(env, req, token)
	}

	first := send(`{"latitude":1,"longitude":2}`)
	require.Equal(t, http.StatusOK, first.Code)

	retry := send(`{"latitude":1,"longitude":2}`)
	require.Equal(t, http.StatusOK, retry.Code)
	assert.Equal(t, "true", retry.Header().Get(middleware.HeaderReplayed))
	assert.Equal(t, first.Body.String(), retry.Body.String())
	assert.Equal(t, 1, env.ot.count("Start"))

	changed := send(`{"latitude":9,"longitude":9}`)
	assert.Equal(t, http.StatusUnprocessableEntity, changed.Code)
	assert.Equal(t, 1, env.ot.count("Start"))
}

func TestRouter_Heartbeat(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := doRequest(env, httptest.NewRequest(http.MethodGet, "/", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
