package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-overtime-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/idempotency"
	"github.com/go-chi/jwtauth/v5"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"

	maxIdempotentBody = 11 << 20
	storeTimeout      = 2 * time.Second
)

type respRecorder struct {
	w    http.ResponseWriter
	buf  bytes.Buffer
	code int
}

func (r *respRecorder) Header() http.Header { return r.w.Header() }

func (r *respRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.w.Write(b)
}

func (r *respRecorder) WriteHeader(statusCode int) {
	r.code = statusCode
	r.w.WriteHeader(statusCode)
}

// Idempotency replays the stored response when a client repeats a mutating request with the
// same Idempotency-Key. Requests without the header pass through. A nil store disables it.
// Server errors release the key so the client can retry.
func Idempotency(store *idempotency.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil {
				next.ServeHTTP(w, r)
				return
			}
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			clientKey := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
			if clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !idempotency.ValidKey(clientKey) {
				response.BadRequest(w, "Invalid Idempotency-Key format", nil)
				return
			}

			_, claims, _ := jwtauth.FromContext(r.Context())
			userID, _ := claims["user_id"].(string)
			if userID == "" {
				response.Unauthorized(w, "Unauthorized")
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIdempotentBody))
			if err != nil {
				response.BadRequest(w, "Request body too large", nil)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			bodyHash := idempotency.BodyHash(body)

			key := idempotency.BuildKey(r.Method, r.URL.Path, userID, clientKey)

			ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
			defer cancel()

			reserved, err := store.Reserve(ctx, key, idempotency.Entry{
				InProgress: true,
				BodySHA256: bodyHash,
				CreatedAt:  time.Now().UTC(),
			})
			if err != nil {
				slog.Error("idempotency store unavailable", "error", err)
				response.ServiceUnavailable(w, "Idempotency store unavailable")
				return
			}
			if !reserved {
				replay(ctx, w, store, key, bodyHash)
				return
			}

			rec := &respRecorder{w: w, code: http.StatusOK}
			next.ServeHTTP(rec, r)

			// The request context may already be cancelled once the handler returns.
			saveCtx, saveCancel := context.WithTimeout(context.Background(), storeTimeout)
			defer saveCancel()

			if rec.code >= http.StatusInternalServerError {
				if err := store.Release(saveCtx, key); err != nil {
					slog.Warn("failed to release idempotency key", "key", key, "error", err)
				}
				return
			}

			err = store.Complete(saveCtx, key, idempotency.Entry{
				Code:        rec.code,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.buf.Bytes(),
				BodySHA256:  bodyHash,
				CreatedAt:   time.Now().UTC(),
			})
			if err != nil {
				slog.Warn("failed to store idempotent response", "key", key, "error", err)
			}
		})
	}
}

func replay(ctx context.Context, w http.ResponseWriter, store *idempotency.Store, key, bodyHash string) {
	cur, err := store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, idempotency.ErrNotFound) {
			// Released between Reserve and Load; the first request failed and the client may retry.
			response.Conflict(w, "Request with this Idempotency-Key is being retried, try again")
			return
		}
		slog.Error("failed to load idempotency entry", "key", key, "error", err)
		response.ServiceUnavailable(w, "Idempotency store unavailable")
		return
	}

	if cur.BodySHA256 != "" && cur.BodySHA256 != bodyHash {
		response.Error(w, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "Idempotency-Key reused with a different request body", nil)
		return
	}
	if !cur.Replayable() {
		response.Error(w, http.StatusConflict, "REQUEST_IN_PROGRESS", "A request with this Idempotency-Key is in progress", nil)
		return
	}

	contentType := cur.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set(HeaderReplayed, "true")
	w.WriteHeader(cur.Code)
	_, _ = w.Write(cur.Body)
}
