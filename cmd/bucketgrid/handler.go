/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cast"
	"golang.org/x/time/rate"

	"github.com/acronis/go-bucketgrid/backend"
	"github.com/acronis/go-bucketgrid/command"
	"github.com/acronis/go-bucketgrid/log"
	"github.com/acronis/go-bucketgrid/proxy"
)

const (
	contentTypeAppJSON = "application/json"

	headerInstanceID = "X-Bucketgrid-Instance"
	headerRetryAfter = "Retry-After"

	urlParamKey    = "key"
	queryTokens    = "tokens"
	queryLimit     = "limit"
	defaultTokens  = 1
	routeBucketKey = "/buckets/{" + urlParamKey + "}"

	errorLogsPerSecond = 10
)

// Error codes of the HTTP API.
const (
	errCodeInvalidArgument     = "invalidArgument"
	errCodeBucketNotConfigured = "bucketNotConfigured"
	errCodeStoreUnavailable    = "storeUnavailable"
	errCodeTooManyConflicts    = "tooManyConflicts"
	errCodeRequestCanceled     = "requestCanceled"
	errCodeInternal            = "internalError"
	errCodeNotFound            = "notFound"
	errCodeMethodNotAllowed    = "methodNotAllowed"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

type consumeResponse struct {
	Consumed             bool  `json:"consumed"`
	RemainingTokens      int64 `json:"remainingTokens"`
	NanosToWaitForRefill int64 `json:"nanosToWaitForRefill"`
}

type consumeMaxResponse struct {
	ConsumedTokens int64 `json:"consumedTokens"`
}

type availableTokensResponse struct {
	AvailableTokens int64 `json:"availableTokens"`
}

type estimateResponse struct {
	NanosToWaitForRefill int64 `json:"nanosToWaitForRefill"`
}

// bucketResolver returns the proxy of the bucket stored under the key.
type bucketResolver interface {
	Resolve(key string) *proxy.Bucket
}

// managerResolver resolves buckets via proxy.Manager, taking configurations from the rules.
type managerResolver struct {
	manager *proxy.Manager
	rules   *ruleSet
}

func (r *managerResolver) Resolve(key string) *proxy.Bucket {
	return r.manager.GetProxy(key, r.rules.Supplier(key))
}

type bucketsHandler struct {
	resolver bucketResolver
	logger   log.FieldLogger

	// errLogLimiter limits logging of failures caused by the store.
	errLogLimiter *rate.Limiter
}

func newRouter(resolver bucketResolver, instanceID string, logger log.FieldLogger) http.Handler {
	h := &bucketsHandler{
		resolver:      resolver,
		logger:        logger,
		errLogLimiter: rate.NewLimiter(rate.Limit(errorLogsPerSecond), errorLogsPerSecond),
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer, instanceIDMiddleware(instanceID), loggingMiddleware(logger))
	router.NotFound(func(rw http.ResponseWriter, r *http.Request) {
		respondError(rw, http.StatusNotFound, errCodeNotFound, "resource not found", logger)
	})
	router.MethodNotAllowed(func(rw http.ResponseWriter, r *http.Request) {
		respondError(rw, http.StatusMethodNotAllowed, errCodeMethodNotAllowed, "method not allowed", logger)
	})

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
	})
	router.Route(routeBucketKey, func(r chi.Router) {
		r.Post("/consume", h.consume)
		r.Post("/consume-max", h.consumeMax)
		r.Post("/add", h.add)
		r.Post("/reset", h.reset)
		r.Get("/available", h.available)
		r.Get("/estimate", h.estimate)
	})
	return router
}

func (h *bucketsHandler) consume(rw http.ResponseWriter, r *http.Request) {
	tokens, ok := h.queryInt64(rw, r, queryTokens)
	if !ok {
		return
	}
	probe, err := h.bucket(r).TryConsumeAndReturnRemaining(r.Context(), tokens)
	if err != nil {
		h.respondBucketError(rw, r, err)
		return
	}
	statusCode := http.StatusOK
	if !probe.Consumed {
		statusCode = http.StatusTooManyRequests
		if probe.NanosToWaitForRefill >= 0 {
			rw.Header().Set(headerRetryAfter, retryAfterSeconds(probe.NanosToWaitForRefill))
		}
	}
	respondJSON(rw, statusCode, consumeResponse{
		Consumed:             probe.Consumed,
		RemainingTokens:      probe.RemainingTokens,
		NanosToWaitForRefill: probe.NanosToWaitForRefill,
	}, h.logger)
}

func (h *bucketsHandler) consumeMax(rw http.ResponseWriter, r *http.Request) {
	limit, ok := h.queryInt64(rw, r, queryLimit)
	if !ok {
		return
	}
	consumed, err := h.bucket(r).ConsumeAsMuchAsPossible(r.Context(), limit)
	if err != nil {
		h.respondBucketError(rw, r, err)
		return
	}
	respondJSON(rw, http.StatusOK, consumeMaxResponse{ConsumedTokens: consumed}, h.logger)
}

func (h *bucketsHandler) add(rw http.ResponseWriter, r *http.Request) {
	tokens, ok := h.queryInt64(rw, r, queryTokens)
	if !ok {
		return
	}
	if err := h.bucket(r).AddTokens(r.Context(), tokens); err != nil {
		h.respondBucketError(rw, r, err)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (h *bucketsHandler) reset(rw http.ResponseWriter, r *http.Request) {
	if err := h.bucket(r).Reset(r.Context()); err != nil {
		h.respondBucketError(rw, r, err)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (h *bucketsHandler) available(rw http.ResponseWriter, r *http.Request) {
	tokens, err := h.bucket(r).GetAvailableTokens(r.Context())
	if err != nil {
		h.respondBucketError(rw, r, err)
		return
	}
	respondJSON(rw, http.StatusOK, availableTokensResponse{AvailableTokens: tokens}, h.logger)
}

func (h *bucketsHandler) estimate(rw http.ResponseWriter, r *http.Request) {
	tokens, ok := h.queryInt64(rw, r, queryTokens)
	if !ok {
		return
	}
	wait, err := h.bucket(r).EstimateTimeToRefill(r.Context(), tokens)
	if err != nil {
		h.respondBucketError(rw, r, err)
		return
	}
	respondJSON(rw, http.StatusOK, estimateResponse{NanosToWaitForRefill: wait.Nanoseconds()}, h.logger)
}

func (h *bucketsHandler) bucket(r *http.Request) *proxy.Bucket {
	return h.resolver.Resolve(chi.URLParam(r, urlParamKey))
}

// queryInt64 parses an integer query parameter, defaultTokens is used if it is missing.
func (h *bucketsHandler) queryInt64(rw http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultTokens, true
	}
	val, err := cast.ToInt64E(raw)
	if err != nil {
		respondError(rw, http.StatusBadRequest, errCodeInvalidArgument,
			fmt.Sprintf("query parameter %q must be an integer", name), h.logger)
		return 0, false
	}
	return val, true
}

func (h *bucketsHandler) respondBucketError(rw http.ResponseWriter, r *http.Request, err error) {
	statusCode, errCode := statusAndCodeForError(err)
	if statusCode == http.StatusInternalServerError ||
		(statusCode == http.StatusServiceUnavailable && h.errLogLimiter.Allow()) {
		h.logger.Error("bucket operation failed",
			log.BucketKey(chi.URLParam(r, urlParamKey)), log.String("path", r.URL.Path), log.Error(err))
	}
	respondError(rw, statusCode, errCode, err.Error(), h.logger)
}

func statusAndCodeForError(err error) (int, string) {
	switch {
	case errors.Is(err, command.ErrInvalidArgument):
		return http.StatusBadRequest, errCodeInvalidArgument
	case errors.Is(err, ErrNoMatchingRule):
		return http.StatusNotFound, errCodeBucketNotConfigured
	case errors.Is(err, backend.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, errCodeStoreUnavailable
	case errors.Is(err, backend.ErrCASRetriesExhausted):
		return http.StatusServiceUnavailable, errCodeTooManyConflicts
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, errCodeRequestCanceled
	}
	return http.StatusInternalServerError, errCodeInternal
}

// retryAfterSeconds rounds the wait up to whole seconds.
func retryAfterSeconds(nanos int64) string {
	secs := (nanos + int64(time.Second) - 1) / int64(time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

func respondError(rw http.ResponseWriter, statusCode int, code, message string, logger log.FieldLogger) {
	respondJSON(rw, statusCode, errorResponse{Error: apiError{Code: code, Message: message}}, logger)
}

func respondJSON(rw http.ResponseWriter, statusCode int, respData interface{}, logger log.FieldLogger) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(respData); err != nil {
		logger.Error("error while marshaling json for response body", log.Error(err))
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", contentTypeAppJSON)
	rw.WriteHeader(statusCode)
	if _, err := rw.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))); err != nil {
		logger.Error("error while writing response body", log.Error(err))
	}
}

func instanceIDMiddleware(instanceID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			rw.Header().Set(headerInstanceID, instanceID)
			next.ServeHTTP(rw, r)
		})
	}
}

func loggingMiddleware(logger log.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			wrw := middleware.NewWrapResponseWriter(rw, r.ProtoMajor)
			next.ServeHTTP(wrw, r)
			logger.Debug("response completed",
				log.String("method", r.Method),
				log.String("uri", r.RequestURI),
				log.String("remote_addr", r.RemoteAddr),
				log.Int("status", wrw.Status()),
				log.Int("bytes_sent", wrw.BytesWritten()),
				log.DurationIn(time.Since(startTime), time.Millisecond),
			)
		})
	}
}
