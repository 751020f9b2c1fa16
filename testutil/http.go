/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"time"

	"github.com/stretchr/testify/require"
)

const contentTypeAppJSON = "application/json"

// httpResult is a status, headers and body of either a recorded or a received response.
type httpResult struct {
	code   int
	header http.Header
	body   io.Reader
}

func recorded(rec *httptest.ResponseRecorder) httpResult {
	return httpResult{code: rec.Code, header: rec.Header(), body: rec.Body}
}

func received(resp *http.Response) httpResult {
	return httpResult{code: resp.StatusCode, header: resp.Header, body: resp.Body}
}

// RequireErrorInRecorder asserts that the recorded response has the given status
// and the {"error": {"code": wantErrCode, "message": "..."}} JSON body.
func RequireErrorInRecorder(t require.TestingT, rec *httptest.ResponseRecorder, wantHTTPCode int, wantErrCode string) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	requireError(t, recorded(rec), wantHTTPCode, wantErrCode)
}

// RequireErrorInResponse is RequireErrorInRecorder for a response received from a server.
func RequireErrorInResponse(t require.TestingT, resp *http.Response, wantHTTPCode int, wantErrCode string) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	requireError(t, received(resp), wantHTTPCode, wantErrCode)
}

// RequireJSONInRecorder asserts that the recorded response has the JSON body equal to want.
// The body is decoded into dest, so dest must be a pointer of the same type as want.
func RequireJSONInRecorder(t require.TestingT, rec *httptest.ResponseRecorder, want, dest interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	requireJSON(t, recorded(rec), want, dest)
}

// RequireJSONInResponse is RequireJSONInRecorder for a response received from a server.
func RequireJSONInResponse(t require.TestingT, resp *http.Response, want, dest interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	requireJSON(t, received(resp), want, dest)
}

// RequireEmptyBodyInRecorder asserts that the recorded response has no body.
func RequireEmptyBodyInRecorder(t require.TestingT, rec *httptest.ResponseRecorder) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.Zero(t, rec.Body.Len(), "body: %s", rec.Body.String())
}

// RequireRetryAfterInRecorder asserts that the recorded response has the Retry-After header
// with the number of seconds within [wantMin, wantMax].
func RequireRetryAfterInRecorder(t require.TestingT, rec *httptest.ResponseRecorder, wantMin, wantMax time.Duration) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	seconds, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err, "Retry-After must be a number of seconds")
	got := time.Duration(seconds) * time.Second
	require.GreaterOrEqual(t, got, wantMin)
	require.LessOrEqual(t, got, wantMax)
}

func requireError(t require.TestingT, res httpResult, wantHTTPCode int, wantErrCode string) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	var errResp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.Equal(t, wantHTTPCode, res.code)
	require.Equal(t, contentTypeAppJSON, res.header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(res.body).Decode(&errResp))
	require.Equal(t, wantErrCode, errResp.Error.Code)
}

func requireJSON(t require.TestingT, res httpResult, want, dest interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.Equal(t, contentTypeAppJSON, res.header.Get("Content-Type"))
	data, err := io.ReadAll(res.body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, dest), "body: %s", data)
	require.Equal(t, want, dest)
}
