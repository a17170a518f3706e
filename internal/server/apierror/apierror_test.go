package apierror

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(http.StatusBadRequest, "limit must be a positive integer")

	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "limit must be a positive integer", err.Error())
	assert.NotEmpty(t, err.Timestamp)
}

func TestFromStatus(t *testing.T) {
	err := FromStatus(http.StatusInternalServerError)
	assert.Equal(t, "Internal Server Error", err.Message)
}

func TestWithRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/history/abc?limit=x", nil)

	clientErr := New(http.StatusBadRequest, "bad").WithRequest(r)
	require.NotNil(t, clientErr.Method)
	require.NotNil(t, clientErr.Path)
	assert.Equal(t, "GET", *clientErr.Method)
	assert.Equal(t, "/api/history/abc", *clientErr.Path)

	serverErr := FromStatus(http.StatusInternalServerError).WithRequest(r)
	assert.Nil(t, serverErr.Method)
	assert.Nil(t, serverErr.Path)
}

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	New(http.StatusNotFound, "route not found").WithRequest(httptest.NewRequest(http.MethodGet, "/nope", nil)).Write(rec)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(404), body["status"])
	assert.Equal(t, "route not found", body["message"])
	assert.Equal(t, "/nope", body["path"])
}
