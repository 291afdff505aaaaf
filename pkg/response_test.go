package pkg

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestStatusToError(t *testing.T) {
	assert.Equal(t, StatusToError(http.StatusOK), nil)
	assert.Equal(t, StatusToError(http.StatusNoContent), nil)
	assert.Equal(t, errors.Is(StatusToError(http.StatusNotFound), ErrNotFound), true)
	assert.Equal(t, errors.Is(StatusToError(http.StatusUnauthorized), ErrUnauthorized), true)
	assert.Equal(t, errors.Is(StatusToError(http.StatusConflict), ErrAlreadyExists), true)
	assert.Equal(t, errors.Is(StatusToError(http.StatusBadGateway), ErrNetwork), true)
	assert.Equal(t, errors.Is(StatusToError(http.StatusTeapot), ErrNetwork), true)
}

func TestErrorMapsWrappedSentinel(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, fmt.Errorf("%w: meme m1", ErrItemNotFound))

	assert.Equal(t, rec.Code, http.StatusNotFound)

	var resp APIResponse
	assert.Equal(t, json.NewDecoder(rec.Body).Decode(&resp), nil)
	assert.Equal(t, resp.Success, false)
	assert.Equal(t, resp.Error, "item not found in any collection: meme m1")
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, map[string]int{"count": 3})

	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, rec.Body.String(), "{\"success\":true,\"data\":{\"count\":3}}\n")
}
