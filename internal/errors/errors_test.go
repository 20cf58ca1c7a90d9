package errors_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qwerrs "github.com/jdholdren/quantumwatch/internal/errors"
)

func TestEConstructor(t *testing.T) {
	got := qwerrs.E(
		"something went wrong",
		qwerrs.Detail{Field: "url", Error: "was bad"},
		http.StatusBadRequest,
	)
	want := &qwerrs.Error{
		Err: errors.New("something went wrong"),
		Details: []qwerrs.Detail{
			{Field: "url", Error: "was bad"},
		},
		Status: http.StatusBadRequest,
	}

	assert.Equal(t, want, got)
}

func TestEUnwraps(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := qwerrs.E(sentinel, http.StatusNotFound)

	assert.ErrorIs(t, err, sentinel)
}

func TestMarshal(t *testing.T) {
	byts, err := json.Marshal(qwerrs.E("feed not found", http.StatusNotFound))
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"feed not found","details":null,"status":404}`, string(byts))

	// No message falls back to the status text
	byts, err = json.Marshal(qwerrs.E(http.StatusServiceUnavailable))
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"Service Unavailable","details":null,"status":503}`, string(byts))
}
