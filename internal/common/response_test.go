package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var payload struct {
		Error ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	return payload.Error
}

func TestWriteErrorUsesAppErrorStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, fmt.Errorf("wrap: %w", Unauthenticated("missing token", nil)))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, CodeUnauthenticated, decodeError(t, rr).Code)
}

func TestWriteErrorHidesUnknownErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, errors.New("pq: password authentication failed for user service_role"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeError(t, rr)
	require.Equal(t, CodeInternal, body.Code)
	require.NotContains(t, rr.Body.String(), "service_role")
}

func TestUpstreamClassifiesDeadline(t *testing.T) {
	err := Upstream("stripe", fmt.Errorf("call: %w", context.DeadlineExceeded))
	require.Equal(t, CodeTimeout, err.Code)
	require.Equal(t, http.StatusGatewayTimeout, err.HTTPStatus)

	err = Upstream("stripe", errors.New("connection refused"))
	require.Equal(t, CodeUpstreamUnavailable, err.Code)
	require.Equal(t, http.StatusBadGateway, err.HTTPStatus)
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", CartEmpty())
	require.True(t, HasCode(err, CodeCartEmpty))
	require.False(t, HasCode(err, CodeCartNotFound))
	require.False(t, HasCode(errors.New("plain"), CodeCartEmpty))
}
