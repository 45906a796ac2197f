package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"webhook-tester/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestOK(t *testing.T) {
	c, w := testContext()
	OK(c, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RequestID)
	assert.NotEmpty(t, resp.Timestamp)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "world", data["hello"])
}

func TestCreated(t *testing.T) {
	c, w := testContext()
	Created(c, map[string]string{"id": "abc123def4"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestAccepted(t *testing.T) {
	c, w := testContext()
	Accepted(c, map[string]bool{"accepted": true})
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestError_AppError(t *testing.T) {
	c, w := testContext()
	Error(c, apperror.ErrEndpointNotFound())

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "EP_001", resp.ErrorCode)
}

func TestError_WrappedAppError(t *testing.T) {
	c, w := testContext()
	Error(c, apperror.ErrStorageUnavailable(errors.New("secret dsn detail")))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	// The wrapped internal error never leaks into the response body.
	assert.NotContains(t, w.Body.String(), "secret dsn detail")
}

func TestError_UnknownError(t *testing.T) {
	c, w := testContext()
	Error(c, errors.New("something unexpected"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SYS_000", resp.ErrorCode)
	assert.NotContains(t, w.Body.String(), "something unexpected")
}

func TestGetRequestID_FromContext(t *testing.T) {
	c, w := testContext()
	c.Set("request_id", "req-fixed")
	OK(c, nil)

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "req-fixed", resp.RequestID)
}
