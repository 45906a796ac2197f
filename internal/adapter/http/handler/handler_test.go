package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"webhook-tester/internal/core/domain"
	"webhook-tester/internal/core/ports"
	"webhook-tester/internal/core/ports/mocks"
	"webhook-tester/internal/stream"
	"webhook-tester/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func activeEndpoint(id string) *domain.Endpoint {
	now := time.Now().UTC()
	return &domain.Endpoint{ID: id, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
}

func decodeData(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %s", body)
	return data
}

// --- Endpoint Handler Tests ---

func TestEndpointCreate_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockEndpointService(ctrl)
	h := NewEndpointHandler(mockSvc, "https://hooks.example.com")

	mockSvc.EXPECT().Create(gomock.Any()).Return(activeEndpoint("abc123def4"), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/endpoints", nil)

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w.Body.Bytes())
	assert.Equal(t, "abc123def4", data["endpointId"])
	assert.Equal(t, "https://hooks.example.com/hook/abc123def4", data["hookUrl"])
	assert.NotEmpty(t, data["createdAt"])
	assert.NotEmpty(t, data["expiresAt"])
}

func TestEndpointCreate_Exhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockEndpointService(ctrl)
	h := NewEndpointHandler(mockSvc, "https://hooks.example.com")

	mockSvc.EXPECT().Create(gomock.Any()).Return(nil, apperror.ErrEndpointIDExhausted())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/endpoints", nil)

	h.Create(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "EP_002")
}

func TestEndpointGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockEndpointService(ctrl)
	h := NewEndpointHandler(mockSvc, "https://hooks.example.com")

	mockSvc.EXPECT().EnsureActive(gomock.Any(), "ghost00000").Return(nil, apperror.ErrEndpointNotFound())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/endpoints/ghost00000", nil)
	c.Params = gin.Params{{Key: "endpointID", Value: "ghost00000"}}

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "EP_001")
}

// --- Hook Handler Tests ---

func newHookRouter(captureSvc ports.CaptureService, hub *stream.Hub) *gin.Engine {
	r := gin.New()
	h := NewHookHandler(captureSvc, hub, testLogger())
	r.Any("/hook/:endpointID", h.Capture)
	return r
}

func TestHookCapture_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCapture := mocks.NewMockCaptureService(ctrl)
	hub := stream.NewHub(8)
	r := newHookRouter(mockCapture, hub)

	reqID := uuid.New()
	mockCapture.EXPECT().Capture(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, in ports.CaptureInput) (*domain.WebhookRequest, error) {
			assert.Equal(t, "abc123def4", in.EndpointID)
			assert.Equal(t, "POST", in.Method)
			assert.Equal(t, "/hook/abc123def4", in.Path)
			require.NotNil(t, in.QueryString)
			assert.Equal(t, "source=ci", *in.QueryString)
			assert.Equal(t, `{"event":"pay"}`, in.RawBody)
			assert.Equal(t, 15, in.BodySizeBytes)
			// header keys are lowercased
			assert.Equal(t, "application/json", in.Headers["content-type"])
			assert.Equal(t, "abc", in.Headers["x-custom"])
			return &domain.WebhookRequest{
				ID:         reqID,
				EndpointID: in.EndpointID,
				Method:     in.Method,
				Path:       in.Path,
				ReceivedAt: time.Now().UTC(),
				StatusCode: domain.AcceptedStatus,
				Headers:    in.Headers,
			}, nil
		},
	)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/hook/abc123def4?source=ci", strings.NewReader(`{"event":"pay"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Custom", "abc")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	data := decodeData(t, w.Body.Bytes())
	assert.Equal(t, true, data["accepted"])
	assert.Equal(t, reqID.String(), data["requestId"])
}

func TestHookCapture_PublishesToSubscribers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCapture := mocks.NewMockCaptureService(ctrl)
	hub := stream.NewHub(8)
	r := newHookRouter(mockCapture, hub)

	sub := hub.Subscribe("abc123def4")
	defer hub.Unsubscribe("abc123def4", sub.ID)

	reqID := uuid.New()
	mockCapture.EXPECT().Capture(gomock.Any(), gomock.Any()).Return(&domain.WebhookRequest{
		ID:         reqID,
		EndpointID: "abc123def4",
		Method:     "POST",
		Path:       "/hook/abc123def4",
		ReceivedAt: time.Now().UTC(),
		StatusCode: domain.AcceptedStatus,
	}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/hook/abc123def4", nil))
	require.Equal(t, http.StatusAccepted, w.Code)

	select {
	case msg := <-sub.C:
		assert.Equal(t, EventRequestCreated, msg.Event)
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(msg.Data, &payload))
		assert.Equal(t, reqID.String(), payload["id"])
	default:
		t.Fatal("no stream event published")
	}
}

func TestHookCapture_AllMethodsRouted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCapture := mocks.NewMockCaptureService(ctrl)
	hub := stream.NewHub(8)
	r := newHookRouter(mockCapture, hub)

	methods := []string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodHead, http.MethodOptions,
	}

	for _, method := range methods {
		mockCapture.EXPECT().Capture(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, in ports.CaptureInput) (*domain.WebhookRequest, error) {
				return &domain.WebhookRequest{
					ID:         uuid.New(),
					EndpointID: in.EndpointID,
					Method:     in.Method,
					ReceivedAt: time.Now().UTC(),
					StatusCode: domain.AcceptedStatus,
				}, nil
			},
		)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, "/hook/abc123def4", nil))
		assert.Equal(t, http.StatusAccepted, w.Code, "method %s", method)
	}
}

func TestHookCapture_InvalidEndpointIDShape(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCapture := mocks.NewMockCaptureService(ctrl)
	hub := stream.NewHub(8)
	r := newHookRouter(mockCapture, hub)

	// uppercase and too-short IDs never reach the capture service
	for _, id := range []string{"ABC123DEF4", "short"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/hook/"+id, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, "id %s", id)
	}
}

func TestHookCapture_EndpointGone(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCapture := mocks.NewMockCaptureService(ctrl)
	hub := stream.NewHub(8)
	r := newHookRouter(mockCapture, hub)

	mockCapture.EXPECT().Capture(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrEndpointNotFound())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/hook/expired000", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHookCapture_OversizedBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCapture := mocks.NewMockCaptureService(ctrl)
	hub := stream.NewHub(8)

	r := gin.New()
	h := NewHookHandler(mockCapture, hub, testLogger())
	r.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 16)
	})
	r.Any("/hook/:endpointID", h.Capture)

	w := httptest.NewRecorder()
	body := strings.Repeat("x", 64)
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/hook/abc123def4", strings.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "REQ_003")
}

func TestHookCapture_ForwardedForPreferred(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCapture := mocks.NewMockCaptureService(ctrl)
	hub := stream.NewHub(8)
	r := newHookRouter(mockCapture, hub)

	mockCapture.EXPECT().Capture(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, in ports.CaptureInput) (*domain.WebhookRequest, error) {
			assert.Equal(t, "203.0.113.9", in.IP)
			return &domain.WebhookRequest{
				ID: uuid.New(), EndpointID: in.EndpointID,
				ReceivedAt: time.Now().UTC(), StatusCode: domain.AcceptedStatus,
			}, nil
		},
	)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/hook/abc123def4", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

// --- Request Handler Tests ---

func newRequestRouter(endpointSvc ports.EndpointService, requestSvc ports.RequestService) *gin.Engine {
	r := gin.New()
	h := NewRequestHandler(endpointSvc, requestSvc)
	r.GET("/api/v1/endpoints/:endpointID/requests", h.List)
	r.GET("/api/v1/endpoints/:endpointID/requests/:requestID", h.Get)
	return r
}

func TestRequestList_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEndpoints := mocks.NewMockEndpointService(ctrl)
	mockRequests := mocks.NewMockRequestService(ctrl)
	r := newRequestRouter(mockEndpoints, mockRequests)

	mockEndpoints.EXPECT().EnsureActive(gomock.Any(), "abc123def4").Return(activeEndpoint("abc123def4"), nil)
	mockRequests.EXPECT().List(gomock.Any(), "abc123def4", 2, "").Return(&ports.RequestPage{
		Items: []domain.WebhookRequest{
			{ID: uuid.New(), EndpointID: "abc123def4", Method: "POST", ReceivedAt: time.Now().UTC(), StatusCode: domain.AcceptedStatus},
			{ID: uuid.New(), EndpointID: "abc123def4", Method: "GET", ReceivedAt: time.Now().UTC(), StatusCode: domain.AcceptedStatus},
		},
		NextCursor: "opaque-token",
	}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/endpoints/abc123def4/requests?limit=2", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w.Body.Bytes())
	items := data["items"].([]interface{})
	assert.Len(t, items, 2)
	assert.Equal(t, "opaque-token", data["nextCursor"])
}

func TestRequestList_DefaultLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEndpoints := mocks.NewMockEndpointService(ctrl)
	mockRequests := mocks.NewMockRequestService(ctrl)
	r := newRequestRouter(mockEndpoints, mockRequests)

	mockEndpoints.EXPECT().EnsureActive(gomock.Any(), "abc123def4").Return(activeEndpoint("abc123def4"), nil)
	mockRequests.EXPECT().List(gomock.Any(), "abc123def4", defaultPageLimit, "").
		Return(&ports.RequestPage{Items: []domain.WebhookRequest{}}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/endpoints/abc123def4/requests", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestList_InvalidLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEndpoints := mocks.NewMockEndpointService(ctrl)
	mockRequests := mocks.NewMockRequestService(ctrl)
	r := newRequestRouter(mockEndpoints, mockRequests)

	for _, limit := range []string{"0", "101", "-5", "abc"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/endpoints/abc123def4/requests?limit="+limit, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit %s", limit)
		assert.Contains(t, w.Body.String(), "REQ_004")
	}
}

func TestRequestList_ExpiredEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEndpoints := mocks.NewMockEndpointService(ctrl)
	mockRequests := mocks.NewMockRequestService(ctrl)
	r := newRequestRouter(mockEndpoints, mockRequests)

	mockEndpoints.EXPECT().EnsureActive(gomock.Any(), "expired000").Return(nil, apperror.ErrEndpointNotFound())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/endpoints/expired000/requests", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestList_InvalidCursorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEndpoints := mocks.NewMockEndpointService(ctrl)
	mockRequests := mocks.NewMockRequestService(ctrl)
	r := newRequestRouter(mockEndpoints, mockRequests)

	mockEndpoints.EXPECT().EnsureActive(gomock.Any(), "abc123def4").Return(activeEndpoint("abc123def4"), nil)
	mockRequests.EXPECT().List(gomock.Any(), "abc123def4", defaultPageLimit, "bogus").
		Return(nil, apperror.ErrInvalidCursor())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/endpoints/abc123def4/requests?cursor=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "REQ_002")
}

func TestRequestGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEndpoints := mocks.NewMockEndpointService(ctrl)
	mockRequests := mocks.NewMockRequestService(ctrl)
	r := newRequestRouter(mockEndpoints, mockRequests)

	reqID := uuid.New()
	query := "a=1"
	mockEndpoints.EXPECT().EnsureActive(gomock.Any(), "abc123def4").Return(activeEndpoint("abc123def4"), nil)
	mockRequests.EXPECT().Get(gomock.Any(), "abc123def4", reqID).Return(&domain.WebhookRequest{
		ID:            reqID,
		EndpointID:    "abc123def4",
		Method:        "POST",
		Path:          "/hook/abc123def4",
		QueryString:   &query,
		ReceivedAt:    time.Now().UTC(),
		StatusCode:    domain.AcceptedStatus,
		IP:            "203.0.113.9",
		Headers:       map[string]string{"content-type": "application/json"},
		ContentType:   "application/json",
		BodySizeBytes: 15,
		RawBody:       `{"event":"pay"}`,
		ParsedJSON:    json.RawMessage(`{"event":"pay"}`),
	}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/endpoints/abc123def4/requests/"+reqID.String(), nil))

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w.Body.Bytes())
	assert.Equal(t, reqID.String(), data["id"])
	assert.Equal(t, "a=1", data["queryString"])
	assert.Equal(t, float64(202), data["statusCode"])
	parsed := data["parsedJson"].(map[string]interface{})
	assert.Equal(t, "pay", parsed["event"])
}

func TestRequestGet_MalformedUUID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEndpoints := mocks.NewMockEndpointService(ctrl)
	mockRequests := mocks.NewMockRequestService(ctrl)
	r := newRequestRouter(mockEndpoints, mockRequests)

	mockEndpoints.EXPECT().EnsureActive(gomock.Any(), "abc123def4").Return(activeEndpoint("abc123def4"), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/endpoints/abc123def4/requests/not-a-uuid", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "REQ_001")
}

// --- Stream Handler Tests ---

func TestStream_ReadyEventAndDelivery(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEndpoints := mocks.NewMockEndpointService(ctrl)
	hub := stream.NewHub(8)
	h := NewStreamHandler(mockEndpoints, hub, time.Minute, testLogger())

	mockEndpoints.EXPECT().EnsureActive(gomock.Any(), "abc123def4").Return(activeEndpoint("abc123def4"), nil)

	r := gin.New()
	r.GET("/api/v1/endpoints/:endpointID/stream", h.Stream)

	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/endpoints/abc123def4/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	// wait for the subscription to register before publishing
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount("abc123def4") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream session never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish("abc123def4", EventRequestCreated, json.RawMessage(`{"id":"r1"}`))

	buf := make([]byte, 4096)
	var got strings.Builder
	for !strings.Contains(got.String(), EventRequestCreated) {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			got.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}

	out := got.String()
	assert.Contains(t, out, "event: "+EventStreamReady)
	assert.Contains(t, out, "event: "+EventRequestCreated)
	assert.Contains(t, out, `{"id":"r1"}`)

	cancel()
}

func TestStream_ExpiredEndpointRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEndpoints := mocks.NewMockEndpointService(ctrl)
	hub := stream.NewHub(8)
	h := NewStreamHandler(mockEndpoints, hub, time.Minute, testLogger())

	mockEndpoints.EXPECT().EnsureActive(gomock.Any(), "expired000").Return(nil, apperror.ErrEndpointNotFound())

	r := gin.New()
	r.GET("/api/v1/endpoints/:endpointID/stream", h.Stream)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/endpoints/expired000/stream", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, hub.SubscriberCount("expired000"))
}

// --- Health ---

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(context.Context) error { return s.err }
func (s stubChecker) Name() string               { return s.name }

func TestHealthCheck_AllHealthy(t *testing.T) {
	r := gin.New()
	r.GET("/health", HealthCheck(stubChecker{name: "postgresql"}, stubChecker{name: "redis"}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestHealthCheck_Degraded(t *testing.T) {
	r := gin.New()
	r.GET("/health", HealthCheck(
		stubChecker{name: "postgresql"},
		stubChecker{name: "redis", err: errors.New("connection refused")},
	))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
	assert.Contains(t, w.Body.String(), "connection refused")
}
