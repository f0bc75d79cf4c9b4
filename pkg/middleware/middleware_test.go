package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/lpn-service/pkg/cloudevents"
	"github.com/wms-platform/lpn-service/pkg/errors"
	"github.com/wms-platform/lpn-service/pkg/logging"
	"github.com/wms-platform/lpn-service/pkg/tenant"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter() *gin.Engine {
	r := gin.New()
	Setup(r, DefaultConfig("lpn-service", logging.NewNop()))
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIErrorResponse {
	t.Helper()
	var body APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestTenantAuth(t *testing.T) {
	r := newRouter()
	r.GET("/whoami", TenantAuth(nil), func(c *gin.Context) {
		tc, err := tenant.FromContext(c.Request.Context())
		require.NoError(t, err)
		c.JSON(http.StatusOK, tc)
	})

	t.Run("missing tenant is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, errors.CodeUnauthorized, decodeError(t, w).Code)
	})

	t.Run("headers populate the tenant context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(cloudevents.HeaderTenantID, "T1")
		req.Header.Set(cloudevents.HeaderActorID, "u-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var tc tenant.Context
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tc))
		assert.Equal(t, "T1", tc.TenantID)
		assert.Equal(t, tenant.RoleOperator, tc.Role)
	})

	t.Run("unknown role is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(cloudevents.HeaderTenantID, "T1")
		req.Header.Set(cloudevents.HeaderRole, "admin")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestErrorHandlerRendersAppError(t *testing.T) {
	r := newRouter()
	r.POST("/fail", func(c *gin.Context) {
		_ = c.Error(errors.ErrLockTimeout("LPN:LPN0000000000000001"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/fail", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, errors.CodeLockTimeout, body.Code)
	assert.True(t, body.Retryable)
	assert.NotEmpty(t, body.RequestID)
	assert.NotEmpty(t, w.Header().Get(HeaderCorrelationID))
}

func TestNoRoute(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ROUTE_NOT_FOUND", decodeError(t, w).Code)
}

func TestRecoveryReturns500(t *testing.T) {
	r := newRouter()
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestBindAndValidate(t *testing.T) {
	type body struct {
		LpnID string `json:"lpnId" binding:"required,lpn_id"`
		Qty   int    `json:"quantity" binding:"min=1"`
	}
	r := newRouter()
	r.POST("/bind", func(c *gin.Context) {
		var b body
		if appErr := BindAndValidate(c, &b); appErr != nil {
			AbortWithAppError(c, appErr)
			return
		}
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/bind", strings.NewReader(`{"lpnId":"X1","quantity":0}`)))
	require.Equal(t, http.StatusBadRequest, w.Code)
	details := decodeError(t, w).Details
	assert.Contains(t, details, "lpnId")
	assert.Contains(t, details, "quantity")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/bind", strings.NewReader(`{"lpnId":"LPN0000000000000001","quantity":2}`)))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
