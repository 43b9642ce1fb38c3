package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, header string) (*httptest.ResponseRecorder, string, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	var fromGin, fromCtx string
	router := gin.New()
	router.Use(Middleware())
	router.GET("/", func(c *gin.Context) {
		fromGin = Value(c)
		fromCtx = FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(Header, header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w, fromGin, fromCtx
}

func TestMiddlewareKeepsCallerID(t *testing.T) {
	w, fromGin, fromCtx := serve(t, "trace-42")

	assert.Equal(t, "trace-42", w.Header().Get(Header))
	assert.Equal(t, "trace-42", fromGin)
	assert.Equal(t, "trace-42", fromCtx)
}

func TestMiddlewareReplacesUnusableID(t *testing.T) {
	for name, header := range map[string]string{
		"missing":  "",
		"spaces":   "two words",
		"too long": strings.Repeat("x", maxLength+1),
	} {
		t.Run(name, func(t *testing.T) {
			w, fromGin, fromCtx := serve(t, header)

			id := w.Header().Get(Header)
			_, err := uuid.Parse(id)
			require.NoError(t, err)
			assert.Equal(t, id, fromGin)
			assert.Equal(t, id, fromCtx)
		})
	}
}

func TestValueWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, Value(c))
}
