package aireview

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/openkb/review-core/internal/models"
	"github.com/stretchr/testify/assert"
)

func getContext(t *testing.T, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func TestContentTypeFromRequiresParam(t *testing.T) {
	c, w := getContext(t, "/review/k1/ai_report")
	_, ok := contentTypeFrom(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContentTypeFromValidParam(t *testing.T) {
	c, _ := getContext(t, "/review/p1/ai_report?content_type=persona")
	ct, ok := contentTypeFrom(c)
	assert.True(t, ok)
	assert.Equal(t, models.ContentTypePersona, ct)
}
