package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/hms-report-api/pkg/errors"
)

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func TestJSONWrapsDataInEnvelope(t *testing.T) {
	c, w := newTestContext()
	JSON(c, http.StatusOK, map[string]string{"id": "rep-1"}, &Pagination{Page: 1, PageSize: 20, TotalItems: 1, TotalPages: 1})

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"rep-1"`)
	require.Contains(t, w.Body.String(), `"pagination"`)
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestErrorUsesTypedStatusAndCode(t *testing.T) {
	c, w := newTestContext()
	Error(c, appErrors.ErrTemplateNotFound)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "TEMPLATE_NOT_FOUND")
}

func TestNoContentWritesStatusImmediately(t *testing.T) {
	// A handler invoked directly, without the engine loop flushing for it,
	// must still surface the 204 to the recorder.
	c, w := newTestContext()
	NoContent(c)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, w.Body.String())
}
