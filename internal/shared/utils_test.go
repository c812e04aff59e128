package shared

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+rawQuery, nil)
	return c
}

func TestParseIntQuery(t *testing.T) {
	c := queryContext(t, "page=3&size=bogus")

	assert.Equal(t, 3, ParseIntQuery(c, "page", 1))
	assert.Equal(t, 20, ParseIntQuery(c, "size", 20))
	assert.Equal(t, 1, ParseIntQuery(c, "missing", 1))
}

func TestParseBoolQuery(t *testing.T) {
	c := queryContext(t, "a=true&b=false&c=banana")

	a := ParseBoolQuery(c, "a")
	require.NotNil(t, a)
	assert.True(t, *a)

	b := ParseBoolQuery(c, "b")
	require.NotNil(t, b)
	assert.False(t, *b)

	assert.Nil(t, ParseBoolQuery(c, "c"))
	assert.Nil(t, ParseBoolQuery(c, "missing"))
}
