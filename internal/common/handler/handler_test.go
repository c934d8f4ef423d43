package handler

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/response"
	"github.com/dumeirei/hotel-pms-backend/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func createTestContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandleError(t *testing.T) {
	t.Run("nil 不处理", func(t *testing.T) {
		c, w := createTestContext("/")
		assert.False(t, HandleError(c, nil))
		assert.Equal(t, 0, w.Body.Len())
	})

	t.Run("业务错误", func(t *testing.T) {
		c, w := createTestContext("/")
		assert.True(t, HandleError(c, errors.ErrNoAvailability))
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, errors.ErrNoAvailability.Code, parseResponse(t, w).Code)
		assert.Len(t, c.Errors, 1)
	})

	t.Run("普通错误隐藏细节", func(t *testing.T) {
		c, w := createTestContext("/")
		assert.True(t, HandleError(c, stderrors.New("pq: connection refused")))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}

func TestMustSucceed(t *testing.T) {
	c, w := createTestContext("/")
	MustSucceed(c, nil, gin.H{"status": "CONFIRMED"})

	resp := parseResponse(t, w)
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "CONFIRMED", resp.Data.(map[string]interface{})["status"])
}

func TestRequireStaffID(t *testing.T) {
	t.Run("未登录", func(t *testing.T) {
		c, w := createTestContext("/")
		_, ok := RequireStaffID(c)
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("已登录", func(t *testing.T) {
		c, _ := createTestContext("/")
		c.Set(middleware.ContextKeyUserID, int64(5))
		id, ok := RequireStaffID(c)
		assert.True(t, ok)
		assert.Equal(t, int64(5), id)
	})
}

func TestParseID(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"12", true},
		{"abc", false},
		{"0", false},
		{"-3", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			c, w := createTestContext("/")
			c.Params = gin.Params{{Key: "id", Value: tt.value}}

			_, ok := ParseID(c, "预订")
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Equal(t, "无效的预订ID", parseResponse(t, w).Message)
			}
		})
	}
}

func TestParseQueryID(t *testing.T) {
	c, _ := createTestContext("/?guest_id=9")
	id, ok := ParseQueryID(c, "guest_id", "宾客")
	require.True(t, ok)
	assert.Equal(t, int64(9), *id)

	c, _ = createTestContext("/")
	id, ok = ParseQueryID(c, "guest_id", "宾客")
	assert.True(t, ok)
	assert.Nil(t, id)

	c, w := createTestContext("/?guest_id=x")
	_, ok = ParseQueryID(c, "guest_id", "宾客")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseRequiredQueryDateRange(t *testing.T) {
	t.Run("正常", func(t *testing.T) {
		c, _ := createTestContext("/?start_date=2026-10-01&end_date=2026-10-31")
		start, end, ok := ParseRequiredQueryDateRange(c)
		require.True(t, ok)
		assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2026, 10, 31, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("缺少参数", func(t *testing.T) {
		c, w := createTestContext("/?start_date=2026-10-01")
		_, _, ok := ParseRequiredQueryDateRange(c)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("结束早于开始", func(t *testing.T) {
		c, w := createTestContext("/?start_date=2026-10-31&end_date=2026-10-01")
		_, _, ok := ParseRequiredQueryDateRange(c)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBindPagination(t *testing.T) {
	c, _ := createTestContext("/?page=3&page_size=500")
	p := BindPagination(c)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 100, p.PageSize)

	c, _ = createTestContext("/")
	p = BindPagination(c)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.PageSize)
}
