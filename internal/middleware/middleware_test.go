package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/feudal-economy/internal/models"
	"github.com/wfunc/feudal-economy/internal/service"
	"github.com/wfunc/feudal-economy/internal/utils"
	"go.uber.org/zap"
)

const playerID = "5f4a3c2e-1b6d-4e8f-9a0b-1c2d3e4f5a6b"

// MiddlewareTestSuite 中间件测试套件
type MiddlewareTestSuite struct {
	suite.Suite
	engine *gin.Engine
	user   string
	admin  string
}

func (s *MiddlewareTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)

	hash, err := utils.HashHostKey("host-secret")
	s.Require().NoError(err)
	auth := service.NewAuthService(hash, utils.NewJWTManager("test-secret", time.Hour), zap.NewNop())

	user, err := auth.IssueToken(context.Background(), "host-secret", models.PlayerSubject(playerID), false)
	s.Require().NoError(err)
	admin, err := auth.IssueToken(context.Background(), "host-secret", models.NPCSubject(3), true)
	s.Require().NoError(err)
	s.user, s.admin = user.AccessToken, admin.AccessToken

	m := NewAuthMiddleware(auth)
	s.engine = gin.New()
	s.engine.Use(RequestLogger("/skip"))
	whoami := func(c *gin.Context) {
		sub, ok := GetSubject(c)
		c.JSON(http.StatusOK, gin.H{"subject": sub.Key(), "ok": ok, "admin": IsAdmin(c)})
	}
	s.engine.GET("/auth", m.RequireAuth(), whoami)
	s.engine.GET("/admin", m.RequireAdmin(), whoami)
	s.engine.GET("/optional", m.OptionalAuth(), whoami)
	s.engine.GET("/skip", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func (s *MiddlewareTestSuite) do(path string, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func (s *MiddlewareTestSuite) TestRequireAuth() {
	w, body := s.do("/auth", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.EqualValues(7000, body["code"])

	w, _ = s.do("/auth", map[string]string{"Authorization": "Bearer broken"})
	s.Equal(http.StatusUnauthorized, w.Code)

	w, body = s.do("/auth", map[string]string{"Authorization": "Bearer " + s.user})
	s.Equal(http.StatusOK, w.Code)
	s.Equal(playerID, body["subject"])
	s.Equal(false, body["admin"])

	// 其余两种令牌来源
	w, _ = s.do("/auth", map[string]string{"X-Access-Token": s.user})
	s.Equal(http.StatusOK, w.Code)
	w, _ = s.do("/auth?token="+s.user, nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *MiddlewareTestSuite) TestRequireAdmin() {
	w, body := s.do("/admin", map[string]string{"Authorization": "Bearer " + s.user})
	s.Equal(http.StatusForbidden, w.Code)
	s.EqualValues(1004, body["code"])
	s.Equal("restriction", body["category"])

	w, body = s.do("/admin", map[string]string{"Authorization": "Bearer " + s.admin})
	s.Equal(http.StatusOK, w.Code)
	s.Equal("npc:3", body["subject"])
	s.Equal(true, body["admin"])
}

func (s *MiddlewareTestSuite) TestOptionalAuth() {
	w, body := s.do("/optional", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(false, body["ok"])

	w, body = s.do("/optional", map[string]string{"Authorization": "Bearer broken"})
	s.Equal(http.StatusOK, w.Code)
	s.Equal(false, body["ok"])

	_, body = s.do("/optional", map[string]string{"Authorization": "Bearer " + s.user})
	s.Equal(true, body["ok"])
}

func (s *MiddlewareTestSuite) TestRequestLoggerPassesThrough() {
	w, _ := s.do("/skip", nil)
	s.Equal(http.StatusNoContent, w.Code)
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareTestSuite))
}
