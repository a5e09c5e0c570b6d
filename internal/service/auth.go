package service

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/models"
	"github.com/wfunc/feudal-economy/internal/utils"
	"go.uber.org/zap"
)

// AuthService 宿主认证服务接口
type AuthService interface {
	// IssueToken 校验宿主密钥后为身份签发令牌
	IssueToken(ctx context.Context, hostKey string, sub models.Subject, admin bool) (*TokenInfo, error)
	ValidateToken(ctx context.Context, token string) (*utils.IdentityClaims, error)
}

// TokenInfo 令牌信息
type TokenInfo struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int64          `json:"expires_in"`
	Subject     models.Subject `json:"subject"`
	Admin       bool           `json:"admin"`
}

// authService 认证服务实现
type authService struct {
	hostKeyHash string
	jwtManager  *utils.JWTManager
	log         *zap.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(hostKeyHash string, jwtManager *utils.JWTManager, log *zap.Logger) AuthService {
	return &authService{
		hostKeyHash: hostKeyHash,
		jwtManager:  jwtManager,
		log:         log,
	}
}

// IssueToken 签发令牌
func (s *authService) IssueToken(ctx context.Context, hostKey string, sub models.Subject, admin bool) (*TokenInfo, error) {
	if strings.TrimSpace(hostKey) == "" {
		return nil, apperrors.New(apperrors.ErrAuthentication, "缺少宿主密钥")
	}
	if s.hostKeyHash == "" {
		return nil, apperrors.New(apperrors.ErrAuthentication, "未配置宿主密钥")
	}

	ok, err := utils.VerifyHostKey(hostKey, s.hostKeyHash)
	if err != nil {
		s.log.Error("宿主密钥哈希格式错误", zap.Error(err))
		return nil, apperrors.Wrap(err, apperrors.ErrAuthentication)
	}
	if !ok {
		s.log.Warn("宿主密钥校验失败", zap.String("subject", sub.Key()))
		return nil, apperrors.New(apperrors.ErrAuthentication, "宿主密钥错误")
	}

	token, err := s.jwtManager.GenerateToken(sub.Key(), string(sub.Kind), admin)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown, "生成令牌失败")
	}

	s.log.Info("签发令牌", zap.String("subject", sub.Key()), zap.Bool("admin", admin))

	return &TokenInfo{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwtManager.Expiry() / time.Second),
		Subject:     sub,
		Admin:       admin,
	}, nil
}

// ValidateToken 验证令牌
func (s *authService) ValidateToken(ctx context.Context, token string) (*utils.IdentityClaims, error) {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		if errors.Is(err, utils.ErrExpiredToken) {
			return nil, apperrors.New(apperrors.ErrTokenExpired)
		}
		return nil, apperrors.New(apperrors.ErrTokenInvalid)
	}
	return claims, nil
}
