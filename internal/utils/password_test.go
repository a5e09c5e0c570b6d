package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// HostKeyTestSuite 宿主密钥测试套件
type HostKeyTestSuite struct {
	suite.Suite
}

// 测试哈希格式与唯一性
func (suite *HostKeyTestSuite) TestHashHostKey() {
	h1, err := HashHostKey("shared-key")
	suite.NoError(err)
	suite.True(strings.HasPrefix(h1, "$argon2id$"))

	h2, err := HashHostKey("shared-key")
	suite.NoError(err)
	suite.NotEqual(h1, h2) // 盐不同
}

// 测试校验
func (suite *HostKeyTestSuite) TestVerifyHostKey() {
	hash, _ := HashHostKey("shared-key")

	ok, err := VerifyHostKey("shared-key", hash)
	suite.NoError(err)
	suite.True(ok)

	ok, err = VerifyHostKey("Shared-Key", hash)
	suite.NoError(err)
	suite.False(ok)
}

// 测试无效哈希
func (suite *HostKeyTestSuite) TestInvalidHash() {
	invalid := []string{
		"",
		"plain",
		"$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=1$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA",
	}
	for _, h := range invalid {
		_, err := VerifyHostKey("k", h)
		suite.Error(err, h)
	}
}

// 测试手动时钟
func (suite *HostKeyTestSuite) TestManualClock() {
	c := NewManualClock(1000)
	suite.Equal(int64(1000), c.NowMs())
	suite.Equal(int64(3000), c.Advance(2*time.Second))
	c.Set(5)
	suite.Equal(int64(5), c.NowMs())
	suite.Greater(SystemClock{}.NowMs(), int64(0))
}

func TestHostKeySuite(t *testing.T) {
	suite.Run(t, new(HostKeyTestSuite))
}
