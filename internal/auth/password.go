package auth

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash 用于在用户不存在时执行一次比较，避免通过响应时间推断账户是否存在。
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password"), bcrypt.DefaultCost)

// HashPassword 使用 bcrypt 生成口令哈希。
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword 校验口令。
func VerifyPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func dummyCompare(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// randomPasswordHash 为访客与钱包用户生成无法登录的随机口令。
func randomPasswordHash() (string, error) {
	return HashPassword(uuid.NewString())
}
