package password

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MinLength 密码最短长度
const MinLength = 8

// ErrTooShort 密码过短
var ErrTooShort = errors.New("password must be at least 8 characters")

// ErrTooLong bcrypt 只使用前72字节
var ErrTooLong = errors.New("password must be at most 72 bytes")

// Hash 校验长度后生成密码哈希
func Hash(plain string) (string, error) {
	if utf8.RuneCountInString(plain) < MinLength {
		return "", ErrTooShort
	}
	if len(plain) > 72 {
		return "", ErrTooLong
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify 校验密码
func Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
