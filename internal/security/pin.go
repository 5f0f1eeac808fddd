// Package security 提供 PIN 校验。
//
// PIN 以明文保存并做相等比较，比较过程使用 subtle.ConstantTimeCompare，
// 耗时与匹配位置无关。
package security

import (
	"crypto/subtle"
	"errors"
	"regexp"
)

var (
	ErrInvalidPinFormat = errors.New("PIN 必须为4位数字")
	ErrPinMismatch      = errors.New("PIN 校验失败")
)

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// ValidFormat 是否为 4 位数字
func ValidFormat(pin string) bool {
	return pinPattern.MatchString(pin)
}

// Verify 先校验格式，再与已存 PIN 比较
func Verify(supplied, stored string) error {
	if !ValidFormat(supplied) {
		return ErrInvalidPinFormat
	}
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(stored)) != 1 {
		return ErrPinMismatch
	}
	return nil
}

// Matches 格式合法且相等时返回 true
func Matches(supplied, stored string) bool {
	return Verify(supplied, stored) == nil
}
