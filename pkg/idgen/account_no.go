package idgen

import (
	"fmt"
	"regexp"
)

// AccountNoLength 账号固定位数
const AccountNoLength = 12

const accountNoSpace = int64(1_000_000_000_000) // 10^12

var accountNoPattern = regexp.MustCompile(`^\d{12}$`)

// Int63n 随机源接口，*rand.Rand 满足该接口
type Int63n interface {
	Int63n(n int64) int64
}

// RandomAccountNumber 生成 12 位数字账号
//
// 首位若为 0 则强制改为 1，分布因此略有偏斜，但不影响唯一性判断
func RandomAccountNumber(rng Int63n) string {
	acc := []byte(fmt.Sprintf("%012d", rng.Int63n(accountNoSpace)))
	if acc[0] == '0' {
		acc[0] = '1'
	}
	return string(acc)
}

// ValidAccountNumber 校验账号格式
func ValidAccountNumber(accountNo string) bool {
	return accountNoPattern.MatchString(accountNo)
}
