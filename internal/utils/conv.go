package utils

import (
	"strconv"
)

// StringToInt converts string to int, returns 0 if error
func StringToInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

// PositiveIntOr 解析正整数，空串、非法值或 <= 0 时返回 def
func PositiveIntOr(s string, def int) int {
	if i := StringToInt(s); i > 0 {
		return i
	}
	return def
}

// ParseID 解析路径中的数字 ID
func ParseID(s string) (uint, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
