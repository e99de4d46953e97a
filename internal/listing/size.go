package listing

import (
	"math"
	"strconv"
)

const sizeUnits = "KMG"

// FormatSize 以一位小数加单位（K/M/G）输出字节数，小于 1024 时输出整数。
// 舍入后达到 1024 时进位到下一个单位。
func FormatSize(n int64) string {
	if n < 1024 {
		return strconv.FormatInt(n, 10)
	}
	value := float64(n) / 1024
	unit := 0
	for {
		rounded := math.Round(value*10) / 10
		if rounded < 1024 || unit == len(sizeUnits)-1 {
			value = rounded
			break
		}
		value /= 1024
		unit++
	}
	return strconv.FormatFloat(value, 'f', 1, 64) + string(sizeUnits[unit])
}
