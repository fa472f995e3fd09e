// Package levels converts between cumulative XP and member levels.
//
// Levels below len(table) come from a fixed table. Past it, every block of
// ten levels shares one increment taken from a digit cycling sequence:
// 4, 5, ... 9, 10, 20, ... 90, 100, 200, ... times baseUnit.
package levels

import (
	"math"
	"sort"
	"sync"
)

const (
	blockSize = 10
	baseUnit  = 5000
)

var table = [...]int64{
	0, 50, 100, 300, 500, 1000, 1400, 2000, 2500, 3000,
	4000, 5000, 6000, 7000, 8000, 9000, 10000, 11000, 12000, 13000,
	14000, 16000, 18000, 20000, 22000, 24000, 26000, 28000, 30000, 32000,
	34000, 37500, 41000, 44500, 48000, 51500, 55000, 58500, 62000, 65500,
	69000, 74500, 80000, 85500, 91000, 96500, 102000, 107500, 113000, 118500,
	124000, 133000, 142000, 151000, 160000, 169000, 178000, 187000, 196000, 205000,
	214000, 227000, 240000, 253000, 266000, 279000, 292000, 305000, 318000, 331000,
	344000, 358000, 372000, 386000, 400000, 414000, 428000, 442000, 456000, 470000,
	485000, 500000, 515000, 530000, 545000, 560000, 575000, 590000, 605000,
}

// thresholds extends table until the next level would overflow int64. The
// final entry is math.MaxInt64.
var thresholds = sync.OnceValue(func() []int64 {
	out := append([]int64(nil), table[:]...)
	for level := len(table); ; level++ {
		next, ok := addChecked(out[level-1], increment(level))
		if !ok {
			return append(out, math.MaxInt64)
		}
		out = append(out, next)
	}
})

// XPForLevel returns the cumulative XP needed to reach level. Levels the
// curve cannot represent in int64 return math.MaxInt64.
func XPForLevel(level int) int64 {
	if level <= 0 {
		return 0
	}
	th := thresholds()
	if level >= len(th) {
		return math.MaxInt64
	}
	return th[level]
}

// LevelForXP returns the highest level whose threshold is at most xp.
func LevelForXP(xp int64) int {
	if xp <= 0 {
		return 0
	}
	th := thresholds()
	return sort.Search(len(th), func(i int) bool { return th[i] > xp }) - 1
}

// MaxLevel is the highest level with a representable threshold.
func MaxLevel() int {
	return len(thresholds()) - 1
}

func increment(level int) int64 {
	if level >= 1 && level < len(table) {
		return table[level] - table[level-1]
	}
	if rem := level % blockSize; rem != 0 {
		return increment(level - rem)
	}
	block := (level-len(table)+blockSize-1)/blockSize + 2
	value := int64(block%9+1) * baseUnit
	for i := 0; i < block/9; i++ {
		var ok bool
		if value, ok = mulChecked(value, 10); !ok {
			return math.MaxInt64
		}
	}
	return value
}

func addChecked(a, b int64) (int64, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64, false
	}
	return a + b, true
}

func mulChecked(a, b int64) (int64, bool) {
	if a != 0 && b > math.MaxInt64/a {
		return math.MaxInt64, false
	}
	return a * b, true
}
