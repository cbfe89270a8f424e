package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"

	"lila-rooms/internal/domain"
)

// DiceRoller 产生 count 个 [1,6] 的独立均匀整数。测试里可以替换成固定序列。
type DiceRoller interface {
	Roll(count int) []int
}

// RollerFunc 让普通函数满足 DiceRoller
type RollerFunc func(count int) []int

func (f RollerFunc) Roll(count int) []int { return f(count) }

// RandRoller 基于 math/rand，加锁后可以被多个请求共享。
type RandRoller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandRoller(seed int64) *RandRoller {
	return &RandRoller{rng: rand.New(rand.NewSource(seed))}
}

// NewSeededRoller 用 crypto/rand 生成种子
func NewSeededRoller() (*RandRoller, error) {
	seed, err := NewSeed()
	if err != nil {
		return nil, err
	}
	return NewRandRoller(seed), nil
}

func (r *RandRoller) Roll(count int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	values := make([]int, count)
	for i := range values {
		values[i] = r.rng.Intn(6) + 1
	}
	return values
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// RollDice 按模式掷骰，返回每颗的点数和总和
func RollDice(roller DiceRoller, mode domain.DiceMode) ([]int, int) {
	values := roller.Roll(mode.DiceCount())
	total := 0
	for _, v := range values {
		total += v
	}
	return values, total
}
