package ordercode

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	DefaultPrefix = "BiC"

	// 乱数部分は5桁（10000〜99999）
	randMin   = 10000
	randSpan  = 90000
	dateStyle = "20060102"

	DefaultMaxAttempts = 50
)

var ErrExhausted = errors.New("could not generate a unique order code")

// 既に使われているかを確認する（DBなど）
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Generator builds human-readable order codes of the form
// <prefix>-<YYYYMMDD>-<customer id>-<5 digits>.
type Generator struct {
	prefix      string
	now         func() time.Time
	intn        func(n int) int
	maxAttempts int
}

type Option func(*Generator)

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// テスト用に乱数源を差し替える
func WithIntn(intn func(n int) int) Option {
	return func(g *Generator) { g.intn = intn }
}

func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

func NewGenerator(prefix string, opts ...Option) *Generator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	g := &Generator{
		prefix:      prefix,
		now:         time.Now,
		intn:        rand.IntN,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// 候補を1つ作る（一意性は保証しない）
func (g *Generator) Next(customerID int64) string {
	return fmt.Sprintf("%s-%s-%d-%d", g.prefix, g.now().Format(dateStyle), customerID, randMin+g.intn(randSpan))
}

// Assign draws candidates until exists reports one as free.
func (g *Generator) Assign(ctx context.Context, customerID int64, exists ExistsFunc) (string, error) {
	for i := 0; i < g.maxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code := g.Next(customerID)
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrExhausted
}
