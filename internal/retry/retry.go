package retry

import (
	"context"
	"time"
)

// Политика повторов для выпуска единицы: не более MaxAttempts попыток всего,
// между попытками пауза Delay

type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Delay:       500 * time.Millisecond,
	}
}

// Exhausted сообщает, исчерпан ли лимит попыток при retryCount уже выполненных повторах
func (p Policy) Exhausted(retryCount int) bool {
	return retryCount >= p.MaxAttempts
}

// Wait выдерживает паузу перед следующей попыткой
func (p Policy) Wait(ctx context.Context) {
	if p.Delay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(p.Delay):
	}
}
