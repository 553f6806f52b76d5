package throttle

import (
	"context"
	"time"
)

// Дросселирование обращений к эмитенту: пауза после каждых N успешных вызовов.
// Стратегия подменяемая, чтобы тесты шли без реальных задержек

type Throttle interface {
	Tick(ctx context.Context)
}

type counting struct {
	every int
	pause time.Duration
	calls int
}

func NewCounting(every int, pause time.Duration) Throttle {
	return &counting{every: every, pause: pause}
}

func (t *counting) Tick(ctx context.Context) {
	if t.every <= 0 {
		return
	}
	t.calls++
	if t.calls%t.every != 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(t.pause):
	}
}

type noop struct{}

func NewNoop() Throttle {
	return noop{}
}

func (noop) Tick(ctx context.Context) {}
