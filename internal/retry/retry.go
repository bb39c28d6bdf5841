// Package retry isola a política de novas tentativas com backoff exponencial.
package retry

import (
	"context"
	"time"
)

// Attempt executa a tentativa n (0 = primeira)
type Attempt[T any] func(ctx context.Context, n int) (T, error)

// Sleeper agenda o próximo passo; deve respeitar o cancelamento do ctx
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy descreve quantas novas tentativas fazer e quando
type Policy struct {
	Retries   int           // novas tentativas além da primeira
	BaseDelay time.Duration // atraso entre a tentativa i e i+1 = BaseDelay * 2^i
	Retryable func(error) bool
	Sleep     Sleeper
	OnRetry   func(n int, err error, delay time.Duration)
}

// Backoff retorna base * 2^attempt
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		return base
	}
	return base << uint(attempt)
}

// Do executa fn até sucesso, erro não retentável ou esgotar Retries.
// O resultado é sempre o da última tentativa executada.
func Do[T any](ctx context.Context, p Policy, fn Attempt[T]) (T, error) {
	return step(ctx, p, fn, 0)
}

func step[T any](ctx context.Context, p Policy, fn Attempt[T], n int) (T, error) {
	v, err := fn(ctx, n)
	if err == nil || n >= p.Retries || !p.retryable(err) {
		return v, err
	}

	d := Backoff(p.BaseDelay, n)
	if p.OnRetry != nil {
		p.OnRetry(n, err, d)
	}
	if serr := p.sleep(ctx, d); serr != nil {
		// ctx do chamador cancelado durante a espera
		return v, err
	}
	return step(ctx, p, fn, n+1)
}

func (p Policy) retryable(err error) bool {
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return TimerSleep(ctx, d)
}

// TimerSleep espera d ou até o ctx ser cancelado
func TimerSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
