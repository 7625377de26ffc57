package usecase

import (
	"context"
	"time"
)

// countdown reports the remaining exam time every tick and fires once the
// limit has elapsed. Both are delivered through post.
type countdown struct {
	cancel context.CancelFunc
}

func startCountdown(ctx context.Context, limit time.Duration, tick time.Duration, post func(flowEvent)) *countdown {
	if tick <= 0 {
		tick = time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	c := &countdown{cancel: cancel}

	go func() {
		deadline := time.Now().Add(limit)
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		expired := time.NewTimer(limit)
		defer expired.Stop()

		post(tickEvent{remaining: limit})
		for {
			select {
			case <-ctx.Done():
				return
			case <-expired.C:
				post(tickEvent{remaining: 0})
				post(timeoutEvent{})
				return
			case now := <-ticker.C:
				remaining := deadline.Sub(now).Round(time.Second)
				if remaining < 0 {
					remaining = 0
				}
				post(tickEvent{remaining: remaining})
			}
		}
	}()

	return c
}

// Stop halts the countdown. It does not wait: the goroutine may be posting
// to the loop that is calling Stop.
func (c *countdown) Stop() {
	if c == nil {
		return
	}
	c.cancel()
}
