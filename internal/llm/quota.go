package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrDailyQuotaExceeded is returned once the shared daily request budget is spent
var ErrDailyQuotaExceeded = errors.New("daily LLM quota exceeded")

// Quota is a request budget shared by every autodoc process pointed at the
// same Redis. It complements the in-process limiter when several runs share
// one API key.
type Quota struct {
	redis    *redis.Client
	prefix   string
	rpmLimit int64
	rpdLimit int64
	now      func() time.Time
}

// throttleError carries how long to wait before the next minute window opens
type throttleError struct {
	current int64
	limit   int64
	wait    time.Duration
}

func (e *throttleError) Error() string {
	return fmt.Sprintf("approaching RPM limit (%d/%d), wait %s", e.current, e.limit, e.wait)
}

// quotaScript increments both counters atomically and reports which limit, if
// any, was crossed. Minute keys live 70s to absorb clock skew.
var quotaScript = redis.NewScript(`
	local rpm = redis.call('INCR', KEYS[1])
	local rpd = redis.call('INCR', KEYS[2])
	if rpm == 1 then redis.call('EXPIRE', KEYS[1], 70) end
	if rpd == 1 then redis.call('EXPIRE', KEYS[2], 86400) end

	local rpm_limit = tonumber(ARGV[1])
	local rpd_limit = tonumber(ARGV[2])
	if rpd_limit > 0 and rpd > rpd_limit then
		return {-2, rpd, rpd_limit}
	end
	if rpm_limit > 0 and rpm > rpm_limit then
		return {-1, rpm, rpm_limit}
	end
	return {0, rpm, rpd}
`)

// NewQuota connects to Redis at url (redis://host:port/db) and verifies the connection
func NewQuota(ctx context.Context, url, provider string, rpm, rpd int) (*Quota, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	return &Quota{
		redis:    client,
		prefix:   "autodoc:" + provider,
		rpmLimit: int64(rpm),
		rpdLimit: int64(rpd),
		now:      time.Now,
	}, nil
}

func (q *Quota) keys() (minuteKey, dayKey string) {
	now := q.now().UTC()
	return fmt.Sprintf("%s:rpm:%s", q.prefix, now.Format("2006-01-02T15:04")),
		fmt.Sprintf("%s:rpd:%s", q.prefix, now.Format("2006-01-02"))
}

// CheckAndIncrement records one request. It returns ErrDailyQuotaExceeded or a
// throttle error when a limit has been crossed.
func (q *Quota) CheckAndIncrement(ctx context.Context) error {
	minuteKey, dayKey := q.keys()

	res, err := quotaScript.Run(ctx, q.redis, []string{minuteKey, dayKey}, q.rpmLimit, q.rpdLimit).Int64Slice()
	if err != nil {
		return fmt.Errorf("quota redis operation failed: %w", err)
	}
	if len(res) < 3 {
		return fmt.Errorf("invalid quota response format")
	}

	switch res[0] {
	case -2:
		return fmt.Errorf("%w: %d/%d requests", ErrDailyQuotaExceeded, res[1], res[2])
	case -1:
		wait := time.Duration(60-q.now().Second()) * time.Second
		if wait <= 0 {
			wait = time.Second
		}
		return &throttleError{current: res[1], limit: res[2], wait: wait}
	}
	return nil
}

// Wait blocks until a request slot is available in the shared budget
func (q *Quota) Wait(ctx context.Context) error {
	for {
		err := q.CheckAndIncrement(ctx)
		var throttled *throttleError
		if !errors.As(err, &throttled) {
			return err
		}
		select {
		case <-time.After(throttled.wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Usage returns the current minute and day counters
func (q *Quota) Usage(ctx context.Context) (rpm, rpd int64, err error) {
	minuteKey, dayKey := q.keys()

	pipe := q.redis.Pipeline()
	rpmCmd := pipe.Get(ctx, minuteKey)
	rpdCmd := pipe.Get(ctx, dayKey)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, 0, fmt.Errorf("failed to get usage stats: %w", err)
	}

	rpm, _ = rpmCmd.Int64()
	rpd, _ = rpdCmd.Int64()
	return rpm, rpd, nil
}

// Close closes the Redis connection
func (q *Quota) Close() error {
	if q.redis != nil {
		return q.redis.Close()
	}
	return nil
}
