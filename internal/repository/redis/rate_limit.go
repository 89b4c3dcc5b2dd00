package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/arklim/commerce-platform-verify/internal/core/domain"
	"github.com/arklim/commerce-platform-verify/internal/core/port"
)

const (
	defaultRateLimitPrefix = "verify:rate-limit"

	fieldWindowStart  = "window_start"
	fieldAttempts     = "attempts"
	fieldBlockedUntil = "blocked_until"

	scanBatch = 200
)

// RateLimitRepository persists per-(identifier, kind) request windows as
// Redis hashes. One hash holds the window start, the attempt counter, and an
// optional block deadline; HIncrBy keeps concurrent increments atomic.
type RateLimitRepository struct {
	client *red.Client
	prefix string
}

// NewRateLimitRepository constructs a repository using the provided Redis client and key prefix.
func NewRateLimitRepository(client *red.Client, keyPrefix string) *RateLimitRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultRateLimitPrefix
	}

	return &RateLimitRepository{client: client, prefix: prefix}
}

// CurrentWindow returns the active record for the pair, or nil when no
// window has been opened within the window length. A record whose block
// deadline is still in the future stays active even after its counting
// window closes.
func (r *RateLimitRepository) CurrentWindow(ctx context.Context, identifier string, kind domain.Kind, window time.Duration, reference time.Time) (*domain.RateLimitRecord, error) {
	if window <= 0 {
		return nil, errors.New("window must be positive")
	}

	values, err := r.client.HGetAll(ctx, r.key(identifier, kind)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall rate limit: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	record, err := parseRecord(identifier, kind, values)
	if err != nil {
		return nil, err
	}

	if record.WindowExpired(window, reference) && !record.Blocked(reference) {
		return nil, nil
	}

	return record, nil
}

// IncrementAttempt opens the window on first use and bumps the attempt
// counter, returning the post-increment value. A stale hash left over from a
// closed window is discarded before the new window is opened.
func (r *RateLimitRepository) IncrementAttempt(ctx context.Context, identifier string, kind domain.Kind, window time.Duration, at time.Time) (int, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}

	key := r.key(identifier, kind)

	raw, err := r.client.HGet(ctx, key, fieldWindowStart).Result()
	if err != nil && !errors.Is(err, red.Nil) {
		return 0, fmt.Errorf("redis hget rate limit: %w", err)
	}
	if err == nil {
		start, parseErr := parseUnix(raw)
		if parseErr != nil || !start.Add(window).After(at) {
			if delErr := r.client.Del(ctx, key).Err(); delErr != nil {
				return 0, fmt.Errorf("redis del stale rate limit: %w", delErr)
			}
		}
	}

	pipe := r.client.TxPipeline()
	pipe.HSetNX(ctx, key, fieldWindowStart, strconv.FormatInt(at.Unix(), 10))
	incr := pipe.HIncrBy(ctx, key, fieldAttempts, 1)
	pipe.Expire(ctx, key, 2*window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis increment rate limit: %w", err)
	}

	return int(incr.Val()), nil
}

// SetBlockedUntil records a hard block deadline for the pair.
func (r *RateLimitRepository) SetBlockedUntil(ctx context.Context, identifier string, kind domain.Kind, until time.Time) error {
	key := r.key(identifier, kind)

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, fieldBlockedUntil, strconv.FormatInt(until.Unix(), 10))
	pipe.ExpireAt(ctx, key, until.Add(time.Minute))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set blocked until: %w", err)
	}

	return nil
}

// DeleteExpiredWindows scans for hashes whose counting window has closed
// with no block pending and removes them, returning how many were deleted.
// Redis TTLs reclaim most keys on their own; the scan keeps sweep reports
// accurate for windows the TTL has not caught up with yet.
func (r *RateLimitRepository) DeleteExpiredWindows(ctx context.Context, window time.Duration, reference time.Time) (int, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}

	var (
		cursor  uint64
		deleted int
	)

	pattern := r.prefix + ":*"

	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis scan rate limit: %w", err)
		}

		for _, key := range keys {
			values, err := r.client.HGetAll(ctx, key).Result()
			if err != nil {
				return deleted, fmt.Errorf("redis hgetall rate limit: %w", err)
			}
			if len(values) == 0 {
				continue
			}

			record, err := parseRecord("", "", values)
			if err != nil {
				continue
			}

			if record.WindowExpired(window, reference) && !record.Blocked(reference) {
				removed, err := r.client.Del(ctx, key).Result()
				if err != nil {
					return deleted, fmt.Errorf("redis del rate limit: %w", err)
				}
				deleted += int(removed)
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return deleted, nil
}

func (r *RateLimitRepository) key(identifier string, kind domain.Kind) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, kind, identifier)
}

func parseRecord(identifier string, kind domain.Kind, values map[string]string) (*domain.RateLimitRecord, error) {
	windowStart, err := parseUnix(values[fieldWindowStart])
	if err != nil {
		return nil, fmt.Errorf("parse window_start: %w", err)
	}

	record := &domain.RateLimitRecord{
		Identifier:  identifier,
		Kind:        kind,
		WindowStart: windowStart,
	}

	if raw := values[fieldAttempts]; raw != "" {
		if v, convErr := strconv.Atoi(raw); convErr == nil {
			record.AttemptCount = v
		}
	}

	if raw := values[fieldBlockedUntil]; raw != "" {
		until, parseErr := parseUnix(raw)
		if parseErr == nil {
			record.BlockedUntil = &until
		}
	}

	return record, nil
}

func parseUnix(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, errors.New("timestamp is empty")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(v, 0).UTC(), nil
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)
