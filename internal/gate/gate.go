package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Per-project compile gate.
//
// At most one compile may be in flight per project; a second request while
// one is running is rejected, not queued. The gate is a redis SETNX key with
// a TTL so a crashed compile never leaves the flag stuck — the expiry is the
// watchdog.
//
// Acquire hands the holder a token and Release is compare-and-delete on that
// token. A compile that outlives its TTL loses the gate to the next caller;
// its late release must not free the new holder's key.
// ---------------------------------------------------------------------------

// ErrCompileInFlight is returned by Acquire when another compile already
// holds the project's gate.
var ErrCompileInFlight = fmt.Errorf("a compile is already in flight for this project")

// releaseScript deletes the gate key only when it still carries the holder's
// token, so a release after TTL expiry cannot free a successor's gate.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type Gate struct {
	client *redis.Client
	ttl    time.Duration
}

func New(redisURL string, ttl time.Duration) (*Gate, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Gate{client: client, ttl: ttl}, nil
}

func (g *Gate) Close() error {
	return g.client.Close()
}

func gateKey(projectID uuid.UUID) string {
	return "compile:inflight:" + projectID.String()
}

// Acquire takes the project's gate and returns the holder token that must be
// passed back to Release. Returns ErrCompileInFlight when the gate is
// already held.
func (g *Gate) Acquire(ctx context.Context, projectID uuid.UUID) (string, error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, gateKey(projectID), token, g.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire compile gate: %w", err)
	}
	if !ok {
		return "", ErrCompileInFlight
	}
	return token, nil
}

// Release clears the project's gate if it is still held with the given
// token. A no-op when the gate already expired or was re-acquired by a
// later compile; release failures are logged by the caller, never fatal.
func (g *Gate) Release(ctx context.Context, projectID uuid.UUID, token string) error {
	if err := releaseScript.Run(ctx, g.client, []string{gateKey(projectID)}, token).Err(); err != nil {
		return fmt.Errorf("failed to release compile gate: %w", err)
	}
	return nil
}

// InFlight reports whether a compile currently holds the project's gate.
func (g *Gate) InFlight(ctx context.Context, projectID uuid.UUID) (bool, error) {
	n, err := g.client.Exists(ctx, gateKey(projectID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check compile gate: %w", err)
	}
	return n > 0, nil
}
