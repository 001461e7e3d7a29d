package production

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// DeviceLocks makes "one active session per device" hold across server
// instances. A nil *DeviceLocks grants every request.
type DeviceLocks struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewDeviceLocks(client *redis.Client, ttl time.Duration) *DeviceLocks {
	if client == nil {
		return nil
	}
	return &DeviceLocks{redis: client, ttl: ttl}
}

func lockKey(deviceID string) string {
	return "production:device:" + deviceID + ":session"
}

func (l *DeviceLocks) Acquire(ctx context.Context, deviceID, sessionID string) (bool, error) {
	if l == nil {
		return true, nil
	}
	return l.redis.SetNX(ctx, lockKey(deviceID), sessionID, l.ttl).Result()
}

func (l *DeviceLocks) Release(ctx context.Context, deviceID, sessionID string) error {
	if l == nil {
		return nil
	}
	return releaseScript.Run(ctx, l.redis, []string{lockKey(deviceID)}, sessionID).Err()
}
