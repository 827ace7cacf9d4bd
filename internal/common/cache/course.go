// Package cache puts Redis in front of host lookups that change rarely.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ehealth-workers/internal/common/logger"
	"ehealth-workers/internal/common/metrics"
	"ehealth-workers/internal/common/moodle"

	"github.com/redis/go-redis/v9"
)

const courseKeyPrefix = "ehealth:course:"

// CourseCache decorates a CourseFieldsLookup. A Redis failure never fails the
// lookup; it falls through to the wrapped source.
type CourseCache struct {
	next   moodle.CourseFieldsLookup
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCourseCache(next moodle.CourseFieldsLookup, client *redis.Client, ttl time.Duration, log logger.Logger) *CourseCache {
	return &CourseCache{
		next:   next,
		redis:  client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "course-cache"}),
	}
}

func CourseKey(courseID int64) string {
	return fmt.Sprintf("%s%d", courseKeyPrefix, courseID)
}

func (c *CourseCache) CourseFields(ctx context.Context, courseID int64) (*moodle.CourseFields, error) {
	key := CourseKey(courseID)

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var fields moodle.CourseFields
		if jsonErr := json.Unmarshal([]byte(val), &fields); jsonErr == nil {
			metrics.CourseCacheLookups.WithLabelValues("hit").Inc()
			return &fields, nil
		}
		metrics.CourseCacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("Discarding unreadable cache entry", map[string]interface{}{"key": key})
	case errors.Is(err, redis.Nil):
		metrics.CourseCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.CourseCacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("Course cache read failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	fields, err := c.next.CourseFields(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(fields); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Course cache write failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}

	return fields, nil
}

// Invalidate drops the cached fields of a course.
func (c *CourseCache) Invalidate(ctx context.Context, courseID int64) error {
	return c.redis.Del(ctx, CourseKey(courseID)).Err()
}
