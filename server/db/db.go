// Package db holds the redis key codecs and accessors for linesight's
// storage: cached upstream payloads and committed node edits.
package db

import (
	"context"

	"github.com/gomodule/redigo/redis"
	"github.com/luno/jettison/errors"
)

func scanSomeKeys(ctx context.Context, conn redis.Conn, cursor int64, pattern string) ([]string, int64, error) {
	resp, err := redis.Values(redis.DoContext(conn, ctx, "SCAN", cursor, "MATCH", pattern))
	if err != nil {
		return nil, 0, errors.Wrap(err, "")
	}
	next, err := redis.Int64(resp[0], nil)
	if err != nil {
		return nil, 0, errors.Wrap(err, "")
	}
	keys, err := redis.Strings(resp[1], nil)
	return keys, next, errors.Wrap(err, "")
}
