package db

import (
	"context"
	"crypto/sha1"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// DefaultPayloadTTL bounds how long a cached upstream payload is served
// before a re-fetch is forced.
const DefaultPayloadTTL = 15 * time.Minute

var ErrPayloadNotFound = errors.New("payload not found", j.C("ERR_41c6d82ea95f307b"))

// PayloadKey identifies one cached upstream document by kind and the
// filter values it was fetched for.
type PayloadKey struct {
	Kind    string
	Machine string
	From    string
	To      string
}

func (k PayloadKey) toRedis() string {
	h := sha1.New()
	_, _ = fmt.Fprintln(h, k.Machine, k.From, k.To)
	return fmt.Sprintf("payload.%s.%x", k.Kind, h.Sum(nil))
}

func StorePayload(ctx context.Context, conn redis.Conn, key PayloadKey, b []byte, ttl time.Duration) error {
	_, err := redis.DoContext(conn, ctx, "SET", key.toRedis(), b, "EX", int(ttl.Seconds()))
	return errors.Wrap(err, "store payload", j.KV("kind", key.Kind))
}

func GetPayload(ctx context.Context, conn redis.Conn, key PayloadKey) ([]byte, error) {
	b, err := redis.Bytes(redis.DoContext(conn, ctx, "GET", key.toRedis()))
	if errors.Is(err, redis.ErrNil) {
		return nil, errors.Wrap(ErrPayloadNotFound, "", j.KV("kind", key.Kind))
	} else if err != nil {
		return nil, errors.Wrap(err, "get payload", j.KV("kind", key.Kind))
	}
	return b, nil
}
