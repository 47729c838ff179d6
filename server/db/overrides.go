package db

import (
	"context"
	"strconv"
	"strings"

	"github.com/gomodule/redigo/redis"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
)

// Node edits committed through the tree view survive restarts as overrides
// keyed by the original machine id.
const overridePrefix = "node."

func overrideKey(machineID int64) string {
	return overridePrefix + strconv.FormatInt(machineID, 10)
}

func machineFromKey(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, overridePrefix), 10, 64)
	return id, errors.Wrap(err, "invalid override key", j.KV("key", s))
}

func StoreNodeOverride(ctx context.Context, conn redis.Conn, machineID int64, attrs []byte) error {
	_, err := redis.DoContext(conn, ctx, "SET", overrideKey(machineID), attrs)
	return errors.Wrap(err, "store override", j.KV("node", machineID))
}

// ScanNodeOverrides calls f with every stored override blob.
func ScanNodeOverrides(ctx context.Context, conn redis.Conn, f func(machineID int64, attrs []byte) error) error {
	var cursor int64
	for {
		keys, next, err := scanSomeKeys(ctx, conn, cursor, overridePrefix+"*")
		if err != nil {
			return err
		}
		for _, k := range keys {
			id, err := machineFromKey(k)
			if err != nil {
				log.Error(ctx, err)
				continue
			}
			b, err := redis.Bytes(redis.DoContext(conn, ctx, "GET", k))
			if errors.Is(err, redis.ErrNil) {
				continue
			} else if err != nil {
				return errors.Wrap(err, "get override", j.KV("key", k))
			}
			if err := f(id, b); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
