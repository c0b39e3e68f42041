package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/phdlabs/admind/internal/authz"
	"github.com/phdlabs/admind/internal/config"
	"github.com/phdlabs/admind/internal/model"
)

const privilegeKeyPrefix = "admind:privileges:"

// PrivilegeCache resolves the effective privilege matrix of an admin. When a
// Redis client is configured, matrices are shared between replicas for the
// cache TTL; concurrent loads of the same admin are collapsed into one store
// query either way.
type PrivilegeCache struct {
	store *config.Store
	rdb   *redis.Client
	ttl   time.Duration
	group singleflight.Group
}

// NewPrivilegeCache creates a cache backed by store. rdb may be nil.
func NewPrivilegeCache(store *config.Store, rdb *redis.Client, ttl time.Duration) *PrivilegeCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PrivilegeCache{store: store, rdb: rdb, ttl: ttl}
}

// Get returns the privilege matrix of the admin.
func (c *PrivilegeCache) Get(ctx context.Context, adminID int64) (authz.Privileges, error) {
	key := privilegeKey(adminID)

	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var privs authz.Privileges
			if err := json.Unmarshal(raw, &privs); err == nil {
				return privs, nil
			}
			slog.Warn("discarding malformed cached privileges", "admin_id", adminID)
		case !errors.Is(err, redis.Nil):
			slog.Warn("privilege cache read failed", "admin_id", adminID, "error", err)
		}
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		// Detached so one cancelled caller does not fail the shared load.
		return c.load(context.WithoutCancel(ctx), adminID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(authz.Privileges), nil
	}
}

func (c *PrivilegeCache) load(ctx context.Context, adminID int64) (authz.Privileges, error) {
	admin, err := c.store.GetAdmin(ctx, adminID)
	if err != nil {
		return nil, fmt.Errorf("load admin %d: %w", adminID, err)
	}

	var privs authz.Privileges
	switch {
	case !admin.IsActive:
		privs = authz.Privileges{}
	case admin.IsSuperAdmin:
		fns, err := c.store.ListFunctions(ctx)
		if err != nil {
			return nil, err
		}
		privs = authz.Full(fns)
	case admin.AdminTypeID == nil:
		privs = authz.Privileges{}
	default:
		list, err := c.store.GetPrivileges(ctx, *admin.AdminTypeID)
		if err != nil {
			return nil, err
		}
		privs = authz.Privileges(list)
	}

	if c.rdb != nil {
		raw, err := json.Marshal([]model.Privilege(privs))
		if err == nil {
			err = c.rdb.Set(ctx, privilegeKey(adminID), raw, c.ttl).Err()
		}
		if err != nil {
			slog.Warn("privilege cache write failed", "admin_id", adminID, "error", err)
		}
	}
	return privs, nil
}

// Invalidate drops the cached matrix of one admin.
func (c *PrivilegeCache) Invalidate(ctx context.Context, adminID int64) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, privilegeKey(adminID)).Err()
}

// InvalidateAll drops every cached matrix. Used when an admin type changes,
// since any number of admins may hold it.
func (c *PrivilegeCache) InvalidateAll(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	iter := c.rdb.Scan(ctx, 0, privilegeKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan privilege keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func privilegeKey(adminID int64) string {
	return privilegeKeyPrefix + strconv.FormatInt(adminID, 10)
}
