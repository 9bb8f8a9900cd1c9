// Package routing decides which legal target status a subject should be
// asked to move to, based on feature-flag snapshots and deterministic
// subject bucketing. It is the only place business branching happens; the
// engine itself only validates and orchestrates.
package routing

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Snapshot is an immutable view of the flag configuration taken once per
// decision. Flag storage is externally mutable, so decisions never read it
// twice: everything derives from one snapshot, which also makes decisions
// reproducible in tests and idempotent on retry.
type Snapshot struct {
	Version string
	flags   map[string]string
}

// NewSnapshot copies flags into an immutable snapshot.
func NewSnapshot(version string, flags map[string]string) *Snapshot {
	cp := make(map[string]string, len(flags))
	for k, v := range flags {
		cp[k] = v
	}
	return &Snapshot{Version: version, flags: cp}
}

// Get returns the raw flag value.
func (s *Snapshot) Get(key string) (string, bool) {
	v, ok := s.flags[key]
	return v, ok
}

// Enabled interprets common truthy spellings.
func (s *Snapshot) Enabled(key string) bool {
	v, ok := s.flags[key]
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes", "enabled":
		return true
	}
	return false
}

// Source produces flag snapshots. Sources must tolerate the backing
// configuration changing between calls; each Snapshot call is one read.
type Source interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// StaticSource serves a fixed snapshot, for tests and static deployments.
type StaticSource struct {
	snap *Snapshot
}

func NewStaticSource(version string, flags map[string]string) *StaticSource {
	return &StaticSource{snap: NewSnapshot(version, flags)}
}

func (s *StaticSource) Snapshot(ctx context.Context) (*Snapshot, error) {
	return s.snap, nil
}

// versionField is the reserved hash field carrying the snapshot version.
const versionField = "_version"

// RedisSource reads the flag set from a Redis hash in one HGETALL, so every
// decision sees a consistent point-in-time view of the hash.
type RedisSource struct {
	client *redis.Client
	key    string
}

// NewRedisSource reads flags from the given hash key (e.g.
// "statusflow:flags").
func NewRedisSource(client *redis.Client, key string) *RedisSource {
	if key == "" {
		key = "statusflow:flags"
	}
	return &RedisSource{client: client, key: key}
}

func (s *RedisSource) Snapshot(ctx context.Context) (*Snapshot, error) {
	flags, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "read flags from %s", s.key)
	}
	version := flags[versionField]
	delete(flags, versionField)
	return NewSnapshot(version, flags), nil
}
