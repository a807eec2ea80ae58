package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScripter answers EvalSha with a fixed result and records the call.
type fakeScripter struct {
	result any
	err    error
	keys   []string
	args   []any
}

func (f *fakeScripter) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return f.EvalSha(ctx, "", keys, args...)
}

func (f *fakeScripter) EvalSha(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	f.keys, f.args = keys, args
	return redis.NewCmdResult(f.result, f.err)
}

func (f *fakeScripter) EvalRO(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return f.Eval(ctx, script, keys, args...)
}

func (f *fakeScripter) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd {
	return f.EvalSha(ctx, sha1, keys, args...)
}

func (f *fakeScripter) ScriptExists(_ context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (f *fakeScripter) ScriptLoad(_ context.Context, script string) *redis.StringCmd {
	return redis.NewStringResult("", nil)
}

func TestRedisAdmitPassesWindowAndCapacity(t *testing.T) {
	fake := &fakeScripter{result: int64(1)}
	r := NewRedis(fake, time.Minute, 10)
	r.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }

	assert.True(t, r.Admit(context.Background(), "send:user-1"))
	require.Equal(t, []string{"ratelimit:send:user-1"}, fake.keys)
	require.Len(t, fake.args, 4)
	assert.EqualValues(t, 1_700_000_000_000, fake.args[0])
	assert.EqualValues(t, 60_000, fake.args[1])
	assert.EqualValues(t, 10, fake.args[2])
}

func TestRedisRejectsWhenScriptSaysNo(t *testing.T) {
	r := NewRedis(&fakeScripter{result: int64(0)}, time.Minute, 10)
	assert.False(t, r.Admit(context.Background(), "user-1"))
}

func TestRedisFailsOpen(t *testing.T) {
	r := NewRedis(&fakeScripter{err: errors.New("connection refused")}, time.Minute, 10)
	assert.True(t, r.Admit(context.Background(), "user-1"))
}
