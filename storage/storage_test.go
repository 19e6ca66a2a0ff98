package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseBackend runs the get/set/delete contract shared by every backend.
func exerciseBackend(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.DeleteAllWithTag(ctx, "test_tag"))

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "test_tag", []byte("key1"), []byte("value1")))
		value, found, err := s.Get(ctx, "test_tag", []byte("key1"))
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte("value1"), value)
	})

	t.Run("get missing", func(t *testing.T) {
		value, found, err := s.Get(ctx, "test_tag", []byte("nonexistent"))
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, value)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "test_tag", []byte("key1"), []byte("value2")))
		value, found, err := s.Get(ctx, "test_tag", []byte("key1"))
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte("value2"), value)
	})

	t.Run("binary digest", func(t *testing.T) {
		digest := []byte{0x00, 0xff, '/', '\n', 0x7f}
		require.NoError(t, s.Set(ctx, "test_tag", digest, []byte("bin")))
		value, found, err := s.Get(ctx, "test_tag", digest)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte("bin"), value)
	})

	t.Run("delete tag keeps other tags", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "test_tag2", []byte("key2"), []byte("value3")))
		require.NoError(t, s.DeleteAllWithTag(ctx, "test_tag"))

		_, found, err := s.Get(ctx, "test_tag", []byte("key1"))
		require.NoError(t, err)
		assert.False(t, found)

		value, found, err := s.Get(ctx, "test_tag2", []byte("key2"))
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte("value3"), value)
	})

	t.Run("delete missing tag is idempotent", func(t *testing.T) {
		assert.NoError(t, s.DeleteAllWithTag(ctx, "never_used"))
	})
}

func TestMemoryBackend(t *testing.T) {
	m := NewMemory()
	exerciseBackend(t, m)
	assert.Equal(t, 1, m.Len("test_tag2"))
}

func TestMemory_ValuesAreCopied(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	value := []byte("abc")
	require.NoError(t, m.Set(ctx, "t", []byte("k"), value))
	value[0] = 'x'

	got, _, err := m.Get(ctx, "t", []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestFileBackend(t *testing.T) {
	f, err := NewFile(FileConfig{Root: "/cache", Fs: afero.NewMemMapFs()})
	require.NoError(t, err)
	exerciseBackend(t, f)
	assert.NoError(t, f.Ping(context.Background()))
}

func TestFileBackend_OsFs(t *testing.T) {
	root := filepath.Join(t.TempDir(), "miniperscache_test")
	f, err := NewFile(FileConfig{Root: root})
	require.NoError(t, err)
	exerciseBackend(t, f)
}

func TestFileBackend_RejectsEscapingTags(t *testing.T) {
	f, err := NewFile(FileConfig{Root: "/cache", Fs: afero.NewMemMapFs()})
	require.NoError(t, err)
	ctx := context.Background()

	for _, tag := range []string{"..", ".", "a/b", `a\b`, ""} {
		err := f.Set(ctx, tag, []byte("k"), []byte("v"))
		assert.ErrorIs(t, err, ErrInvalidTag, "tag %q", tag)
	}
}

func TestSQLiteBackend(t *testing.T) {
	s, err := OpenSQLite(context.Background(), SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	exerciseBackend(t, s)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestSQLiteBackend_InMemory(t *testing.T) {
	s, err := OpenSQLite(context.Background(), SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	exerciseBackend(t, s)
}

func TestSQLiteBackend_PersistsAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	first, err := OpenSQLite(ctx, SQLiteConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "tag", []byte("k"), []byte("v")))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(ctx, SQLiteConfig{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	value, found, err := second.Get(ctx, "tag", []byte("k"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), value)
}

func TestRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	r, err := NewRedis(client, "")
	require.NoError(t, err)
	exerciseBackend(t, r)
	assert.NoError(t, r.Ping(context.Background()))
	assert.True(t, mr.Exists(DefaultRedisPrefix+":test_tag2"))
}

func TestRedisBackend_PropagatesErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	r, err := OpenRedis(RedisConfig{Addr: mr.Addr(), Prefix: "p"})
	require.NoError(t, err)
	mr.Close()

	_, _, err = r.Get(context.Background(), "tag", []byte("k"))
	assert.Error(t, err)
}

func TestAsyncAdapter(t *testing.T) {
	ctx := context.Background()
	a := Async(NewMemory())

	require.NoError(t, <-a.SetAsync(ctx, "tag", []byte("k"), []byte("v")))
	res := <-a.GetAsync(ctx, "tag", []byte("k"))
	require.NoError(t, res.Err)
	assert.True(t, res.Found)
	assert.Equal(t, []byte("v"), res.Value)

	require.NoError(t, <-a.DeleteAllWithTagAsync(ctx, "tag"))
	res = <-a.GetAsync(ctx, "tag", []byte("k"))
	assert.False(t, res.Found)
}

func TestNewAsyncFile(t *testing.T) {
	a, err := NewAsyncFile(FileConfig{Root: "/async", Fs: afero.NewMemMapFs()})
	require.NoError(t, err)
	d, err := Dispatch(a)
	require.NoError(t, err)
	assert.Equal(t, ModeAsync, d.Mode())
	exerciseBackend(t, d)
}

func TestValidateTag(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		wantErr error
	}{
		{"empty", "", ErrInvalidTag},
		{"whitespace only", "   ", ErrInvalidTag},
		{"newline", "a\nb", ErrInvalidTag},
		{"nul", "a\x00b", ErrInvalidTag},
		{"too long", strings.Repeat("x", MaxTagLength+1), ErrTagTooLong},
		{"max length", strings.Repeat("x", MaxTagLength), nil},
		{"normal", "my_expensive_func", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateTag(tt.tag), tt.wantErr)
		})
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("MPC_HOST", "cache.internal")
	t.Setenv("MPC_PORT", "6380")

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"plain", "localhost:6379", "localhost:6379", nil},
		{"braced", "${MPC_HOST}:${MPC_PORT}", "cache.internal:6380", nil},
		{"bare dollar kept", "pa$word", "pa$word", nil},
		{"escaped", "$${MPC_HOST}", "${MPC_HOST}", nil},
		{"missing", "${MPC_NOPE_B}/${MPC_NOPE_A}", "", ErrMissingEnv},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandEnv(tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), "MPC_NOPE_A, MPC_NOPE_B")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenBackends_ExpandEnv(t *testing.T) {
	root := t.TempDir()
	t.Setenv("MPC_ROOT", root)

	f, err := NewFile(FileConfig{Root: "${MPC_ROOT}/files", Fs: afero.NewMemMapFs()})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "files"), filepath.Clean(f.Root()))

	db, err := OpenSQLite(context.Background(), SQLiteConfig{Path: "${MPC_ROOT}/test.db"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	assert.Equal(t, root+"/test.db", db.Path())

	_, err = OpenRedis(RedisConfig{Addr: "${MPC_REDIS_UNSET}"})
	assert.ErrorIs(t, err, ErrMissingEnv)
}
