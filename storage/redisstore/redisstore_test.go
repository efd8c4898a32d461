package redisstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xterrybit/solana-attestation-service/storage"
	"github.com/0xterrybit/solana-attestation-service/storage/testkit"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewWithClient(client, "test:"), mr
}

func TestRedisStore_Conformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		s, _ := newTestStore(t)
		return s
	})
}

func TestRedisStore_KeysAreNamespaced(t *testing.T) {
	s, mr := newTestStore(t)
	addr := testkit.Addr("ns")

	var b storage.Batch
	b.Create(addr, storage.Account{Data: []byte{1}})
	require.NoError(t, s.Commit(context.Background(), b))

	assert.True(t, mr.Exists("test:acct:"+addr.String()))
	members, err := mr.SMembers("test:index")
	require.NoError(t, err)
	assert.Equal(t, []string{addr.String()}, members)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	s, mr := newTestStore(t)
	addr := testkit.Addr("bad")
	require.NoError(t, mr.Set("test:acct:"+addr.String(), "nope"))

	_, err := s.Get(context.Background(), addr)
	assert.ErrorIs(t, err, storage.ErrCorrupt)
}

func TestNew_RequiresAddr(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}
