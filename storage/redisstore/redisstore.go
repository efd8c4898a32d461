// Package redisstore keeps accounts in Redis. Commits use optimistic
// WATCH/MULTI transactions over the touched keys.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/storage"
)

const defaultPrefix = "sas:"

// maxAttempts bounds WATCH retries before a commit reports ErrConflict.
const maxAttempts = 16

type Store struct {
	client redis.UniversalClient
	prefix string
}

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func New(opts Options) (*Store, error) {
	if opts.Addr == "" {
		return nil, errors.New("redisstore: addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewWithClient(client, opts.Prefix), nil
}

// NewWithClient wraps an existing client. An empty prefix uses "sas:".
func NewWithClient(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *Store) key(addr address.Address) string { return s.prefix + "acct:" + addr.String() }
func (s *Store) indexKey() string                { return s.prefix + "index" }

func (s *Store) Get(ctx context.Context, addr address.Address) (storage.Account, error) {
	b, err := s.client.Get(ctx, s.key(addr)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return storage.Account{}, storage.ErrNotFound
		}
		return storage.Account{}, err
	}
	return storage.DecodeAccount(b)
}

func (s *Store) Has(ctx context.Context, addr address.Address) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(addr)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Commit(ctx context.Context, batch storage.Batch) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	if batch.Len() == 0 {
		return nil
	}
	keys := make([]string, len(batch.Writes))
	for i, w := range batch.Writes {
		keys[i] = s.key(w.Address)
	}

	txf := func(tx *redis.Tx) error {
		vals, err := tx.MGet(ctx, keys...).Result()
		if err != nil {
			return err
		}
		for i, w := range batch.Writes {
			var cur storage.Account
			exists := vals[i] != nil
			if exists {
				str, ok := vals[i].(string)
				if !ok {
					return fmt.Errorf("redisstore: %s: unexpected value type %T", w.Address, vals[i])
				}
				if cur, err = storage.DecodeAccount([]byte(str)); err != nil {
					return fmt.Errorf("redisstore: %s: %w", w.Address, err)
				}
			}
			if err := w.Check(cur, exists); err != nil {
				return err
			}
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			for i, w := range batch.Writes {
				p.Set(ctx, keys[i], storage.EncodeAccount(w.Next()), 0)
				p.SAdd(ctx, s.indexKey(), w.Address.String())
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("%w: gave up after %d watch retries", storage.ErrConflict, maxAttempts)
}

// scanChunk bounds the number of keys fetched per MGET.
const scanChunk = 256

func (s *Store) Scan(ctx context.Context, req storage.ScanRequest) ([]storage.KeyedAccount, error) {
	members, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]storage.KeyedAccount, 0)
	for start := 0; start < len(members); start += scanChunk {
		end := min(start+scanChunk, len(members))
		addrs := make([]address.Address, 0, end-start)
		keys := make([]string, 0, end-start)
		for _, m := range members[start:end] {
			addr, err := address.Parse(m)
			if err != nil {
				return nil, fmt.Errorf("redisstore: bad index member %q: %w", m, err)
			}
			addrs = append(addrs, addr)
			keys = append(keys, s.key(addr))
		}
		vals, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			str, ok := v.(string)
			if !ok {
				continue
			}
			acct, err := storage.DecodeAccount([]byte(str))
			if err != nil {
				return nil, fmt.Errorf("redisstore: %s: %w", addrs[i], err)
			}
			if req.Matches(acct) {
				out = append(out, storage.KeyedAccount{Address: addrs[i], Account: acct})
			}
		}
	}
	return storage.SortKeyed(out, req.Limit), nil
}
