// Package redis provides Redis-backed account persistence. Each account is a
// JSON snapshot under <prefix>account:<currency>:<owner>; a set per currency
// indexes the stored owners.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"economy-ledger/domain"
	"economy-ledger/store"
)

const DefaultKeyPrefix = "ledger:"

type Config struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix namespaces every key; DefaultKeyPrefix when empty.
	KeyPrefix string
}

type Store struct {
	client redis.UniversalClient
	prefix string
}

var _ store.Persistence = (*Store)(nil)

// Connect opens a client for config and pings it.
func Connect(ctx context.Context, config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", config.Addr, err)
	}
	return NewStore(client, config.KeyPrefix), nil
}

// NewStore wraps an existing client. The caller keeps ownership of client unless Close is called.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *Store) accountKey(currency string, owner uuid.UUID) string {
	return s.prefix + "account:" + currency + ":" + owner.String()
}

func (s *Store) indexKey(currency string) string {
	return s.prefix + "index:" + currency
}

func (s *Store) Load(ctx context.Context, currency string, owner uuid.UUID) (*domain.AccountSnapshot, error) {
	data, err := s.client.Get(ctx, s.accountKey(currency, owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s:%s", store.ErrNotFound, currency, owner)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	snap, err := domain.UnmarshalSnapshot(data)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Store) Save(ctx context.Context, snapshot domain.AccountSnapshot) error {
	if snapshot.Currency == "" || snapshot.Owner == uuid.Nil {
		return errors.New("cannot save snapshot without currency and owner")
	}
	snapshot.UpdatedAt = time.Now().UTC()
	data, err := domain.MarshalSnapshot(snapshot)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.accountKey(snapshot.Currency, snapshot.Owner), data, 0)
		pipe.SAdd(ctx, s.indexKey(snapshot.Currency), snapshot.Owner.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save %s: %w", snapshot.Key(), err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, currency string, owner uuid.UUID) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.accountKey(currency, owner))
		pipe.SRem(ctx, s.indexKey(currency), owner.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete %s:%s: %w", currency, owner, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, currency string) ([]domain.AccountSnapshot, error) {
	members, err := s.client.SMembers(ctx, s.indexKey(currency)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	result := make([]domain.AccountSnapshot, 0, len(members))
	if len(members) == 0 {
		return result, nil
	}
	sort.Strings(members)

	keys := make([]string, 0, len(members))
	for _, member := range members {
		owner, err := uuid.Parse(member)
		if err != nil {
			return nil, fmt.Errorf("invalid owner %q in index of %s: %w", member, currency, err)
		}
		keys = append(keys, s.accountKey(currency, owner))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// indexed but gone; a concurrent delete won the race
			continue
		}
		snap, err := domain.UnmarshalSnapshot([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", keys[i], err)
		}
		result = append(result, snap)
	}
	return result, nil
}
