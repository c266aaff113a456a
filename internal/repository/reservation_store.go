package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-ticket-settlement/internal/model"
)

// ReservationStore holds pending tickets keyed by memo.
type ReservationStore interface {
	// Put inserts r under r.Memo. It fails with ErrDuplicateMemo when the
	// memo is already present; existing entries are never overwritten.
	Put(ctx context.Context, r model.Reservation) error
	// Get returns the reservation for memo without removing it, or
	// ErrNotFound.
	Get(ctx context.Context, memo uint64) (model.Reservation, error)
	// TakeByMemo atomically removes and returns the reservation for memo,
	// or ErrNotFound. Of any number of concurrent callers for the same
	// memo, at most one receives the reservation.
	TakeByMemo(ctx context.Context, memo uint64) (model.Reservation, error)
	// ListByEvent returns the pending reservations of an event, oldest
	// first. It is for display only.
	ListByEvent(ctx context.Context, eventID string) ([]model.Reservation, error)
	// All returns every pending reservation. Used to re-arm timeouts after
	// a restart.
	All(ctx context.Context) ([]model.Reservation, error)
}

// RedisReservationStore keeps each reservation as a JSON string under
// "<prefix>:memo:<memo>" and indexes memos per event in the set
// "<prefix>:event:<event id>". The memo key is the source of truth; the
// set is a best-effort index that is pruned lazily.
type RedisReservationStore struct {
	rdb    redis.Cmdable
	prefix string
}

// NewRedisReservationStore returns a store using rdb. An empty prefix
// defaults to "pending".
func NewRedisReservationStore(rdb redis.Cmdable, prefix string) *RedisReservationStore {
	if prefix == "" {
		prefix = "pending"
	}
	return &RedisReservationStore{rdb: rdb, prefix: prefix}
}

func (s *RedisReservationStore) memoKey(memo uint64) string {
	return s.prefix + ":memo:" + strconv.FormatUint(memo, 10)
}

func (s *RedisReservationStore) eventKey(eventID string) string {
	return s.prefix + ":event:" + eventID
}

// Put implements ReservationStore using SET NX so a duplicate memo can
// never replace a live reservation.
func (s *RedisReservationStore) Put(ctx context.Context, r model.Reservation) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reservation: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, s.memoKey(r.Memo), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("store reservation: %w", err)
	}
	if !ok {
		return ErrDuplicateMemo
	}
	if err := s.rdb.SAdd(ctx, s.eventKey(r.EventID), strconv.FormatUint(r.Memo, 10)).Err(); err != nil {
		// Put failed as a whole, so the memo key must not outlive it: no
		// timer will ever be armed for it.
		if derr := s.rdb.Del(ctx, s.memoKey(r.Memo)).Err(); derr != nil {
			return fmt.Errorf("index reservation: %w (rollback: %v)", err, derr)
		}
		return fmt.Errorf("index reservation: %w", err)
	}
	return nil
}

// Get implements ReservationStore.
func (s *RedisReservationStore) Get(ctx context.Context, memo uint64) (model.Reservation, error) {
	var r model.Reservation
	raw, err := s.rdb.Get(ctx, s.memoKey(memo)).Bytes()
	if errors.Is(err, redis.Nil) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, fmt.Errorf("get reservation: %w", err)
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return r, fmt.Errorf("decode reservation %d: %w", memo, err)
	}
	return r, nil
}

// TakeByMemo implements ReservationStore with GETDEL, which removes and
// returns the value in one server-side step.
func (s *RedisReservationStore) TakeByMemo(ctx context.Context, memo uint64) (model.Reservation, error) {
	var r model.Reservation
	raw, err := s.rdb.GetDel(ctx, s.memoKey(memo)).Bytes()
	if errors.Is(err, redis.Nil) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, fmt.Errorf("take reservation: %w", err)
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return r, fmt.Errorf("decode reservation %d: %w", memo, err)
	}
	// The reservation is already ours; a failed index cleanup only leaves
	// a stale set member that ListByEvent prunes.
	_ = s.rdb.SRem(ctx, s.eventKey(r.EventID), strconv.FormatUint(memo, 10)).Err()
	return r, nil
}

// ListByEvent implements ReservationStore.
func (s *RedisReservationStore) ListByEvent(ctx context.Context, eventID string) ([]model.Reservation, error) {
	members, err := s.rdb.SMembers(ctx, s.eventKey(eventID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	if len(members) == 0 {
		return []model.Reservation{}, nil
	}
	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = s.prefix + ":memo:" + m
	}
	out, stale, err := s.load(ctx, keys)
	if err != nil {
		return nil, err
	}
	if len(stale) > 0 {
		staleMembers := make([]interface{}, 0, len(stale))
		for _, k := range stale {
			staleMembers = append(staleMembers, strings.TrimPrefix(k, s.prefix+":memo:"))
		}
		_ = s.rdb.SRem(ctx, s.eventKey(eventID), staleMembers...).Err()
	}
	return out, nil
}

// All implements ReservationStore by scanning the memo keyspace.
func (s *RedisReservationStore) All(ctx context.Context) ([]model.Reservation, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, s.prefix+":memo:*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan reservations: %w", err)
	}
	if len(keys) == 0 {
		return []model.Reservation{}, nil
	}
	out, _, err := s.load(ctx, keys)
	return out, err
}

// load fetches keys with MGET and returns the decoded reservations sorted
// by creation time together with the keys that no longer exist.
func (s *RedisReservationStore) load(ctx context.Context, keys []string) ([]model.Reservation, []string, error) {
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("load reservations: %w", err)
	}
	out := make([]model.Reservation, 0, len(vals))
	var stale []string
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, keys[i])
			continue
		}
		var r model.Reservation
		if err := json.Unmarshal([]byte(str), &r); err != nil {
			return nil, nil, fmt.Errorf("decode reservation %s: %w", keys[i], err)
		}
		out = append(out, r)
	}
	sortReservations(out)
	return out, stale, nil
}

func sortReservations(rs []model.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].Memo < rs[j].Memo
		}
		return rs[i].CreatedAt.Before(rs[j].CreatedAt)
	})
}
