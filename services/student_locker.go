package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StudentLocker serializes selection transitions of a single student.
// Acquire blocks until the student's lock is held or ctx is done.
type StudentLocker interface {
	Acquire(ctx context.Context, studentID uint) (release func(), err error)
}

// LocalStudentLocker is an in-process keyed mutex. It is enough for a single
// API instance; the database row lock still guards multi-instance deployments.
type LocalStudentLocker struct {
	mu    sync.Mutex
	locks map[uint]*studentMutex
}

type studentMutex struct {
	ch   chan struct{}
	refs int
}

// NewLocalStudentLocker creates an empty keyed mutex
func NewLocalStudentLocker() *LocalStudentLocker {
	return &LocalStudentLocker{locks: make(map[uint]*studentMutex)}
}

func (l *LocalStudentLocker) Acquire(ctx context.Context, studentID uint) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[studentID]
	if !ok {
		m = &studentMutex{ch: make(chan struct{}, 1)}
		l.locks[studentID] = m
	}
	m.refs++
	l.mu.Unlock()

	select {
	case m.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(studentID, m)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-m.ch
			l.drop(studentID, m)
		})
	}, nil
}

func (l *LocalStudentLocker) drop(studentID uint, m *studentMutex) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m.refs--
	if m.refs == 0 {
		delete(l.locks, studentID)
	}
}

// held reports how many callers hold or wait for a student's lock
func (l *LocalStudentLocker) held(studentID uint) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m, ok := l.locks[studentID]; ok {
		return m.refs
	}
	return 0
}

// lockClient is the slice of the Redis cache the distributed locker needs
type lockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key string, token string) (bool, error)
}

// RedisStudentLocker is a SET NX PX lock shared by every API instance.
// Release only deletes the key while it still holds this holder's token.
type RedisStudentLocker struct {
	client lockClient
	ttl    time.Duration
	retry  time.Duration
}

const (
	minStudentLockTTL    = 15 * time.Second
	studentLockTTLMargin = 10 * time.Second
)

// StudentLockTTL sizes the Redis lock for a hook timeout. A holder runs one
// transaction and then at most hookTimeout of task generation, whether it is
// a transition or an outbox sweep, so the lock must outlive both.
func StudentLockTTL(hookTimeout time.Duration) time.Duration {
	ttl := 2*hookTimeout + studentLockTTLMargin
	if ttl < minStudentLockTTL {
		return minStudentLockTTL
	}
	return ttl
}

// NewRedisStudentLocker creates a distributed locker. ttl bounds how long a
// crashed holder can block the student; size it with StudentLockTTL.
func NewRedisStudentLocker(client lockClient, ttl time.Duration) *RedisStudentLocker {
	if ttl <= 0 {
		ttl = minStudentLockTTL
	}
	return &RedisStudentLocker{
		client: client,
		ttl:    ttl,
		retry:  25 * time.Millisecond,
	}
}

func studentLockKey(studentID uint) string {
	return fmt.Sprintf("selection:lock:student:%d", studentID)
}

func (l *RedisStudentLocker) Acquire(ctx context.Context, studentID uint) (func(), error) {
	key := studentLockKey(studentID)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire student lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			// An expired lock may already belong to someone else; the token check keeps it.
			_, _ = l.client.CompareAndDelete(releaseCtx, key, token)
		})
	}, nil
}
