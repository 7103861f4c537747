package sequencer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linggong-dev/shift-dispatch/backend/internal/config"
)

// ErrShiftBusy 表示同一个班次的其他事件正在处理中
var ErrShiftBusy = errors.New("班次正在处理其他事件")

// ShiftLock 基于 redis 的按班次互斥锁。
// 同一个班次的邀约轮次与状态流转必须串行执行，
// 不同班次之间互不影响，锁的粒度因此是班次而不是全局。
type ShiftLock struct {
	cfg    *config.Config
	client *redis.Client
}

func NewShiftLock(cfg *config.Config, client *redis.Client) *ShiftLock {
	return &ShiftLock{
		cfg:    cfg,
		client: client,
	}
}

// WithLock 持有某个班次的锁执行 fn，锁被占用时返回 ErrShiftBusy。
// 锁带过期时间，持有者崩溃后锁会自动释放，不会永久卡死班次。
func (l *ShiftLock) WithLock(shiftID int64, fn func() error) error {
	key := fmt.Sprintf("shift_dispatch:lock:shift:%d", shiftID)
	expiration := time.Duration(l.cfg.Redis.ShiftLockExpiration) * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(l.cfg.Redis.OperationExpiration)*time.Second)
	defer cancel()

	ok, err := l.client.SetNX(ctx, key, 1, expiration).Result()
	if err != nil {
		return fmt.Errorf("无法获取班次锁: %w", err)
	}
	if !ok {
		return ErrShiftBusy
	}
	defer func() {
		delCtx, delCancel := context.WithTimeout(context.Background(), time.Duration(l.cfg.Redis.OperationExpiration)*time.Second)
		defer delCancel()
		_ = l.client.Del(delCtx, key).Err()
	}()

	return fn()
}
