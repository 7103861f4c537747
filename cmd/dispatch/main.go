package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/linggong-dev/shift-dispatch/backend/internal/config"
	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
	"github.com/linggong-dev/shift-dispatch/backend/internal/queue"
	"github.com/linggong-dev/shift-dispatch/backend/internal/repository"
	"github.com/linggong-dev/shift-dispatch/backend/internal/sequencer"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 加载配置
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法加载配置文件", "error", err)
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer pingCancel()

	if err := dbpool.PingContext(pingCtx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	/**********************************************
	 * 创建 repository
	 **********************************************/
	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 连接 RabbitMQ
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", "error", err)
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法建立通道", "error", err)
		return
	}
	defer ch.Close()

	if err := queue.Declare(ch, cfg.Offer.ResponseWindow); err != nil {
		logger.Error("无法声明队列", "error", err)
		return
	}

	/**********************************************
	 * 连接 redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	/**********************************************
	 * 创建 sequencer 与班次锁
	 **********************************************/
	publisher := queue.NewPublisher(cfg, ch)
	seq := sequencer.NewSequencer(cfg, logger, repo, publisher)
	shiftLock := sequencer.NewShiftLock(cfg, rdb)

	/**********************************************
	 * 消费邀约轮次队列与到期队列
	 **********************************************/
	cycleMsgs, err := ch.Consume(queue.ShiftCycleQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.Error("无法消费邀约轮次队列", "error", err)
		os.Exit(1)
	}
	timeoutMsgs, err := ch.Consume(queue.OfferTimeoutQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.Error("无法消费到期队列", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-cycleMsgs:
				handleCycleMessage(logger, seq, shiftLock, msg)
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-timeoutMsgs:
				handleTimeoutMessage(logger, seq, shiftLock, msg)
			}
		}
	}()

	logger.Info("等待消息...（按 CTRL+C 退出）")
	<-sigChan

	slog.Info("正在关闭 dispatch worker...")
	cancel()
	wg.Wait()
	slog.Info("dispatch worker 已成功关闭")
}

// handleCycleMessage 在班次锁的保护下执行一轮邀约。
// 锁被占用说明同一班次的其他事件正在处理，重新入队稍后再试。
func handleCycleMessage(logger *slog.Logger, seq *sequencer.Sequencer, shiftLock *sequencer.ShiftLock, msg amqp.Delivery) {
	cycle := domain.CycleMessage{}
	if err := json.Unmarshal(msg.Body, &cycle); err != nil {
		logger.Error("邀约轮次消息反序列化失败", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	err := shiftLock.WithLock(cycle.ShiftID, func() error {
		return seq.RunCycle(cycle.ShiftID)
	})
	if err != nil {
		switch {
		case errors.Is(err, sequencer.ErrShiftBusy):
			logger.Info("班次锁被占用，消息重新入队", "shift_id", cycle.ShiftID)
		default:
			logger.Error("邀约轮次执行失败", "shift_id", cycle.ShiftID, "error", err)
		}
		_ = msg.Nack(false, true)
		return
	}

	_ = msg.Ack(false)
}

// handleTimeoutMessage 处理响应窗口到期事件
func handleTimeoutMessage(logger *slog.Logger, seq *sequencer.Sequencer, shiftLock *sequencer.ShiftLock, msg amqp.Delivery) {
	timeout := domain.TimeoutMessage{}
	if err := json.Unmarshal(msg.Body, &timeout); err != nil {
		logger.Error("到期消息反序列化失败", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	// 先查出邀约对应的班次再上锁，
	// 邀约不存在属于数据异常，丢弃消息避免无限重试
	assignment, err := seq.AssignmentForTimeout(timeout.AssignmentID)
	if err != nil {
		logger.Error("无法获取到期邀约", "assignment_id", timeout.AssignmentID, "error", err)
		_ = msg.Nack(false, false)
		return
	}

	err = shiftLock.WithLock(assignment.ShiftID, func() error {
		return seq.HandleTimeout(timeout.AssignmentID)
	})
	if err != nil {
		switch {
		case errors.Is(err, sequencer.ErrShiftBusy):
			logger.Info("班次锁被占用，消息重新入队", "assignment_id", timeout.AssignmentID)
		default:
			logger.Error("到期事件处理失败", "assignment_id", timeout.AssignmentID, "error", err)
		}
		_ = msg.Nack(false, true)
		return
	}

	_ = msg.Ack(false)
}
