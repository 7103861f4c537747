package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/linggong-dev/shift-dispatch/backend/internal/config"
	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
)

const (
	// NotificationQueue 通知队列，由 notify 进程消费并发送邮件
	NotificationQueue = "notification_queue"
	// ShiftCycleQueue 班次邀约轮次队列，由 dispatch 进程消费
	ShiftCycleQueue = "shift_cycle_queue"
	// OfferTimeoutWaitQueue 响应窗口等待队列，消息带 TTL，没有消费者
	OfferTimeoutWaitQueue = "offer_timeout_wait"
	// OfferTimeoutQueue 到期队列，等待队列里的消息过期后经死信交换机进入这里
	OfferTimeoutQueue = "offer_timeout_queue"

	timeoutExchange = "offer_timeout_dlx"
)

// Declare 声明本系统用到的全部队列。
// 响应窗口的倒计时完全交给 RabbitMQ：邀约发出时往等待队列发一条
// 带队列级 TTL 的消息，过期后由死信交换机转投到期队列，
// dispatch 进程消费到期队列即可，进程内不需要任何定时器。
func Declare(ch *amqp.Channel, responseWindow int) error {
	if _, err := ch.QueueDeclare(NotificationQueue, true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(ShiftCycleQueue, true, false, false, false, nil); err != nil {
		return err
	}

	if err := ch.ExchangeDeclare(timeoutExchange, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(OfferTimeoutQueue, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(OfferTimeoutQueue, OfferTimeoutQueue, timeoutExchange, false, nil); err != nil {
		return err
	}

	_, err := ch.QueueDeclare(OfferTimeoutWaitQueue, true, false, false, false, amqp.Table{
		"x-message-ttl":             int32(responseWindow) * 1000,
		"x-dead-letter-exchange":    timeoutExchange,
		"x-dead-letter-routing-key": OfferTimeoutQueue,
	})
	return err
}

// Publisher 封装发消息的细节，发布超时由配置控制
type Publisher struct {
	cfg *config.Config
	ch  *amqp.Channel
}

func NewPublisher(cfg *config.Config, ch *amqp.Channel) *Publisher {
	return &Publisher{
		cfg: cfg,
		ch:  ch,
	}
}

func (p *Publisher) publish(queueName string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(p.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(ctx,
		"",        // exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         data,
			DeliveryMode: amqp.Persistent,
		},
	)
}

// PublishNotification 投递一条通知消息
func (p *Publisher) PublishNotification(message *domain.NotificationMessage) error {
	return p.publish(NotificationQueue, message)
}

// PublishCycle 请求对某个班次执行一轮邀约
func (p *Publisher) PublishCycle(shiftID int64) error {
	return p.publish(ShiftCycleQueue, &domain.CycleMessage{ShiftID: shiftID})
}

// PublishTimeout 为新发出的邀约启动响应窗口倒计时
func (p *Publisher) PublishTimeout(assignmentID int64) error {
	data, err := json.Marshal(&domain.TimeoutMessage{AssignmentID: assignmentID})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(p.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(ctx, "", OfferTimeoutWaitQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp.Persistent,
	})
}
