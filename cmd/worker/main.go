package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/reviselabs/revise/internal/config"
	"github.com/reviselabs/revise/internal/db"
	"github.com/reviselabs/revise/internal/shortener"
	"github.com/reviselabs/revise/internal/store/rabbitmq"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	_ = godotenv.Load()

	logrus.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()

	gdb := db.Connect(cfg.DBDriver, cfg.DBDSN)
	svc := shortener.NewService(shortener.NewRepo(gdb))

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		logrus.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logrus.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	// args must match the publisher's declaration exactly
	if _, err = ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue + ".dlq",
	}); err != nil {
		logrus.Fatalf("queue declare: %v", err)
	}

	concurrency := workerConcurrency()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		logrus.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		logrus.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logrus.WithFields(logrus.Fields{
		"queue":       cfg.RabbitQueue,
		"concurrency": concurrency,
	}).Info("click worker started")

	// worker pool
	clicks := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range clicks {
				var m rabbitmq.ClickMessage
				if err := json.Unmarshal(d.Body, &m); err != nil || m.ShortCode == "" {
					logrus.WithField("worker", workerID).WithError(err).Warn("bad click message")
					_ = d.Nack(false, false)
					continue
				}

				if err := svc.RecordClicks(ctx, m.ShortCode, 1); err != nil {
					logrus.WithFields(logrus.Fields{
						"worker": workerID,
						"code":   m.ShortCode,
					}).WithError(err).Warn("record click failed")
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					logrus.WithField("worker", workerID).WithError(err).Warn("ack failed")
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			logrus.Info("worker shutting down")
			close(clicks)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				logrus.Warn("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			clicks <- d
		}
	}
}
