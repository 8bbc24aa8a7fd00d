package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// StartThumbnailWorker connects to RabbitMQ, declares the
// thumbnail.generation queue (durable), and starts consuming jobs. The
// function runs a reconnect loop with exponential backoff and never
// returns; processing errors are logged and the offending message is
// rejected without requeue so a poison job cannot loop forever.
func StartThumbnailWorker(logger *zap.Logger) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			logger.Warn("thumbnail worker dial failed",
				zap.Error(err), zap.Duration("retry_in", backoff))
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(conn, logger); err != nil {
			logger.Warn("thumbnail worker consume loop ended", zap.Error(err))
			_ = conn.Close()
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, logger *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		logger.Warn("thumbnail worker set QoS failed", zap.Error(err))
	}

	if _, err := ch.QueueDeclare(thumbnailQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(thumbnailQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleJob(d.Body, logger); err != nil {
			logger.Warn("thumbnail job failed", zap.Error(err))
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// handleJob writes a placeholder thumbnail next to the video. Real frame
// extraction needs ffmpeg on the host; the placeholder keeps the pipeline
// observable without it.
func handleJob(body []byte, logger *zap.Logger) error {
	var ev ThumbnailJobEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.FilePath == "" {
		return errors.New("event missing file_path")
	}

	thumbPath := strings.TrimSuffix(ev.FilePath, filepath.Ext(ev.FilePath)) + ".thumb.jpg"
	if err := os.MkdirAll(filepath.Dir(thumbPath), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(thumbPath, []byte{}, 0o644); err != nil {
		return fmt.Errorf("write thumbnail: %w", err)
	}

	logger.Info("thumbnail generated",
		zap.Uint64("movie_id", ev.MovieID),
		zap.String("path", thumbPath))
	return nil
}
