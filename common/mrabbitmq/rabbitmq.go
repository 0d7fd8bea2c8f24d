package mrabbitmq

import (
	"context"
	"errors"

	"github.com/dogma-project/dogma/common/mlog"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQConnection is a hub which deals with rabbitmq connections. It backs
// the replication commit-notification fanout (replication.Fanout), which
// publishes every commit to a single fanout exchange. It carries no
// forward-to-leader traffic.
type RabbitMQConnection struct {
	ConnectionStringSource string
	Conn                   *amqp.Connection
	Channel                *amqp.Channel
	Connected              bool
	Logger                 mlog.Logger
}

// Connect keeps a singleton connection with rabbitmq.
func (rc *RabbitMQConnection) Connect(ctx context.Context) error {
	rc.Logger.Info("Connecting on rabbitmq...")

	conn, err := amqp.DialConfig(rc.ConnectionStringSource, amqp.Config{})
	if err != nil {
		rc.Logger.Errorf("failed to connect on rabbitmq: %v", err)
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		rc.Logger.Errorf("failed to open channel on rabbitmq: %v", err)
		_ = conn.Close()

		return err
	}

	if !rc.healthCheck(ch) {
		_ = ch.Close()
		_ = conn.Close()

		rc.Connected = false

		err := errors.New("can't connect rabbitmq")
		rc.Logger.Errorf("RabbitMQ.HealthCheck %v", err)

		return err
	}

	rc.Logger.Info("Connected on rabbitmq ✅ \n")

	rc.Connected = true
	rc.Conn = conn
	rc.Channel = ch

	return nil
}

// GetChannel returns a pointer to the rabbitmq channel, initializing it if necessary.
func (rc *RabbitMQConnection) GetChannel(ctx context.Context) (*amqp.Channel, error) {
	if !rc.Connected || rc.Channel == nil || rc.Channel.IsClosed() {
		if err := rc.Connect(ctx); err != nil {
			rc.Logger.Infof("ERRCONECT %s", err)
			return nil, err
		}
	}

	return rc.Channel, nil
}

// Close tears down the channel and connection.
func (rc *RabbitMQConnection) Close() error {
	if rc.Channel != nil {
		if err := rc.Channel.Close(); err != nil {
			return err
		}
	}

	if rc.Conn != nil {
		return rc.Conn.Close()
	}

	return nil
}

// healthCheck declares the well-known health-check queue passively; a
// passive declare fails loudly if the broker is unreachable or misconfigured.
func (rc *RabbitMQConnection) healthCheck(ch *amqp.Channel) bool {
	_, err := ch.QueueDeclarePassive(
		"health_check_queue",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		rc.Logger.Errorf("rabbitmq health check queue declare failed: %v", err)
		return false
	}

	return true
}
