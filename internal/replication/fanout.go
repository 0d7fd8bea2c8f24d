package replication

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dogma-project/dogma/common"
	cn "github.com/dogma-project/dogma/common/constant"
	"github.com/dogma-project/dogma/common/mrabbitmq"
)

// commitNotification is published once per successful commit so that
// followers running as separate processes from the leader's watch service
// learn of new revisions without polling the replication log directly.
type commitNotification struct {
	Project    string `json:"project"`
	Repository string `json:"repository"`
	Revision   int32  `json:"revision"`
}

// Fanout publishes commit notifications to a per-repository-independent
// exchange, and lets followers bind their own queue to learn of new head
// revisions as they are applied.
type Fanout struct {
	conn     *mrabbitmq.RabbitMQConnection
	exchange string
}

// NewFanout builds a Fanout over an already-configured connection.
func NewFanout(conn *mrabbitmq.RabbitMQConnection, exchange string) *Fanout {
	return &Fanout{conn: conn, exchange: exchange}
}

// NotifyCommit declares the fanout exchange (idempotent) and publishes one commit
// notification. It satisfies repo.CommitNotifier.
func (f *Fanout) NotifyCommit(project, repository string, newRevision int32) {
	ctx := context.Background()

	ch, err := f.conn.GetChannel(ctx)
	if err != nil {
		return
	}

	body, err := json.Marshal(commitNotification{Project: project, Repository: repository, Revision: newRevision})
	if err != nil {
		return
	}

	if err := ch.ExchangeDeclare(f.exchange, "fanout", true, false, false, false, nil); err != nil {
		return
	}

	_ = ch.PublishWithContext(ctx, f.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// Subscribe opens a consumer bound to an exclusive queue on the fanout
// exchange, delivering a decoded notification to handle for every message
// until ctx is cancelled.
func (f *Fanout) Subscribe(ctx context.Context, handle func(project, repository string, revision int32)) error {
	ch, err := f.conn.GetChannel(ctx)
	if err != nil {
		return common.ValidateBusinessError(cn.ErrReplicationDown, "", err.Error())
	}

	if err := ch.ExchangeDeclare(f.exchange, "fanout", true, false, false, false, nil); err != nil {
		return common.ValidateBusinessError(cn.ErrReplicationDown, "", err.Error())
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return common.ValidateBusinessError(cn.ErrReplicationDown, "", err.Error())
	}

	if err := ch.QueueBind(q.Name, "", f.exchange, false, nil); err != nil {
		return common.ValidateBusinessError(cn.ErrReplicationDown, "", err.Error())
	}

	deliveries, err := ch.ConsumeWithContext(ctx, q.Name, "", true, true, false, false, nil)
	if err != nil {
		return common.ValidateBusinessError(cn.ErrReplicationDown, "", err.Error())
	}

	go func() {
		for d := range deliveries {
			var n commitNotification
			if err := json.Unmarshal(d.Body, &n); err != nil {
				continue
			}

			handle(n.Project, n.Repository, n.Revision)
		}
	}()

	return nil
}
