package project

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/dogma-project/dogma/common"
	cn "github.com/dogma-project/dogma/common/constant"
	"github.com/dogma-project/dogma/common/mmongo"
)

// MongoAuditMirror mirrors project and repository lifecycle events into a
// MongoDB collection, giving operators an external, queryable audit trail
// independent of the object store itself.
type MongoAuditMirror struct {
	conn       *mmongo.MongoConnection
	collection string
}

// NewMongoAuditMirror builds a mirror over an already-configured connection.
func NewMongoAuditMirror(conn *mmongo.MongoConnection, collection string) *MongoAuditMirror {
	if collection == "" {
		collection = "audit_events"
	}

	return &MongoAuditMirror{conn: conn, collection: collection}
}

// RecordEvent inserts one audit document. It satisfies AuditMirror.
func (m *MongoAuditMirror) RecordEvent(ctx context.Context, kind, project, repository string, at time.Time) error {
	client, err := m.conn.GetDB(ctx)
	if err != nil {
		return common.ValidateBusinessError(cn.ErrStorage, "", err.Error())
	}

	coll := client.Database(m.conn.Database).Collection(m.collection)

	_, err = coll.InsertOne(ctx, bson.M{
		"kind":       kind,
		"project":    project,
		"repository": repository,
		"at":         at,
	})
	if err != nil {
		return common.ValidateBusinessError(cn.ErrStorage, "", err.Error())
	}

	return nil
}
