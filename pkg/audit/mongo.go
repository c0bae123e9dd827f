package audit

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "github.com/vsundar/flowtrace/pkg/errors"
)

// auditCollection is the collection audit documents live in.
const auditCollection = "queue_audit"

// MongoStore is the document-store alternative to Postgres, one document
// per (manager, queue, audit day).
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// ConnectMongo connects to the given URI and uses database for audit data.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "connect audit store")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "ping audit store")
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(auditCollection),
	}, nil
}

// Upsert writes one document per record. Blank timestamp fields are left
// out of the update so earlier values for the same day survive.
func (s *MongoStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(records))
	for _, r := range records {
		set := bson.M{"audited_at": r.AuditedAt}
		for field, value := range map[string]string{
			"last_get_date": r.LastGetDate,
			"last_get_time": r.LastGetTime,
			"last_put_date": r.LastPutDate,
			"last_put_time": r.LastPutTime,
		} {
			if value != "" {
				set[field] = value
			}
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{
				"queue_manager": r.Manager,
				"queue_name":    r.Queue,
				"audit_day":     r.AuditDay(),
			}).
			SetUpdate(bson.M{"$set": set}).
			SetUpsert(true))
	}

	if _, err := s.coll.BulkWrite(ctx, models); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStore, err, "upsert audit records")
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() {
	_ = s.client.Disconnect(context.Background())
}

// Ensure MongoStore implements Store.
var _ Store = (*MongoStore)(nil)
