package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 4, 5, 6, 7, 891234567, time.UTC)
}

func leadDoc(id primitive.ObjectID, at time.Time, email string) bson.D {
	return bson.D{
		{Key: FieldID, Value: id},
		{Key: "email", Value: email},
		{Key: "status", Value: "new"},
		{Key: FieldCreatedAt, Value: primitive.NewDateTimeFromTime(at)},
		{Key: FieldUpdatedAt, Value: primitive.NewDateTimeFromTime(at)},
	}
}

func TestGatewayNotInitialized(t *testing.T) {
	g := NewGateway(nil)
	ctx := context.Background()

	_, err := g.Create(ctx, LeadsCollection, bson.M{"email": "a@b.com"})
	assert.Equal(t, CodeNotInitialized, CodeOf(err))
	_, err = g.GetByID(ctx, LeadsCollection, primitive.NewObjectID().Hex())
	assert.Equal(t, CodeNotInitialized, CodeOf(err))
	_, err = g.QueryByField(ctx, LeadsCollection, "status", "new", QueryOptions{})
	assert.Equal(t, CodeNotInitialized, CodeOf(err))
	assert.Equal(t, CodeNotInitialized, CodeOf(g.Delete(ctx, LeadsCollection, primitive.NewObjectID().Hex())))
	assert.Equal(t, CodeNotInitialized, CodeOf(g.Ping(ctx)))
}

func TestGateway(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	ns := "leads_test." + LeadsCollection

	mt.Run("create assigns id and timestamps", func(mt *mtest.T) {
		g := NewGateway(mt.DB, WithClock(fixedClock))
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		doc, err := g.Create(context.Background(), LeadsCollection, bson.M{"email": "jane@x.com"})
		require.NoError(mt, err)
		assert.Len(mt, doc.ID, 24)
		assert.Equal(mt, fixedClock().Truncate(time.Millisecond), doc.CreatedAt)
		assert.Equal(mt, doc.CreatedAt, doc.UpdatedAt)
		assert.Equal(mt, "jane@x.com", doc.Fields["email"])
	})

	mt.Run("create duplicate key is invalid argument", func(mt *mtest.T) {
		g := NewGateway(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key"}))

		_, err := g.Create(context.Background(), LeadsCollection, bson.M{"email": "jane@x.com"})
		assert.Equal(mt, CodeInvalidArgument, CodeOf(err))
	})

	mt.Run("get by id", func(mt *mtest.T) {
		g := NewGateway(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, leadDoc(id, fixedClock(), "jane@x.com")))

		doc, err := g.GetByID(context.Background(), LeadsCollection, id.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), doc.ID)
		assert.Equal(mt, "jane@x.com", doc.Fields["email"])
		assert.False(mt, doc.CreatedAt.IsZero())
	})

	mt.Run("get by id missing", func(mt *mtest.T) {
		g := NewGateway(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := g.GetByID(context.Background(), LeadsCollection, primitive.NewObjectID().Hex())
		assert.Equal(mt, CodeNotFound, CodeOf(err))
	})

	mt.Run("get by id permission denied", func(mt *mtest.T) {
		g := NewGateway(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Name:    "Unauthorized",
			Message: "not authorized on leads_test",
		}))

		_, err := g.GetByID(context.Background(), LeadsCollection, primitive.NewObjectID().Hex())
		assert.Equal(mt, CodePermissionDenied, CodeOf(err))
	})

	mt.Run("get by malformed id", func(mt *mtest.T) {
		g := NewGateway(mt.DB)
		_, err := g.GetByID(context.Background(), LeadsCollection, "123")
		assert.Equal(mt, CodeInvalidArgument, CodeOf(err))
	})

	mt.Run("update returns document after", func(mt *mtest.T) {
		g := NewGateway(mt.DB, WithClock(fixedClock))
		id := primitive.NewObjectID()
		updated := leadDoc(id, fixedClock(), "jane@x.com")
		updated[2].Value = "contacted"
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: updated}})

		doc, err := g.Update(context.Background(), LeadsCollection, id.Hex(), bson.M{"status": "contacted"})
		require.NoError(mt, err)
		assert.Equal(mt, "contacted", doc.Fields["status"])
	})

	mt.Run("update missing", func(mt *mtest.T) {
		g := NewGateway(mt.DB)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}})

		_, err := g.Update(context.Background(), LeadsCollection, primitive.NewObjectID().Hex(), bson.M{"status": "contacted"})
		assert.Equal(mt, CodeNotFound, CodeOf(err))
	})

	mt.Run("delete", func(mt *mtest.T) {
		g := NewGateway(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		assert.NoError(mt, g.Delete(context.Background(), LeadsCollection, primitive.NewObjectID().Hex()))
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		g := NewGateway(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		err := g.Delete(context.Background(), LeadsCollection, primitive.NewObjectID().Hex())
		assert.Equal(mt, CodeNotFound, CodeOf(err))
	})

	mt.Run("query full page sets cursor", func(mt *mtest.T) {
		g := NewGateway(mt.DB)
		at := fixedClock()
		second := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			leadDoc(primitive.NewObjectID(), at, "a@x.com"),
			leadDoc(second, at.Add(-time.Minute), "b@x.com"),
		))

		page, err := g.QueryByField(context.Background(), LeadsCollection, "status", "new", QueryOptions{Limit: 2})
		require.NoError(mt, err)
		require.Len(mt, page.Items, 2)
		assert.True(mt, page.HasMore)
		require.NotEmpty(mt, page.NextCursor)

		_, cursorID, err := decodeCursor(page.NextCursor)
		require.NoError(mt, err)
		assert.Equal(mt, second.Hex(), cursorID)
	})

	mt.Run("query short page", func(mt *mtest.T) {
		g := NewGateway(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			leadDoc(primitive.NewObjectID(), fixedClock(), "a@x.com"),
		))

		page, err := g.QueryByField(context.Background(), LeadsCollection, "status", "new", QueryOptions{Limit: 5})
		require.NoError(mt, err)
		assert.Len(mt, page.Items, 1)
		assert.False(mt, page.HasMore)
		assert.Empty(mt, page.NextCursor)
	})

	mt.Run("query bad cursor", func(mt *mtest.T) {
		g := NewGateway(mt.DB)
		_, err := g.QueryByField(context.Background(), LeadsCollection, "status", "new", QueryOptions{Cursor: "%%"})
		assert.Equal(mt, CodeInvalidArgument, CodeOf(err))
	})
}

func TestConnectivityMonitor(t *testing.T) {
	m := NewConnectivityMonitor()
	assert.True(t, m.IsOnline())

	sm := m.ServerMonitor()
	sm.ServerHeartbeatFailed(nil)
	assert.False(t, m.IsOnline())
	sm.ServerHeartbeatSucceeded(nil)
	assert.True(t, m.IsOnline())

	var missing *ConnectivityMonitor
	assert.True(t, missing.IsOnline())
}

func TestGatewayInitializeAndStatus(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("existing collections only get indexes", func(mt *mtest.T) {
		g := NewGateway(mt.DB)
		listNS := mt.DB.Name() + ".$cmd.listCollections"
		batch := make([]bson.D, 0, len(Collections))
		for _, name := range Collections {
			batch = append(batch, bson.D{{Key: "name", Value: name}, {Key: "type", Value: "collection"}})
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, listNS, mtest.FirstBatch, batch...))
		for range Collections {
			mt.AddMockResponses(mtest.CreateSuccessResponse())
		}

		require.NoError(mt, g.InitializeCollections(context.Background()))
	})

	mt.Run("list failure is reported", func(mt *mtest.T) {
		g := NewGateway(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Message: "unauthorized", Name: "Unauthorized"}))

		assert.Error(mt, g.InitializeCollections(context.Background()))
	})

	mt.Run("status counts every collection", func(mt *mtest.T) {
		g := NewGateway(mt.DB)
		for range Collections {
			mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int64(3)}))
		}

		status, err := g.Status(context.Background())
		require.NoError(mt, err)
		for _, name := range Collections {
			entry := status[name].(map[string]interface{})
			assert.EqualValues(mt, 3, entry["count"])
		}
	})
}
