package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/BerniceZTT/leads_end/metrics"
)

const (
	// 集合名
	LeadsCollection      = "leads"
	NewsletterCollection = "newsletter_subscribers"
	EventLogsCollection  = "event_logs"
)

// Collections 启动时需要确保存在的集合
var Collections = []string{
	LeadsCollection,
	NewsletterCollection,
	EventLogsCollection,
}

// Option 存储构造选项
type Option func(*storeOptions)

type storeOptions struct {
	now    func() time.Time
	logger zerolog.Logger
}

// WithClock 替换时间源
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) { o.now = now }
}

// WithLogger 设置日志
func WithLogger(logger zerolog.Logger) Option {
	return func(o *storeOptions) { o.logger = logger }
}

func buildOptions(opts []Option) storeOptions {
	o := storeOptions{now: time.Now, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Connect 连接MongoDB并检查可用性
func Connect(ctx context.Context, uri, dbName string, monitor *ConnectivityMonitor) (*mongo.Client, *mongo.Database, error) {
	// 设置连接超时
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	if monitor != nil {
		clientOptions.SetServerMonitor(monitor.ServerMonitor())
	}

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("连接MongoDB失败: %w", err)
	}

	// 检查连接
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping MongoDB失败: %w", err)
	}

	return client, client.Database(dbName), nil
}

// Gateway MongoDB 持久化网关
type Gateway struct {
	db     *mongo.Database
	now    func() time.Time
	logger zerolog.Logger
}

// NewGateway 创建网关。db 为 nil 时所有操作直接返回 NotInitialized
func NewGateway(db *mongo.Database, opts ...Option) *Gateway {
	o := buildOptions(opts)
	return &Gateway{db: db, now: o.now, logger: o.logger}
}

func (g *Gateway) collection(op, name string) (*mongo.Collection, error) {
	if g == nil || g.db == nil {
		return nil, newStoreError(CodeNotInitialized, op, name, nil)
	}
	return g.db.Collection(name), nil
}

func (g *Gateway) timestamp() time.Time {
	// MongoDB 时间精度为毫秒
	return g.now().UTC().Truncate(time.Millisecond)
}

func (g *Gateway) observe(op, collection string, start time.Time, err error) {
	metrics.ObserveStoreOperation(op, collection, time.Since(start))
	event := g.logger.Debug()
	if err != nil {
		event = g.logger.Warn().Err(err)
	}
	event.
		Str("operation", op).
		Str("collection", collection).
		Dur("elapsed", time.Since(start)).
		Msg("数据库操作")
}

// Create 写入新文档，分配 ID 与创建/更新时间
func (g *Gateway) Create(ctx context.Context, collection string, doc interface{}) (created Document, err error) {
	const op = "create"
	coll, err := g.collection(op, collection)
	if err != nil {
		return Document{}, err
	}

	fields, err := toFields(doc)
	if err != nil {
		return Document{}, newStoreError(CodeInvalidArgument, op, collection, err)
	}

	now := g.timestamp()
	id := primitive.NewObjectID()
	fields[FieldID] = id
	fields[FieldCreatedAt] = now
	fields[FieldUpdatedAt] = now

	start := time.Now()
	defer func() { g.observe(op, collection, start, err) }()

	if _, err := coll.InsertOne(ctx, fields); err != nil {
		return Document{}, normalizeError(op, collection, err)
	}
	return toDocument(fields), nil
}

// GetByID 按 ID 读取文档
func (g *Gateway) GetByID(ctx context.Context, collection, id string) (doc Document, err error) {
	const op = "getById"
	coll, err := g.collection(op, collection)
	if err != nil {
		return Document{}, err
	}
	oid, err := parseID(op, collection, id)
	if err != nil {
		return Document{}, err
	}

	start := time.Now()
	defer func() { g.observe(op, collection, start, err) }()

	var raw bson.M
	if err := coll.FindOne(ctx, bson.M{FieldID: oid}).Decode(&raw); err != nil {
		return Document{}, normalizeError(op, collection, err)
	}
	return toDocument(raw), nil
}

// Update 局部更新，只刷新更新时间，返回更新后的文档
func (g *Gateway) Update(ctx context.Context, collection, id string, patch interface{}) (doc Document, err error) {
	const op = "update"
	coll, err := g.collection(op, collection)
	if err != nil {
		return Document{}, err
	}
	oid, err := parseID(op, collection, id)
	if err != nil {
		return Document{}, err
	}

	fields, err := toFields(patch)
	if err != nil {
		return Document{}, newStoreError(CodeInvalidArgument, op, collection, err)
	}
	delete(fields, FieldID)
	delete(fields, FieldCreatedAt)
	fields[FieldUpdatedAt] = g.timestamp()

	start := time.Now()
	defer func() { g.observe(op, collection, start, err) }()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var raw bson.M
	err = coll.FindOneAndUpdate(ctx, bson.M{FieldID: oid}, bson.M{"$set": fields}, opts).Decode(&raw)
	if err != nil {
		return Document{}, normalizeError(op, collection, err)
	}
	return toDocument(raw), nil
}

// Delete 物理删除文档
func (g *Gateway) Delete(ctx context.Context, collection, id string) (err error) {
	const op = "delete"
	coll, err := g.collection(op, collection)
	if err != nil {
		return err
	}
	oid, err := parseID(op, collection, id)
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() { g.observe(op, collection, start, err) }()

	result, err := coll.DeleteOne(ctx, bson.M{FieldID: oid})
	if err != nil {
		return normalizeError(op, collection, err)
	}
	if result.DeletedCount == 0 {
		return newStoreError(CodeNotFound, op, collection, mongo.ErrNoDocuments)
	}
	return nil
}

// QueryByField 按字段等值查询并游标分页
func (g *Gateway) QueryByField(ctx context.Context, collection, field string, value interface{}, opts QueryOptions) (page Page, err error) {
	const op = "query"
	coll, err := g.collection(op, collection)
	if err != nil {
		return Page{}, err
	}
	opts = opts.withDefaults()

	filter := bson.M{}
	for k, v := range opts.Filters {
		filter[k] = v
	}
	if field != "" {
		filter[field] = value
	}

	if opts.Cursor != "" {
		cursorValue, cursorID, err := decodeCursor(opts.Cursor)
		if err != nil {
			return Page{}, newStoreError(CodeInvalidArgument, op, collection, err)
		}
		oid, err := parseID(op, collection, cursorID)
		if err != nil {
			return Page{}, err
		}
		cmp := "$lt"
		if opts.Direction == Ascending {
			cmp = "$gt"
		}
		filter["$or"] = bson.A{
			bson.M{opts.OrderBy: bson.M{cmp: cursorValue}},
			bson.M{opts.OrderBy: cursorValue, FieldID: bson.M{cmp: oid}},
		}
	}

	start := time.Now()
	defer func() { g.observe(op, collection, start, err) }()

	findOpts := options.Find().
		SetSort(bson.D{{Key: opts.OrderBy, Value: int(opts.Direction)}, {Key: FieldID, Value: int(opts.Direction)}}).
		SetLimit(int64(opts.Limit))

	cursor, err := coll.Find(ctx, filter, findOpts)
	if err != nil {
		return Page{}, normalizeError(op, collection, err)
	}
	defer cursor.Close(ctx)

	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return Page{}, normalizeError(op, collection, err)
	}

	items := make([]Document, 0, len(raws))
	for _, raw := range raws {
		items = append(items, toDocument(raw))
	}
	return buildPage(items, opts)
}

// Ping 检查数据库连通性
func (g *Gateway) Ping(ctx context.Context) error {
	if g == nil || g.db == nil {
		return newStoreError(CodeNotInitialized, "ping", "", nil)
	}
	return normalizeError("ping", "", g.db.Client().Ping(ctx, readpref.Primary()))
}

// InitializeCollections 初始化数据库集合与索引
func (g *Gateway) InitializeCollections(ctx context.Context) error {
	if g == nil || g.db == nil {
		return newStoreError(CodeNotInitialized, "init", "", nil)
	}

	existing, err := g.db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("检查集合失败: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}

	for _, name := range Collections {
		if have[name] {
			g.logger.Info().Str("collection", name).Msg("集合已存在")
			continue
		}
		if err := g.db.CreateCollection(ctx, name); err != nil {
			return fmt.Errorf("创建集合失败: %w", err)
		}
		g.logger.Info().Str("collection", name).Msg("创建集合成功")
	}

	// 订阅者邮箱索引不设为唯一：去重依赖写入前查询
	indexes := map[string][]mongo.IndexModel{
		LeadsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: FieldCreatedAt, Value: -1}}},
		},
		NewsletterCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}, {Key: "active", Value: 1}}},
		},
		EventLogsCollection: {
			{Keys: bson.D{{Key: FieldCreatedAt, Value: -1}}},
		},
	}
	for name, models := range indexes {
		if _, err := g.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("创建索引失败 %s: %w", name, err)
		}
	}
	return nil
}

// Status 获取各集合的文档数量
func (g *Gateway) Status(ctx context.Context) (map[string]interface{}, error) {
	if g == nil || g.db == nil {
		return nil, newStoreError(CodeNotInitialized, "status", "", nil)
	}

	result := make(map[string]interface{})
	for _, name := range Collections {
		count, err := g.db.Collection(name).EstimatedDocumentCount(ctx)
		if err != nil {
			g.logger.Error().Err(err).Str("collection", name).Msg("获取集合计数失败")
			result[name] = map[string]interface{}{"count": 0, "error": err.Error()}
			continue
		}
		result[name] = map[string]interface{}{"count": count}
	}
	return result, nil
}

func parseID(op, collection, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, newStoreError(CodeInvalidArgument, op, collection, fmt.Errorf("无效的ID格式 %q: %w", id, err))
	}
	return oid, nil
}
