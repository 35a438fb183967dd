package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore 进程内存储，行为与 Gateway 保持一致，用于本地开发与测试
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[string][]byte
	now    func() time.Time
	logger zerolog.Logger
}

// NewMemoryStore 创建内存存储
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{
		data:   make(map[string]map[string][]byte),
		now:    o.now,
		logger: o.logger,
	}
}

func (m *MemoryStore) timestamp() time.Time {
	return m.now().UTC().Truncate(time.Millisecond)
}

func (m *MemoryStore) load(raw []byte) (Document, error) {
	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return Document{}, err
	}
	return toDocument(fields), nil
}

// Create 写入新文档
func (m *MemoryStore) Create(ctx context.Context, collection string, doc interface{}) (Document, error) {
	const op = "create"
	if err := ctx.Err(); err != nil {
		return Document{}, newStoreError(CodeUnavailable, op, collection, err)
	}
	fields, err := toFields(doc)
	if err != nil {
		return Document{}, newStoreError(CodeInvalidArgument, op, collection, err)
	}

	now := m.timestamp()
	id := primitive.NewObjectID()
	fields[FieldID] = id
	fields[FieldCreatedAt] = now
	fields[FieldUpdatedAt] = now

	raw, err := bson.Marshal(fields)
	if err != nil {
		return Document{}, newStoreError(CodeInvalidArgument, op, collection, err)
	}

	m.mu.Lock()
	if m.data[collection] == nil {
		m.data[collection] = make(map[string][]byte)
	}
	m.data[collection][id.Hex()] = raw
	m.mu.Unlock()

	m.logger.Debug().Str("collection", collection).Str("id", id.Hex()).Msg("内存存储写入")
	return m.load(raw)
}

// GetByID 按 ID 读取
func (m *MemoryStore) GetByID(ctx context.Context, collection, id string) (Document, error) {
	const op = "getById"
	if err := ctx.Err(); err != nil {
		return Document{}, newStoreError(CodeUnavailable, op, collection, err)
	}
	if _, err := parseID(op, collection, id); err != nil {
		return Document{}, err
	}

	m.mu.RLock()
	raw, ok := m.data[collection][id]
	m.mu.RUnlock()
	if !ok {
		return Document{}, newStoreError(CodeNotFound, op, collection, nil)
	}
	return m.load(raw)
}

// Update 局部更新
func (m *MemoryStore) Update(ctx context.Context, collection, id string, patch interface{}) (Document, error) {
	const op = "update"
	if err := ctx.Err(); err != nil {
		return Document{}, newStoreError(CodeUnavailable, op, collection, err)
	}
	if _, err := parseID(op, collection, id); err != nil {
		return Document{}, err
	}
	changes, err := toFields(patch)
	if err != nil {
		return Document{}, newStoreError(CodeInvalidArgument, op, collection, err)
	}
	delete(changes, FieldID)
	delete(changes, FieldCreatedAt)
	changes[FieldUpdatedAt] = m.timestamp()

	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.data[collection][id]
	if !ok {
		return Document{}, newStoreError(CodeNotFound, op, collection, nil)
	}
	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return Document{}, newStoreError(CodeUnknown, op, collection, err)
	}
	for k, v := range changes {
		fields[k] = v
	}
	updated, err := bson.Marshal(fields)
	if err != nil {
		return Document{}, newStoreError(CodeInvalidArgument, op, collection, err)
	}
	m.data[collection][id] = updated
	return m.load(updated)
}

// Delete 删除
func (m *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	const op = "delete"
	if err := ctx.Err(); err != nil {
		return newStoreError(CodeUnavailable, op, collection, err)
	}
	if _, err := parseID(op, collection, id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[collection][id]; !ok {
		return newStoreError(CodeNotFound, op, collection, nil)
	}
	delete(m.data[collection], id)
	return nil
}

// QueryByField 等值查询并分页，排序与游标规则同 Gateway
func (m *MemoryStore) QueryByField(ctx context.Context, collection, field string, value interface{}, opts QueryOptions) (Page, error) {
	const op = "query"
	if err := ctx.Err(); err != nil {
		return Page{}, newStoreError(CodeUnavailable, op, collection, err)
	}
	opts = opts.withDefaults()

	want := make(map[string]interface{}, len(opts.Filters)+1)
	for k, v := range opts.Filters {
		want[k] = canonical(v)
	}
	if field != "" {
		want[field] = canonical(value)
	}

	var (
		hasCursor   bool
		cursorValue interface{}
		cursorID    string
	)
	if opts.Cursor != "" {
		v, id, err := decodeCursor(opts.Cursor)
		if err != nil {
			return Page{}, newStoreError(CodeInvalidArgument, op, collection, err)
		}
		if _, err := parseID(op, collection, id); err != nil {
			return Page{}, err
		}
		hasCursor, cursorValue, cursorID = true, normalizeValue(v), id
	}

	m.mu.RLock()
	docs := make([]Document, 0, len(m.data[collection]))
	for _, raw := range m.data[collection] {
		doc, err := m.load(raw)
		if err != nil {
			m.mu.RUnlock()
			return Page{}, newStoreError(CodeUnknown, op, collection, err)
		}
		if matches(doc, want) {
			docs = append(docs, doc)
		}
	}
	m.mu.RUnlock()

	dir := int(opts.Direction)
	sort.Slice(docs, func(i, j int) bool {
		c := compareValues(orderValue(docs[i], opts.OrderBy), orderValue(docs[j], opts.OrderBy))
		if c == 0 {
			c = strings.Compare(docs[i].ID, docs[j].ID)
		}
		return c*dir < 0
	})

	items := make([]Document, 0, opts.Limit)
	for _, doc := range docs {
		if hasCursor {
			c := compareValues(orderValue(doc, opts.OrderBy), cursorValue)
			if c == 0 {
				c = strings.Compare(doc.ID, cursorID)
			}
			if c*dir <= 0 {
				continue
			}
		}
		items = append(items, doc)
		if len(items) == opts.Limit {
			break
		}
	}
	return buildPage(items, opts)
}

// Ping 内存存储总是可用
func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Status 各集合的文档数量
func (m *MemoryStore) Status(ctx context.Context) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, newStoreError(CodeUnavailable, "status", "", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]interface{}, len(Collections))
	for _, name := range Collections {
		result[name] = map[string]interface{}{"count": int64(len(m.data[name]))}
	}
	return result, nil
}

// IsOnline 内存存储总是在线
func (m *MemoryStore) IsOnline() bool {
	return true
}

func matches(doc Document, want map[string]interface{}) bool {
	for k, v := range want {
		var got interface{}
		if k == FieldID {
			got = doc.ID
		} else {
			got = orderValue(doc, k)
		}
		if compareValues(got, v) != 0 {
			return false
		}
	}
	return true
}

var errIncomparable = errors.New("incomparable")

// compareValues 比较两个归一化后的值；类型不同按类型序比较
func compareValues(a, b interface{}) int {
	if c, err := compareSameKind(a, b); err == nil {
		return c
	}
	return rank(a) - rank(b)
}

func compareSameKind(a, b interface{}) (int, error) {
	switch av := a.(type) {
	case nil:
		if b == nil {
			return 0, nil
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv), nil
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0, nil
			case !av:
				return -1, nil
			}
			return 1, nil
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv), nil
		}
	default:
		af, aok := toFloat(a)
		bf, bok := toFloat(b)
		if aok && bok {
			switch {
			case af < bf:
				return -1, nil
			case af > bf:
				return 1, nil
			}
			return 0, nil
		}
	}
	return 0, errIncomparable
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// rank 近似 MongoDB 的 BSON 类型比较顺序
func rank(v interface{}) int {
	switch v.(type) {
	case nil:
		return 1
	case int32, int64, int, float64:
		return 2
	case string:
		return 3
	case map[string]interface{}:
		return 4
	case []interface{}:
		return 5
	case bool:
		return 8
	case time.Time:
		return 9
	}
	return 10
}
