package repository

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	FieldID        = "_id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"

	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Document 存储层返回的归一化文档：ID 为字符串，时间字段为 time.Time
type Document struct {
	ID        string                 `json:"id"`
	Fields    map[string]interface{} `json:"fields"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// Decode 将字段解码到带 bson 标签的结构体
func (d Document) Decode(v interface{}) error {
	raw, err := bson.Marshal(d.Fields)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, v)
}

// SortDirection 排序方向
type SortDirection int

const (
	Ascending  SortDirection = 1
	Descending SortDirection = -1
)

// QueryOptions 分页查询参数
type QueryOptions struct {
	Limit     int
	OrderBy   string
	Direction SortDirection
	// Cursor 为上一页最后一条记录生成的不透明游标
	Cursor string
	// Filters 额外的等值条件
	Filters map[string]interface{}
}

func (o QueryOptions) withDefaults() QueryOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultPageSize
	}
	if o.Limit > MaxPageSize {
		o.Limit = MaxPageSize
	}
	if o.OrderBy == "" {
		o.OrderBy = FieldCreatedAt
	}
	if o.Direction != Ascending {
		o.Direction = Descending
	}
	return o
}

// Page 一页查询结果。HasMore 为 (返回条数 == 页大小)，只是近似值
type Page struct {
	Items      []Document `json:"items"`
	NextCursor string     `json:"nextCursor,omitempty"`
	HasMore    bool       `json:"hasMore"`
}

func buildPage(items []Document, opts QueryOptions) (Page, error) {
	page := Page{Items: items, HasMore: len(items) == opts.Limit}
	if page.HasMore {
		last := items[len(items)-1]
		cursor, err := encodeCursor(orderValue(last, opts.OrderBy), last.ID)
		if err != nil {
			return Page{}, err
		}
		page.NextCursor = cursor
	}
	return page, nil
}

func orderValue(doc Document, field string) interface{} {
	switch field {
	case FieldCreatedAt:
		return doc.CreatedAt
	case FieldUpdatedAt:
		return doc.UpdatedAt
	}
	return doc.Fields[field]
}

type cursorToken struct {
	Value interface{} `bson:"v"`
	ID    string      `bson:"id"`
}

var errBadCursor = errors.New("malformed cursor")

func encodeCursor(value interface{}, id string) (string, error) {
	raw, err := bson.Marshal(bson.D{{Key: "v", Value: value}, {Key: "id", Value: id}})
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// decodeCursor 返回游标携带的排序值（bson 原生类型）与记录 ID
func decodeCursor(cursor string) (interface{}, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, "", errBadCursor
	}
	var token cursorToken
	if err := bson.Unmarshal(raw, &token); err != nil || token.ID == "" {
		return nil, "", errBadCursor
	}
	return token.Value, token.ID, nil
}

// toFields 将结构体或 map 转为 bson 字段表
func toFields(doc interface{}) (bson.M, error) {
	if doc == nil {
		return nil, errors.New("document is nil")
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// canonical 将任意值转成 bson 往返后的归一化形式，便于比较
func canonical(value interface{}) interface{} {
	raw, err := bson.Marshal(bson.D{{Key: "v", Value: value}})
	if err != nil {
		return value
	}
	var out struct {
		V interface{} `bson:"v"`
	}
	if err := bson.Unmarshal(raw, &out); err != nil {
		return value
	}
	return normalizeValue(out.V)
}

// toDocument 将原始 bson 文档转为归一化 Document
func toDocument(raw bson.M) Document {
	fields := make(map[string]interface{}, len(raw))
	var id string
	for k, v := range raw {
		if k == FieldID {
			id = fmt.Sprint(normalizeValue(v))
			continue
		}
		fields[k] = normalizeValue(v)
	}

	doc := Document{ID: id, Fields: fields}
	if t, ok := fields[FieldCreatedAt].(time.Time); ok {
		doc.CreatedAt = t
	}
	if t, ok := fields[FieldUpdatedAt].(time.Time); ok {
		doc.UpdatedAt = t
	}
	return doc
}

func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case primitive.DateTime:
		return val.Time().UTC()
	case time.Time:
		return val.UTC()
	case primitive.Timestamp:
		return time.Unix(int64(val.T), 0).UTC()
	case primitive.ObjectID:
		return val.Hex()
	case primitive.M:
		return normalizeMap(val)
	case map[string]interface{}:
		return normalizeMap(val)
	case primitive.D:
		m := make(map[string]interface{}, len(val))
		for _, e := range val {
			m[e.Key] = normalizeValue(e.Value)
		}
		return m
	case primitive.A:
		return normalizeSlice(val)
	case []interface{}:
		return normalizeSlice(val)
	}
	return v
}

func normalizeMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeSlice(in []interface{}) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = normalizeValue(v)
	}
	return out
}
