package models

import "time"

// ClientContext 请求来源信息
type ClientContext struct {
	RequestID string `bson:"requestId,omitempty" json:"requestId,omitempty"`
	SessionID string `bson:"sessionId,omitempty" json:"sessionId,omitempty"`
	IPAddress string `bson:"ipAddress,omitempty" json:"ipAddress,omitempty"`
	UserAgent string `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	Referer   string `bson:"referer,omitempty" json:"referer,omitempty"`
	Path      string `bson:"path,omitempty" json:"path,omitempty"`
}

// EventLogEntry 只追加的诊断事件，写入后不再读取
type EventLogEntry struct {
	Event     string                 `bson:"event" json:"event"`
	Payload   map[string]interface{} `bson:"payload" json:"payload"`
	Client    ClientContext          `bson:"client" json:"client"`
	CreatedAt time.Time              `bson:"createdAt,omitempty" json:"createdAt"`
}
