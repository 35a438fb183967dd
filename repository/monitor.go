package repository

import (
	"sync/atomic"

	"go.mongodb.org/mongo-driver/event"
)

// ConnectivityMonitor 根据驱动心跳判断与数据库之间的网络是否可用
type ConnectivityMonitor struct {
	offline atomic.Bool
}

// NewConnectivityMonitor 初始状态为在线
func NewConnectivityMonitor() *ConnectivityMonitor {
	return &ConnectivityMonitor{}
}

// ServerMonitor 返回注册到 mongo 客户端的监听器
func (m *ConnectivityMonitor) ServerMonitor() *event.ServerMonitor {
	return &event.ServerMonitor{
		ServerHeartbeatFailed: func(*event.ServerHeartbeatFailedEvent) {
			m.offline.Store(true)
		},
		ServerHeartbeatSucceeded: func(*event.ServerHeartbeatSucceededEvent) {
			m.offline.Store(false)
		},
	}
}

// IsOnline 最近一次心跳是否成功
func (m *ConnectivityMonitor) IsOnline() bool {
	if m == nil {
		return true
	}
	return !m.offline.Load()
}
