package websocket

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
)

// Client 代表一个WebSocket连接
// UserID: 用户ID
// Conn: WebSocket连接
// Send: 待写出的消息，只由 Manager.RemoveClient 关闭

type Client struct {
	UserID uint
	Conn   *websocket.Conn
	Send   chan []byte
}

// NewClient 创建连接
func NewClient(userID uint, conn *websocket.Conn) *Client {
	return &Client{UserID: userID, Conn: conn, Send: make(chan []byte, 256)}
}

// Manager 管理所有在线连接，同一用户可以同时有多个连接（多标签页、多设备）
type Manager struct {
	clients map[uint]map[*Client]struct{}
	lock    sync.RWMutex
}

// NewManager 创建连接管理器
func NewManager() *Manager {
	return &Manager{clients: make(map[uint]map[*Client]struct{})}
}

// AddClient 添加连接，返回是否为该用户的第一个连接
func (m *Manager) AddClient(client *Client) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	conns, ok := m.clients[client.UserID]
	if !ok {
		conns = make(map[*Client]struct{})
		m.clients[client.UserID] = conns
	}
	conns[client] = struct{}{}
	return len(conns) == 1
}

// RemoveClient 移除连接并关闭其发送通道，返回是否为该用户的最后一个连接
func (m *Manager) RemoveClient(client *Client) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	conns, ok := m.clients[client.UserID]
	if !ok {
		return false
	}
	if _, ok := conns[client]; !ok {
		return false
	}
	delete(conns, client)
	close(client.Send)
	if len(conns) == 0 {
		delete(m.clients, client.UserID)
		return true
	}
	return false
}

// Push 推送给单个连接，连接已移除或发送通道已满时返回 false
func (m *Manager) Push(client *Client, msg []byte) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if _, ok := m.clients[client.UserID][client]; !ok {
		return false
	}
	select {
	case client.Send <- msg:
		return true
	default:
		return false
	}
}

// IsOnline 本实例上是否有该用户的连接
// 未配置 Redis 时作为在线状态的来源
func (m *Manager) IsOnline(_ context.Context, userID uint) (bool, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.clients[userID]) > 0, nil
}

// Count 当前连接总数
func (m *Manager) Count() int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	n := 0
	for _, conns := range m.clients {
		n += len(conns)
	}
	return n
}
