package service

import "coderoom/internal/model"

// Broadcaster delivers outbound messages to live connections (avoids import cycle).
// Messages handed to one connection must be delivered in call order.
type Broadcaster interface {
	SendToConn(connID string, msg *model.OutboundMessage)
	SendToConns(connIDs []string, msg *model.OutboundMessage)
}

// Session is one verified connection. Identity is resolved once, when the
// connection is accepted, and trusted for every event it sends afterwards.
type Session struct {
	ConnID string
	User   model.UserProfile
}
