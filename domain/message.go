// Package domain contains core concepts of the chat system.
// This file defines Message records and related rules.
// Messages are immutable once persistence has assigned their id.
package domain

import "time"

// Message represents an immutable chat event. The id is assigned by the
// message store and is monotonically increasing; clients treat id/CreatedAt
// as the authoritative order, not arrival order.
type Message struct {
	ID        uint64
	AuthorID  int64
	Author    string
	Body      string
	CreatedAt time.Time
}

// Draft is a message before persistence has assigned its id. Lang is an
// analytics annotation recorded on disk and never broadcast.
type Draft struct {
	AuthorID  int64
	Author    string
	Body      string
	Lang      string
	CreatedAt time.Time
}
