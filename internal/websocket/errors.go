package websocket

import "errors"

var (
	ErrClientQueueFull = errors.New("client event queue is full")
	ErrChatRequired    = errors.New("chat_id is required")
	ErrNotJoined       = errors.New("join the chat before sending events to it")
)
