package database

import "errors"

// Операционные ошибки ядра. Хендлеры переводят их в HTTP статусы:
// not found -> 404, not participant/not admin -> 403, остальное -> 400.
var (
	ErrChatNotFound   = errors.New("chat not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrNotParticipant = errors.New("you are not a participant of this chat")
	ErrNotAdmin       = errors.New("only the group admin can do this")
	ErrNotGroup       = errors.New("this is not a group chat")
	ErrAlreadyMember  = errors.New("user is already a participant")
	ErrNotMember      = errors.New("user is not a participant")
	ErrSelfChat       = errors.New("cannot start a chat with yourself")
	ErrEmptyGroupName = errors.New("group name must not be empty")
	ErrTooFewMembers  = errors.New("group must have at least 2 participants")
	ErrAdminLeave     = errors.New("transfer admin rights before leaving the group")
	ErrEmptyMessage   = errors.New("message content or media is required")
)
