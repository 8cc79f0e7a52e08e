package dto

// CreateDirectChatRequest — второй участник личного чата, первый берется
// из токена
type CreateDirectChatRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type CreateGroupChatRequest struct {
	Name    string   `json:"name" binding:"required"`
	UserIDs []string `json:"user_ids" binding:"required"`
}

type RenameGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

// MemberRequest используется добавлением участника и передачей прав админа
type MemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
}
