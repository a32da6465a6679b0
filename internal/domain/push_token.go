package domain

// PushToken Expo 推送令牌（对应 push_tokens 表）
// One token per user; re-registration is last-write-wins.
type PushToken struct {
	UserID int64  `db:"user_id" json:"user_id"`
	Token  string `db:"token" json:"token"`
}
