package service

import "errors"

// 服务层错误分类，httpapi 据此映射状态码
var (
	// ErrValidation 请求内容不合法 (400)
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized 凭证缺失或无效 (401)
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict 唯一性冲突，如用户名已占用 (409)
	ErrConflict = errors.New("conflict")
)
