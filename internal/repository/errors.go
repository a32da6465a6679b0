package repository

import "errors"

// ErrNotFound 记录不存在或不在调用方权限范围内。
// Out-of-scope ids deliberately report the same error as missing ids so that
// existence of other users' records never leaks.
var ErrNotFound = errors.New("not found")

// OwnerFilter 所有权过滤：admin 看全部，普通用户只看自己设备产生的数据
type OwnerFilter struct {
	All    bool
	UserID int64
}

// AllOwners admin 范围
func AllOwners() OwnerFilter { return OwnerFilter{All: true} }

// OwnedBy 普通用户范围
func OwnedBy(userID int64) OwnerFilter { return OwnerFilter{UserID: userID} }

// Matches 判断某设备 owner 是否落在过滤范围内
func (f OwnerFilter) Matches(owner *int64) bool {
	if f.All {
		return true
	}
	return owner != nil && *owner == f.UserID
}
