package domain

import (
	"strconv"
	"time"
)

// User 账号记录。房间里使用的 userId 是它 ID 的十进制字符串。
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"type:varchar(191);uniqueIndex:idx_username;not null" json:"username"`
	Password    string    `gorm:"type:text;not null" json:"-"` // bcrypt 哈希
	DisplayName string    `gorm:"type:varchar(191)" json:"displayName"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// RoomUserID 返回该账号在房间内的 userId
func (u *User) RoomUserID() string {
	return strconv.FormatUint(uint64(u.ID), 10)
}
