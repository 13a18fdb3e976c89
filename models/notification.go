// file: models/notification.go
package models

type NoticeType string

const (
	NoticeTypeToast  NoticeType = "Toast"
	NoticeTypeBanner NoticeType = "Banner"
)

type Notification struct {
	ID         uint32     `gorm:"primarykey" json:"id"`
	Title      string     `gorm:"size:120;not null" json:"title"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	NoticeType NoticeType `gorm:"size:20;not null;default:'Toast'" json:"notice_type"`
	PlaySound  bool       `gorm:"not null;default:false" json:"play_sound"`
	CreatedBy  string     `gorm:"size:50;not null" json:"created_by"`
	CreatedTS  int64      `gorm:"not null;index" json:"created_ts"`
}

func (Notification) TableName() string {
	return "casctf_notification"
}
