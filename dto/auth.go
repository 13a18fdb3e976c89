// file: dto/auth.go
package dto

type SignupReq struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type NotificationCreateReq struct {
	Title      string `json:"title" binding:"required,max=120"`
	Content    string `json:"content" binding:"required"`
	NoticeType string `json:"notice_type"`
	PlaySound  bool   `json:"play_sound"`
}
