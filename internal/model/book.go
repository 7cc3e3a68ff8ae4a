package model

// Book 书籍本身的增删改不在本服务范围内，这里只用于打卡校验
type Book struct {
	BaseModel
	Title      string `gorm:"size:255;not null" json:"title"`
	Author     string `gorm:"size:255" json:"author"`
	Pages      int    `gorm:"default:0" json:"pages"`
	CoverImage string `gorm:"size:255" json:"coverImage"`
	CreatedBy  uint   `gorm:"index" json:"createdBy"`
}

func (Book) TableName() string {
	return "books"
}
