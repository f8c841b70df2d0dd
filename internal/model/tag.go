package model

// Tag is a hashtag attached to a task.
type Tag struct {
	ID     uint   `gorm:"primaryKey" json:"-"`
	TaskID uint   `gorm:"uniqueIndex:idx_tag_task_name;not null" json:"-"`
	Name   string `gorm:"uniqueIndex:idx_tag_task_name;not null" json:"name"`
}
