// Package models contains the models for the Misbar API
package models

import "time"

const (
	ForumCategoriesTableName = "forum_categories"
	ForumPostsTableName      = "forum_posts"
	ForumRepliesTableName    = "forum_replies"
)

// ForumCategoryModel groups forum posts
type ForumCategoryModel struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"column:name" json:"name"`
	Description *string `gorm:"column:description" json:"description"`
	Icon        *string `gorm:"column:icon" json:"icon"`
	Color       *string `gorm:"column:color" json:"color"`
}

func (ForumCategoryModel) TableName() string {
	return ForumCategoriesTableName
}

// ForumPostModel is a thread started by a user
type ForumPostModel struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CategoryID  *uint      `gorm:"column:category_id" json:"category_id"`
	UserID      uint       `gorm:"column:user_id;index" json:"user_id"`
	Title       string     `gorm:"column:title" json:"title"`
	Content     string     `gorm:"column:content" json:"content"`
	Views       int        `gorm:"column:views" json:"views"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	LastReplyAt *time.Time `gorm:"column:last_reply_at" json:"last_reply_at"`
}

func (ForumPostModel) TableName() string {
	return ForumPostsTableName
}

// ForumReplyModel is a reply to a forum post
type ForumReplyModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"column:post_id;index" json:"post_id"`
	UserID    uint      `gorm:"column:user_id;index" json:"user_id"`
	Content   string    `gorm:"column:content" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ForumReplyModel) TableName() string {
	return ForumRepliesTableName
}
