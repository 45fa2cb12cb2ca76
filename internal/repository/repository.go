// Package repository 提供基于 PostgreSQL 的数据访问实现
package repository

import (
	"github.com/zhipai/zhipai/internal/database"
)

// Repository 聚合数据访问实现，满足引擎的数据接口
type Repository struct {
	db *database.DB
}

// New 创建数据访问层
func New(db *database.DB) *Repository {
	return &Repository{db: db}
}
