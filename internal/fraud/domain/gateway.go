package domain

import (
	"context"
	"time"
)

// ItemSnapshot 送入匹配服务的物品快照
type ItemSnapshot struct {
	ItemID      string     `json:"item_id"`
	Name        string     `json:"name"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	Date        *time.Time `json:"date"`
	Image       string     `json:"image"`
}

// Comparison 匹配服务的比对结果。Probability 为 0 到 100 的欺诈概率。
type Comparison struct {
	Probability float64
	Explanation []string
}

// Comparator 外部匹配服务的比对接口
type Comparator interface {
	Compare(ctx context.Context, lost, found ItemSnapshot) (*Comparison, error)
}

// StatsSource 申领人历史数据源
type StatsSource interface {
	ClaimantStats(ctx context.Context, userID string) (*ClaimantStats, error)
	// LatestLostItem 返回申领人最近一次失物报告，没有则返回 nil。
	LatestLostItem(ctx context.Context, userID string) (*ItemSnapshot, error)
}
