// Package domain 欺诈评估的领域模型。评估结果只在读取时计算，从不落库。
package domain

import (
	"fmt"
	"strings"
	"time"
)

// RiskLevel 风险等级
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// LevelFor 将分数映射到风险等级
func LevelFor(score int) RiskLevel {
	switch {
	case score < 20:
		return RiskLow
	case score < 50:
		return RiskMedium
	case score < 80:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// 评估来源
const (
	SourceHeuristic = "heuristic"
	SourceMatching  = "matching"
	SourceDefault   = "default"
)

// 数据缺失时的保守默认分
const DefaultScore = 50

// Assessment 单次认领的欺诈评估结果
type Assessment struct {
	Score      int       `json:"fraud_score"`
	Level      RiskLevel `json:"risk_level"`
	Indicators []string  `json:"fraud_indicators"`
	Source     string    `json:"source"`
}

// NewAssessment 由分数构造评估结果，分数被截断到 [0, 100]。
func NewAssessment(score int, indicators []string, source string) Assessment {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	if indicators == nil {
		indicators = []string{}
	}
	return Assessment{
		Score:      score,
		Level:      LevelFor(score),
		Indicators: indicators,
		Source:     source,
	}
}

// DefaultAssessment 数据不可用时的兜底评估
func DefaultAssessment() Assessment {
	return NewAssessment(DefaultScore, []string{"claimant history unavailable"}, SourceDefault)
}

// ClaimantStats 申领人历史统计
type ClaimantStats struct {
	TotalClaims    int64
	ApprovedClaims int64
	RecentClaims   int64 // 最近 7 天
	AccountAge     time.Duration
}

var highValueKeywords = []string{"iphone", "laptop", "watch", "jewelry", "gold", "diamond", "camera"}

// HeuristicScore 基于申领人历史与物品特征的启发式打分
func HeuristicScore(stats ClaimantStats, itemName, itemCategory string) (int, []string) {
	score := 0
	var indicators []string

	// 历史通过率越低越可疑
	if stats.TotalClaims > 0 {
		rate := float64(stats.ApprovedClaims) / float64(stats.TotalClaims)
		if rate < 0.3 {
			score += 30
			indicators = append(indicators, fmt.Sprintf("low approval rate %.0f%%", rate*100))
		} else if rate < 0.5 {
			score += 15
			indicators = append(indicators, fmt.Sprintf("below average approval rate %.0f%%", rate*100))
		}
	}

	// 新账号更可疑
	ageDays := stats.AccountAge.Hours() / 24
	if ageDays < 7 {
		score += 25
		indicators = append(indicators, "account younger than 7 days")
	} else if ageDays < 30 {
		score += 10
		indicators = append(indicators, "account younger than 30 days")
	}

	// 短期高频认领
	if stats.RecentClaims > 5 {
		score += 20
		indicators = append(indicators, fmt.Sprintf("%d claims in the last 7 days", stats.RecentClaims))
	} else if stats.RecentClaims > 3 {
		score += 10
		indicators = append(indicators, fmt.Sprintf("%d claims in the last 7 days", stats.RecentClaims))
	}

	// 高价值物品
	name := strings.ToLower(itemName)
	category := strings.ToLower(itemCategory)
	for _, kw := range highValueKeywords {
		if strings.Contains(name, kw) || strings.Contains(category, kw) {
			score += 15
			indicators = append(indicators, "high value item")
			break
		}
	}

	if score > 100 {
		score = 100
	}
	return score, indicators
}
