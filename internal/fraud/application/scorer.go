// Package application 欺诈评估的应用服务
package application

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/retreivo/retreivo/internal/fraud/domain"
)

// ClaimRef 待评估的认领
type ClaimRef struct {
	ClaimID    string
	ClaimantID string
	ItemType   string // lost 或 found
	Item       domain.ItemSnapshot
}

// Scorer 欺诈评分服务。优先使用匹配服务的比对结果，
// 不可用时退回启发式打分，数据缺失时给保守默认分。
type Scorer struct {
	source     domain.StatsSource
	comparator domain.Comparator
	timeout    time.Duration
	logger     *slog.Logger
}

func NewScorer(source domain.StatsSource, comparator domain.Comparator, timeout time.Duration, logger *slog.Logger) *Scorer {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Scorer{
		source:     source,
		comparator: comparator,
		timeout:    timeout,
		logger:     logger.With("module", "fraud_scorer"),
	}
}

// Assess 评估单个认领。永不返回错误，失败路径降级为默认分。
func (s *Scorer) Assess(ctx context.Context, ref ClaimRef) domain.Assessment {
	if ref.ItemType == "found" && s.comparator != nil {
		if a, ok := s.assessByMatching(ctx, ref); ok {
			return a
		}
	}

	stats, err := s.source.ClaimantStats(ctx, ref.ClaimantID)
	if err != nil {
		s.logger.WarnContext(ctx, "claimant stats unavailable",
			"claim_id", ref.ClaimID, "error", err)
		return domain.DefaultAssessment()
	}
	score, indicators := domain.HeuristicScore(*stats, ref.Item.Name, ref.Item.Category)
	return domain.NewAssessment(score, indicators, domain.SourceHeuristic)
}

// assessByMatching 用申领人最近一次失物报告与被认领物品做比对
func (s *Scorer) assessByMatching(ctx context.Context, ref ClaimRef) (domain.Assessment, bool) {
	lost, err := s.source.LatestLostItem(ctx, ref.ClaimantID)
	if err != nil || lost == nil {
		if err != nil {
			s.logger.WarnContext(ctx, "latest lost item lookup failed",
				"claim_id", ref.ClaimID, "error", err)
		}
		return domain.Assessment{}, false
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	cmp, err := s.comparator.Compare(cctx, *lost, ref.Item)
	if err != nil {
		s.logger.WarnContext(ctx, "matching service compare failed",
			"claim_id", ref.ClaimID, "error", err)
		return domain.Assessment{}, false
	}
	score := int(math.Round(cmp.Probability))
	return domain.NewAssessment(score, cmp.Explanation, domain.SourceMatching), true
}
