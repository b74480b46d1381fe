package application

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"strconv"

	"github.com/retreivo/retreivo/internal/claim/domain"
	fraudapp "github.com/retreivo/retreivo/internal/fraud/application"
	frauddomain "github.com/retreivo/retreivo/internal/fraud/domain"
)

// Assessor 欺诈评估接口，由 fraud 上下文的 Scorer 实现。
type Assessor interface {
	Assess(ctx context.Context, ref fraudapp.ClaimRef) frauddomain.Assessment
}

// ListClaimsQuery 认领列表查询条件。分数区间按字面取值，
// MaxScore 为 0 只命中零分认领，默认区间由接口层给定。
type ListClaimsQuery struct {
	Status   domain.ClaimStatus
	MinScore int
	MaxScore int
}

// ClaimWithRisk 附带欺诈评估的认领明细
type ClaimWithRisk struct {
	*domain.ClaimDetail
	FraudScore      int                   `json:"fraud_score"`
	RiskLevel       frauddomain.RiskLevel `json:"risk_level"`
	FraudIndicators []string              `json:"fraud_indicators"`
}

// ClaimQueryService 认领查询服务
type ClaimQueryService struct {
	claims   domain.ClaimRepository
	assessor Assessor
	logger   *slog.Logger
}

func NewClaimQueryService(claims domain.ClaimRepository, assessor Assessor, logger *slog.Logger) *ClaimQueryService {
	return &ClaimQueryService{
		claims:   claims,
		assessor: assessor,
		logger:   logger.With("module", "claim_query"),
	}
}

// ListClaims 返回带欺诈评估的认领列表，可按状态与分数区间过滤。
func (s *ClaimQueryService) ListClaims(ctx context.Context, q ListClaimsQuery) ([]*ClaimWithRisk, error) {
	details, err := s.claims.ListDetails(ctx, q.Status)
	if err != nil {
		return nil, err
	}

	result := make([]*ClaimWithRisk, 0, len(details))
	for _, d := range details {
		assessment := s.assessor.Assess(ctx, toClaimRef(d))
		if assessment.Score < q.MinScore || assessment.Score > q.MaxScore {
			continue
		}
		result = append(result, &ClaimWithRisk{
			ClaimDetail:     d,
			FraudScore:      assessment.Score,
			RiskLevel:       assessment.Level,
			FraudIndicators: assessment.Indicators,
		})
	}
	return result, nil
}

// ExportClaims 以 CSV 导出认领列表，列集合与查询结果保持一致。
func (s *ClaimQueryService) ExportClaims(ctx context.Context, w io.Writer, q ListClaimsQuery) error {
	claims, err := s.ListClaims(ctx, q)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{
		"claim_id", "item_type", "status", "created_at",
		"item_name", "item_location",
		"claimant_name", "claimant_email", "claimant_phone",
		"fraud_score", "risk_level",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, c := range claims {
		record := []string{
			c.ClaimID,
			string(c.ItemType),
			string(c.Status),
			c.CreatedAt.Format("2006-01-02 15:04:05"),
			c.ItemName,
			c.ItemLocation,
			c.ClaimantName,
			c.ClaimantEmail,
			c.ClaimantPhone,
			strconv.Itoa(c.FraudScore),
			string(c.RiskLevel),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// History 返回申领人自己的认领记录
func (s *ClaimQueryService) History(ctx context.Context, claimantID string) ([]*domain.ClaimDetail, error) {
	return s.claims.ListByClaimant(ctx, claimantID)
}

func toClaimRef(d *domain.ClaimDetail) fraudapp.ClaimRef {
	return fraudapp.ClaimRef{
		ClaimID:    d.ClaimID,
		ClaimantID: d.ClaimantID,
		ItemType:   string(d.ItemType),
		Item: frauddomain.ItemSnapshot{
			ItemID:      d.ItemID,
			Name:        d.ItemName,
			Category:    d.ItemCategory,
			Description: d.ItemDescription,
			Location:    d.ItemLocation,
			Date:        d.ItemOccurredOn,
			Image:       d.ItemImageURL,
		},
	}
}
