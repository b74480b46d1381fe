// Package client 匹配服务（ML）的 HTTP 客户端
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/retreivo/retreivo/internal/fraud/domain"
	itemdomain "github.com/retreivo/retreivo/internal/item/domain"
	"github.com/retreivo/retreivo/pkg/errs"
)

// MatchingClient 调用匹配服务的比对与索引接口
type MatchingClient struct {
	baseURL string
	client  *http.Client
}

func NewMatchingClient(baseURL string, timeout time.Duration) *MatchingClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MatchingClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type compareResponse struct {
	OK               bool            `json:"ok"`
	FraudProbability float64         `json:"fraud_probability"`
	Explanation      json.RawMessage `json:"explanation"`
}

// Compare 比对失物报告与拾获物品，返回 0 到 100 的欺诈概率。
func (c *MatchingClient) Compare(ctx context.Context, lost, found domain.ItemSnapshot) (*domain.Comparison, error) {
	body, err := json.Marshal(map[string]any{
		"lost_item":  lost,
		"found_item": found,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/compare-items", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "matching service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.Newf(errs.KindTransient, "matching service returned %d", resp.StatusCode)
	}

	var out compareResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errs.Wrap(errs.KindTransient, "invalid matching service response", err)
	}
	if !out.OK {
		return nil, errs.New(errs.KindTransient, "matching service rejected comparison")
	}

	return &domain.Comparison{
		Probability: out.FraudProbability,
		Explanation: parseExplanation(out.Explanation),
	}, nil
}

// parseExplanation 兼容两种响应格式：字符串数组，或带 key_supporting_evidence 的对象。
func parseExplanation(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var obj struct {
		KeySupportingEvidence []string `json:"key_supporting_evidence"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.KeySupportingEvidence
	}
	return nil
}

// IndexItem 将物品推送到匹配服务的索引库
func (c *MatchingClient) IndexItem(ctx context.Context, item *itemdomain.Item) error {
	payload := map[string]any{
		"item_type":   string(item.Type),
		"item_id":     item.ItemID,
		"item_name":   item.Name,
		"category":    item.Category,
		"description": item.Description,
		"location":    item.Location,
	}
	if item.OccurredOn != nil {
		payload["date"] = item.OccurredOn.Format("2006-01-02")
	}
	if item.ImageURL != "" {
		payload["image"] = item.ImageURL
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/store-item", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindTransient, "matching service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("store-item returned %d", resp.StatusCode)
	}
	return nil
}
