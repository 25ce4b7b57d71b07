package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	deliveryDraftKeyPrefix = "tms:delivery_draft:"
	deliveryDraftTTL       = 24 * time.Hour
)

// DeliveryDraft 到货草稿：登记到货前的编辑缓冲，存 Redis，
// 提交前对台账零影响。
type DeliveryDraft struct {
	Personnel    string                `json:"personnel"`
	DeliveryDate *time.Time            `json:"delivery_date,omitempty"`
	Notes        string                `json:"notes,omitempty"`
	ChalanRef    string                `json:"chalan_reference,omitempty"`
	Lines        []DeliveryLineRequest `json:"lines"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// DeliveryDraftService 到货草稿服务，按（标单, 用户）隔离
type DeliveryDraftService struct {
	rdb *redis.Client
}

func NewDeliveryDraftService(rdb *redis.Client) *DeliveryDraftService {
	return &DeliveryDraftService{rdb: rdb}
}

func deliveryDraftKey(tenderID, userID string) string {
	return deliveryDraftKeyPrefix + tenderID + ":" + userID
}

// Get 读取草稿，不存在时返回空草稿
func (s *DeliveryDraftService) Get(ctx context.Context, tenderID, userID string) (*DeliveryDraft, error) {
	data, err := s.rdb.Get(ctx, deliveryDraftKey(tenderID, userID)).Bytes()
	if err == redis.Nil {
		return &DeliveryDraft{Lines: []DeliveryLineRequest{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取到货草稿失败: %w", err)
	}

	var draft DeliveryDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("解析到货草稿失败: %w", err)
	}
	return &draft, nil
}

// Save 保存整份草稿
func (s *DeliveryDraftService) Save(ctx context.Context, tenderID, userID string, draft *DeliveryDraft) error {
	draft.UpdatedAt = time.Now()
	data, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, deliveryDraftKey(tenderID, userID), data, deliveryDraftTTL).Err(); err != nil {
		return fmt.Errorf("保存到货草稿失败: %w", err)
	}
	return nil
}

// AddLine 向草稿追加一行。同一物料已有行时合并为覆盖数量。
func (s *DeliveryDraftService) AddLine(ctx context.Context, tenderID, userID string, line DeliveryLineRequest) (*DeliveryDraft, error) {
	if line.DeliveredQty <= 0 {
		return nil, &ValidationError{Field: "delivered_qty", Message: "到货数量必须大于0"}
	}
	draft, err := s.Get(ctx, tenderID, userID)
	if err != nil {
		return nil, err
	}

	replaced := false
	for i := range draft.Lines {
		if draft.Lines[i].ItemMasterID == line.ItemMasterID {
			draft.Lines[i] = line
			replaced = true
			break
		}
	}
	if !replaced {
		draft.Lines = append(draft.Lines, line)
	}

	if err := s.Save(ctx, tenderID, userID, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// RemoveLine 从草稿移除某物料的行。纯草稿操作，不动台账。
func (s *DeliveryDraftService) RemoveLine(ctx context.Context, tenderID, userID, itemMasterID string) (*DeliveryDraft, error) {
	draft, err := s.Get(ctx, tenderID, userID)
	if err != nil {
		return nil, err
	}

	out := draft.Lines[:0]
	found := false
	for _, l := range draft.Lines {
		if l.ItemMasterID == itemMasterID {
			found = true
			continue
		}
		out = append(out, l)
	}
	if !found {
		return nil, &ValidationError{Field: "item_master_id", Message: "草稿中不存在该物料行"}
	}
	draft.Lines = out

	if err := s.Save(ctx, tenderID, userID, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// Discard 丢弃草稿
func (s *DeliveryDraftService) Discard(ctx context.Context, tenderID, userID string) error {
	if err := s.rdb.Del(ctx, deliveryDraftKey(tenderID, userID)).Err(); err != nil {
		return fmt.Errorf("丢弃到货草稿失败: %w", err)
	}
	return nil
}

// ToCreateRequest 把草稿转成创建到货的请求
func (d *DeliveryDraft) ToCreateRequest() *CreateDeliveryRequest {
	return &CreateDeliveryRequest{
		Personnel:    d.Personnel,
		DeliveryDate: d.DeliveryDate,
		Notes:        d.Notes,
		ChalanRef:    d.ChalanRef,
		Lines:        d.Lines,
	}
}
