package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-tms/internal/tms/entity"
	"github.com/bitfantasy/nimo-tms/internal/tms/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"
)

const (
	serialDraftKeyPrefix = "tms:serial_draft:"
	serialDraftTTL       = 72 * time.Hour
)

// DraftSerial 草稿里的一条序列号
type DraftSerial struct {
	SerialNumber string `json:"serial_number"`
	Notes        string `json:"notes,omitempty"`
}

// BulkResult 批量录入结果。三类分桶全部上报，不整体失败：
// 重复和超额的条目被丢弃并逐条列出原因。
type BulkResult struct {
	Accepted      []string `json:"accepted"`
	Duplicates    []string `json:"duplicates"`
	LimitExceeded []string `json:"limit_exceeded"`
}

func normalizeSerial(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func draftIndex(draft []DraftSerial) map[string]bool {
	idx := make(map[string]bool, len(draft))
	for _, d := range draft {
		if n := normalizeSerial(d.SerialNumber); n != "" {
			idx[n] = true
		}
	}
	return idx
}

// AppendSerial 向草稿追加单条序列号。空白、超额、重复（大小写不敏感）均拒绝。
func AppendSerial(draft []DraftSerial, limit int, serial, notes string) ([]DraftSerial, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return draft, &ValidationError{Field: "serial_number", Message: "序列号不能为空"}
	}
	if len(draft) >= limit {
		return draft, &LimitExceededError{Limit: limit, Dropped: []string{serial}}
	}
	if draftIndex(draft)[normalizeSerial(serial)] {
		return draft, &DuplicateSerialError{Serials: []string{serial}}
	}
	return append(draft, DraftSerial{SerialNumber: serial, Notes: notes}), nil
}

// AppendBulk 批量追加。逐条独立校验，接受的追加进草稿，
// 其余按原因分桶返回。
func AppendBulk(draft []DraftSerial, limit int, candidates []DraftSerial) ([]DraftSerial, *BulkResult) {
	result := &BulkResult{}
	idx := draftIndex(draft)

	for _, c := range candidates {
		serial := strings.TrimSpace(c.SerialNumber)
		if serial == "" {
			continue
		}
		norm := normalizeSerial(serial)
		if idx[norm] {
			result.Duplicates = append(result.Duplicates, serial)
			continue
		}
		if len(draft) >= limit {
			result.LimitExceeded = append(result.LimitExceeded, serial)
			continue
		}
		draft = append(draft, DraftSerial{SerialNumber: serial, Notes: c.Notes})
		idx[norm] = true
		result.Accepted = append(result.Accepted, serial)
	}
	return draft, result
}

// ParseBulkText 把多行文本拆成候选序列号（一行一条）
func ParseBulkText(text string) []DraftSerial {
	var out []DraftSerial
	for _, line := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(strings.TrimSuffix(line, "\r")); s != "" {
			out = append(out, DraftSerial{SerialNumber: s})
		}
	}
	return out
}

// ParseTabular 把表格行转成候选序列号。首行视为表头跳过，
// 第一列是序列号，第二列（可选）是备注。
func ParseTabular(rows [][]string) []DraftSerial {
	var out []DraftSerial
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		serial := strings.TrimSpace(row[0])
		if serial == "" {
			continue
		}
		notes := ""
		if len(row) > 1 {
			notes = strings.TrimSpace(row[1])
		}
		out = append(out, DraftSerial{SerialNumber: serial, Notes: notes})
	}
	return out
}

// ValidateCommit 提交校验：非空条数必须与到货数量严格相等（不多不少），
// 且无大小写不敏感的重复。序列号追踪必须是完整的审计轨迹。
func ValidateCommit(draft []DraftSerial, deliveredQty int) error {
	seen := make(map[string]bool, len(draft))
	var dups []string
	count := 0
	for _, d := range draft {
		norm := normalizeSerial(d.SerialNumber)
		if norm == "" {
			continue
		}
		count++
		if seen[norm] {
			dups = append(dups, d.SerialNumber)
			continue
		}
		seen[norm] = true
	}
	if len(dups) > 0 {
		return &DuplicateSerialError{Serials: dups}
	}
	if count != deliveredQty {
		return &QuantityMismatchError{Expected: deliveredQty, Got: count}
	}
	return nil
}

// ExportCSV 导出为两列CSV：Serial Number, Notes，首行为表头，
// 内嵌分隔符按双引号转义。纯格式化，不做校验。
func ExportCSV(entries []DraftSerial) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Serial Number", "Notes"}); err != nil {
		return "", err
	}
	for _, e := range entries {
		if err := w.Write([]string{e.SerialNumber, e.Notes}); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

// SerialService 序列号分配服务。草稿存 Redis，按到货行项隔离；
// 只有提交校验通过的完整集合才写入 Postgres。
type SerialService struct {
	serialRepo   *repository.SerialRepository
	deliveryRepo *repository.DeliveryRepository
	rdb          *redis.Client
}

func NewSerialService(sr *repository.SerialRepository, dr *repository.DeliveryRepository, rdb *redis.Client) *SerialService {
	return &SerialService{serialRepo: sr, deliveryRepo: dr, rdb: rdb}
}

func serialDraftKey(lineID string) string {
	return serialDraftKeyPrefix + lineID
}

// GetDraft 读取草稿。草稿不存在时返回空集，并在已有落库序列号时
// 用落库集合初始化，方便重新编辑。
func (s *SerialService) GetDraft(ctx context.Context, lineID string) ([]DraftSerial, error) {
	data, err := s.rdb.Get(ctx, serialDraftKey(lineID)).Bytes()
	if err == redis.Nil {
		saved, err := s.serialRepo.FindByLine(ctx, lineID)
		if err != nil {
			return nil, fmt.Errorf("读取已保存序列号失败: %w", err)
		}
		draft := make([]DraftSerial, 0, len(saved))
		for _, e := range saved {
			draft = append(draft, DraftSerial{SerialNumber: e.SerialNumber, Notes: e.Notes})
		}
		return draft, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取序列号草稿失败: %w", err)
	}

	var draft []DraftSerial
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("解析序列号草稿失败: %w", err)
	}
	return draft, nil
}

func (s *SerialService) saveDraft(ctx context.Context, lineID string, draft []DraftSerial) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, serialDraftKey(lineID), data, serialDraftTTL).Err(); err != nil {
		return fmt.Errorf("保存序列号草稿失败: %w", err)
	}
	return nil
}

func (s *SerialService) lineLimit(ctx context.Context, lineID string) (int, error) {
	line, err := s.deliveryRepo.FindLineByID(ctx, lineID)
	if err != nil {
		return 0, err
	}
	return line.DeliveredQty, nil
}

// AddSingle 手工录入单条序列号
func (s *SerialService) AddSingle(ctx context.Context, lineID, serial, notes string) ([]DraftSerial, error) {
	limit, err := s.lineLimit(ctx, lineID)
	if err != nil {
		return nil, err
	}
	draft, err := s.GetDraft(ctx, lineID)
	if err != nil {
		return nil, err
	}
	draft, err = AppendSerial(draft, limit, serial, notes)
	if err != nil {
		return nil, err
	}
	if err := s.saveDraft(ctx, lineID, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// AddBulk 批量文本录入（一行一条）
func (s *SerialService) AddBulk(ctx context.Context, lineID, text string) ([]DraftSerial, *BulkResult, error) {
	return s.appendCandidates(ctx, lineID, ParseBulkText(text))
}

// ImportTabular 表格导入（serial, notes 两列，首行表头）
func (s *SerialService) ImportTabular(ctx context.Context, lineID string, rows [][]string) ([]DraftSerial, *BulkResult, error) {
	return s.appendCandidates(ctx, lineID, ParseTabular(rows))
}

// ImportWorkbook 从xlsx工作簿导入：取第一个工作表，语义同表格导入
func (s *SerialService) ImportWorkbook(ctx context.Context, lineID string, r io.Reader) ([]DraftSerial, *BulkResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, &ValidationError{Field: "file", Message: "无法解析xlsx文件: " + err.Error()}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, &ValidationError{Field: "file", Message: "工作簿为空"}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, &ValidationError{Field: "file", Message: "读取工作表失败: " + err.Error()}
	}
	return s.appendCandidates(ctx, lineID, ParseTabular(rows))
}

func (s *SerialService) appendCandidates(ctx context.Context, lineID string, candidates []DraftSerial) ([]DraftSerial, *BulkResult, error) {
	limit, err := s.lineLimit(ctx, lineID)
	if err != nil {
		return nil, nil, err
	}
	draft, err := s.GetDraft(ctx, lineID)
	if err != nil {
		return nil, nil, err
	}
	draft, result := AppendBulk(draft, limit, candidates)
	if err := s.saveDraft(ctx, lineID, draft); err != nil {
		return nil, nil, err
	}
	return draft, result, nil
}

// RemoveEntry 从草稿删除一条序列号（大小写不敏感匹配）
func (s *SerialService) RemoveEntry(ctx context.Context, lineID, serial string) ([]DraftSerial, error) {
	draft, err := s.GetDraft(ctx, lineID)
	if err != nil {
		return nil, err
	}
	norm := normalizeSerial(serial)
	out := make([]DraftSerial, 0, len(draft))
	for _, d := range draft {
		if normalizeSerial(d.SerialNumber) != norm {
			out = append(out, d)
		}
	}
	if len(out) == len(draft) {
		return nil, &ValidationError{Field: "serial_number", Message: "草稿中不存在该序列号"}
	}
	if err := s.saveDraft(ctx, lineID, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DiscardDraft 丢弃草稿
func (s *SerialService) DiscardDraft(ctx context.Context, lineID string) error {
	if err := s.rdb.Del(ctx, serialDraftKey(lineID)).Err(); err != nil {
		return fmt.Errorf("丢弃序列号草稿失败: %w", err)
	}
	return nil
}

// Commit 提交草稿：非空条数与到货数量严格相等且无重复才落库。
// 落库采用整组替换（同一事务先清后插），成功后清除草稿；
// 持久化失败时草稿原样保留，调用方可直接重试。
func (s *SerialService) Commit(ctx context.Context, lineID string) ([]entity.SerialNumberEntry, error) {
	line, err := s.deliveryRepo.FindLineByID(ctx, lineID)
	if err != nil {
		return nil, err
	}
	draft, err := s.GetDraft(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if err := ValidateCommit(draft, line.DeliveredQty); err != nil {
		return nil, err
	}

	entries := make([]entity.SerialNumberEntry, 0, len(draft))
	for _, d := range draft {
		if strings.TrimSpace(d.SerialNumber) == "" {
			continue
		}
		entries = append(entries, entity.SerialNumberEntry{
			ID:             uuid.New().String()[:32],
			DeliveryLineID: lineID,
			SerialNumber:   strings.TrimSpace(d.SerialNumber),
			Notes:          d.Notes,
		})
	}

	if err := s.serialRepo.ReplaceForLine(ctx, lineID, entries); err != nil {
		return nil, fmt.Errorf("保存序列号失败: %w", err)
	}

	// 提交成功后草稿已无用；清理失败不影响已落库数据
	s.rdb.Del(ctx, serialDraftKey(lineID))
	return entries, nil
}

// ListSaved 查询已落库的序列号
func (s *SerialService) ListSaved(ctx context.Context, lineID string) ([]entity.SerialNumberEntry, error) {
	return s.serialRepo.FindByLine(ctx, lineID)
}

// ExportDraftCSV 导出草稿为CSV文本
func (s *SerialService) ExportDraftCSV(ctx context.Context, lineID string) (string, error) {
	draft, err := s.GetDraft(ctx, lineID)
	if err != nil {
		return "", err
	}
	return ExportCSV(draft)
}

// ExportDraftWorkbook 导出草稿为xlsx工作簿
func (s *SerialService) ExportDraftWorkbook(ctx context.Context, lineID string) (*excelize.File, error) {
	draft, err := s.GetDraft(ctx, lineID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetCellValue(sheet, "A1", "Serial Number")
	f.SetCellValue(sheet, "B1", "Notes")
	for i, d := range draft {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", i+2), d.SerialNumber)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", i+2), d.Notes)
	}
	return f, nil
}
