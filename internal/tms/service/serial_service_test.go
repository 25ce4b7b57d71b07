package service

import (
	"errors"
	"strings"
	"testing"
)

// TestAppendSerialBasics 单条追加：正常、空白、重复、超额
func TestAppendSerialBasics(t *testing.T) {
	var draft []DraftSerial
	var err error

	draft, err = AppendSerial(draft, 3, "SN-001", "首台")
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if len(draft) != 1 || draft[0].SerialNumber != "SN-001" || draft[0].Notes != "首台" {
		t.Fatalf("draft wrong: %+v", draft)
	}

	if _, err = AppendSerial(draft, 3, "   ", ""); err == nil {
		t.Fatal("blank serial must be rejected")
	}

	// 大小写不敏感的重复
	_, err = AppendSerial(draft, 3, "sn-001", "")
	var dup *DuplicateSerialError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateSerialError, got %v", err)
	}

	draft, _ = AppendSerial(draft, 3, "SN-002", "")
	draft, _ = AppendSerial(draft, 3, "SN-003", "")
	_, err = AppendSerial(draft, 3, "SN-004", "")
	var limit *LimitExceededError
	if !errors.As(err, &limit) {
		t.Fatalf("expected LimitExceededError, got %v", err)
	}
}

// TestAppendSerialTrimsWhitespace 序列号落草稿前去掉首尾空白
func TestAppendSerialTrimsWhitespace(t *testing.T) {
	draft, err := AppendSerial(nil, 5, "  SN-009  ", "")
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if draft[0].SerialNumber != "SN-009" {
		t.Fatalf("whitespace not trimmed: %q", draft[0].SerialNumber)
	}
}

// TestAppendBulkBuckets 批量录入逐条分桶，不整体失败
func TestAppendBulkBuckets(t *testing.T) {
	draft := []DraftSerial{{SerialNumber: "SN-001"}}
	candidates := []DraftSerial{
		{SerialNumber: "SN-002"},
		{SerialNumber: "sn-001"}, // 与已有条目重复（大小写不敏感）
		{SerialNumber: "  "},     // 空白静默跳过
		{SerialNumber: "SN-003"},
		{SerialNumber: "SN-004"}, // 超出 limit=3
	}

	draft, result := AppendBulk(draft, 3, candidates)
	if len(draft) != 3 {
		t.Fatalf("expected 3 entries in draft, got %d", len(draft))
	}
	if len(result.Accepted) != 2 || result.Accepted[0] != "SN-002" || result.Accepted[1] != "SN-003" {
		t.Fatalf("accepted wrong: %v", result.Accepted)
	}
	if len(result.Duplicates) != 1 || result.Duplicates[0] != "sn-001" {
		t.Fatalf("duplicates wrong: %v", result.Duplicates)
	}
	if len(result.LimitExceeded) != 1 || result.LimitExceeded[0] != "SN-004" {
		t.Fatalf("limit_exceeded wrong: %v", result.LimitExceeded)
	}
}

// TestAppendBulkInternalDuplicates 同一批次内部的重复也会被挑出
func TestAppendBulkInternalDuplicates(t *testing.T) {
	candidates := []DraftSerial{
		{SerialNumber: "SN-100"},
		{SerialNumber: "SN-100"},
	}
	draft, result := AppendBulk(nil, 10, candidates)
	if len(draft) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(draft))
	}
	if len(result.Duplicates) != 1 {
		t.Fatalf("intra-batch duplicate not detected: %+v", result)
	}
}

// TestParseBulkText 一行一条，跳过空行，容忍\r\n
func TestParseBulkText(t *testing.T) {
	out := ParseBulkText("SN-001\r\n\nSN-002\n   \nSN-003")
	if len(out) != 3 {
		t.Fatalf("expected 3 candidates, got %d: %+v", len(out), out)
	}
	if out[0].SerialNumber != "SN-001" || out[2].SerialNumber != "SN-003" {
		t.Fatalf("parse wrong: %+v", out)
	}
}

// TestParseTabular 首行表头跳过，第二列作备注
func TestParseTabular(t *testing.T) {
	rows := [][]string{
		{"Serial Number", "Notes"},
		{"SN-001", "机房A"},
		{"", "无序列号的行跳过"},
		{"SN-002"},
	}
	out := ParseTabular(rows)
	if len(out) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(out))
	}
	if out[0].Notes != "机房A" || out[1].SerialNumber != "SN-002" {
		t.Fatalf("parse wrong: %+v", out)
	}
}

// TestValidateCommitExactCount 提交要求条数与到货数量严格相等
func TestValidateCommitExactCount(t *testing.T) {
	draft := []DraftSerial{
		{SerialNumber: "SN-001"},
		{SerialNumber: "SN-002"},
	}

	if err := ValidateCommit(draft, 2); err != nil {
		t.Fatalf("exact count should pass: %v", err)
	}

	var mismatch *QuantityMismatchError
	err := ValidateCommit(draft, 3)
	if !errors.As(err, &mismatch) || mismatch.Expected != 3 || mismatch.Got != 2 {
		t.Fatalf("undercount not reported: %v", err)
	}
	err = ValidateCommit(draft, 1)
	if !errors.As(err, &mismatch) || mismatch.Expected != 1 || mismatch.Got != 2 {
		t.Fatalf("overcount not reported: %v", err)
	}
}

// TestValidateCommitIgnoresBlanks 空白条目不计入提交条数
func TestValidateCommitIgnoresBlanks(t *testing.T) {
	draft := []DraftSerial{
		{SerialNumber: "SN-001"},
		{SerialNumber: "   "},
		{SerialNumber: "SN-002"},
	}
	if err := ValidateCommit(draft, 2); err != nil {
		t.Fatalf("blanks must be ignored: %v", err)
	}
}

// TestValidateCommitDuplicates 重复优先于数量校验上报
func TestValidateCommitDuplicates(t *testing.T) {
	draft := []DraftSerial{
		{SerialNumber: "SN-001"},
		{SerialNumber: "sn-001"},
	}
	var dup *DuplicateSerialError
	if err := ValidateCommit(draft, 3); !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateSerialError, got %v", err)
	}
}

// TestExportCSV 两列带表头，内嵌逗号和引号按CSV规则转义
func TestExportCSV(t *testing.T) {
	entries := []DraftSerial{
		{SerialNumber: "SN-001", Notes: "机房A, 1号机柜"},
		{SerialNumber: `SN-"x"`, Notes: ""},
	}
	out, err := ExportCSV(entries)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if strings.TrimSpace(lines[0]) != "Serial Number,Notes" {
		t.Fatalf("header wrong: %q", lines[0])
	}
	if !strings.Contains(lines[1], `"机房A, 1号机柜"`) {
		t.Fatalf("embedded comma not quoted: %q", lines[1])
	}
	if !strings.Contains(lines[2], `"SN-""x"""`) {
		t.Fatalf("embedded quotes not escaped: %q", lines[2])
	}
}

// TestExportCSVEmpty 空草稿仍输出表头
func TestExportCSVEmpty(t *testing.T) {
	out, err := ExportCSV(nil)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if strings.TrimSpace(out) != "Serial Number,Notes" {
		t.Fatalf("empty export should be header only: %q", out)
	}
}
