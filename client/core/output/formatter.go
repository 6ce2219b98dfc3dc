// Package output 命令行输出格式化
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/weisyn/marketclient/pkg/types"
)

// Format 输出格式
type Format string

const (
	// FormatJSON JSON格式（默认）
	FormatJSON Format = "json"
	// FormatPretty 美化JSON格式
	FormatPretty Format = "pretty"
	// FormatTable 表格格式
	FormatTable Format = "table"
	// FormatText 纯文本格式
	FormatText Format = "text"
)

// Formatter 输出格式化器
type Formatter struct {
	format    Format
	writer    io.Writer // 数据输出（JSON/表格等）
	logWriter io.Writer // 日志输出（Info/Success/Error等）
	silent    bool
}

// NewFormatter 创建格式化器
func NewFormatter(format Format, writer io.Writer) *Formatter {
	if writer == nil {
		writer = os.Stdout
	}

	return &Formatter{
		format:    format,
		writer:    writer,    // 数据输出到 stdout
		logWriter: os.Stderr, // 日志输出到 stderr（避免污染 JSON）
		silent:    false,
	}
}

// ParseFormat 解析 -o 参数
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatPretty, FormatTable, FormatText:
		return f, nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (json|pretty|table|text)", s)
	}
}

// SetLogWriter 设置日志输出目标（默认 stderr）
func (f *Formatter) SetLogWriter(writer io.Writer) {
	if writer == nil {
		writer = os.Stderr
	}
	f.logWriter = writer
}

// SetSilent 设置静默模式
func (f *Formatter) SetSilent(silent bool) {
	f.silent = silent
}

// Print 打印输出
func (f *Formatter) Print(data interface{}) error {
	if f.silent {
		return nil
	}

	switch f.format {
	case FormatJSON:
		return f.printJSON(data, false)
	case FormatPretty:
		return f.printJSON(data, true)
	case FormatTable:
		return f.printTable(data)
	case FormatText:
		return f.printText(data)
	default:
		return f.printJSON(data, false)
	}
}

// printJSON 打印JSON格式
func (f *Formatter) printJSON(data interface{}, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := fmt.Fprintln(f.writer, string(output)); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// printTable 打印表格格式
//
// 对象打印为 Key/Value 表；其中的对象数组字段（店铺的 products、transports 等）
// 在主表之后各自展开为一张按列排列的子表。
func (f *Formatter) printTable(data interface{}) error {
	switch v := data.(type) {
	case []map[string]interface{}:
		return f.printRows(v)
	case []interface{}:
		if rows, ok := objectRows(v); ok {
			return f.printRows(rows)
		}
		cells := make([][]string, len(v))
		for i, value := range v {
			cells[i] = []string{fmt.Sprintf("%d", i), formatValue(value)}
		}
		return writeTable(f.writer, []string{"#", "Value"}, cells)
	}

	m, ok := toMap(data)
	if !ok {
		if list, ok := toList(data); ok {
			return f.printTable(list)
		}
		return f.printJSON(data, true)
	}
	return f.printRecord(m)
}

// printRecord 标量字段为主表，对象数组字段为子表
func (f *Formatter) printRecord(m map[string]interface{}) error {
	scalars := make(map[string]interface{}, len(m))
	nested := make(map[string][]map[string]interface{})
	for key, value := range m {
		if list, ok := value.([]interface{}); ok && len(list) > 0 {
			if rows, ok := objectRows(list); ok {
				nested[key] = rows
				continue
			}
		}
		scalars[key] = value
	}

	cells := make([][]string, 0, len(scalars))
	for _, key := range sortedKeys(scalars) {
		cells = append(cells, []string{key, formatValue(scalars[key])})
	}
	if err := writeTable(f.writer, []string{"Key", "Value"}, cells); err != nil {
		return err
	}

	keys := make([]string, 0, len(nested))
	for key := range nested {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, err := fmt.Fprintf(f.writer, "\n%s (%d)\n", key, len(nested[key])); err != nil {
			return fmt.Errorf("write section: %w", err)
		}
		if err := f.printRows(nested[key]); err != nil {
			return err
		}
	}
	return nil
}

// printRows 每个对象一行，列为所有对象键的并集
func (f *Formatter) printRows(rows []map[string]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	columns := extractColumns(rows)
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(columns))
		for j, col := range columns {
			if val, ok := row[col]; ok {
				cells[i][j] = formatValue(val)
			} else {
				cells[i][j] = "-"
			}
		}
	}
	return writeTable(f.writer, columns, cells)
}

// writeTable 表头、分隔线与数据行按列对齐输出
func writeTable(w io.Writer, header []string, cells [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	sep := make([]string, len(header))
	for i, h := range header {
		sep[i] = strings.Repeat("-", len(h))
	}
	for _, line := range append([][]string{header, sep}, cells...) {
		if _, err := fmt.Fprintln(tw, strings.Join(line, "\t")); err != nil {
			return fmt.Errorf("write table: %w", err)
		}
	}
	return tw.Flush()
}

// objectRows 数组的每个元素都是对象时返回这些对象
func objectRows(list []interface{}) ([]map[string]interface{}, bool) {
	rows := make([]map[string]interface{}, len(list))
	for i, item := range list {
		row, ok := item.(map[string]interface{})
		if !ok {
			return nil, false
		}
		rows[i] = row
	}
	return rows, true
}

// printText 打印纯文本格式
func (f *Formatter) printText(data interface{}) error {
	if m, ok := toMap(data); ok {
		for _, key := range sortedKeys(m) {
			if _, err := fmt.Fprintf(f.writer, "%s: %s\n", key, formatValue(m[key])); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
		}
		return nil
	}
	if _, err := fmt.Fprintf(f.writer, "%v\n", data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// 以下提示信息写到 logWriter（默认 stderr），避免污染 JSON 输出

// PrintSuccess 打印成功消息
func (f *Formatter) PrintSuccess(message string) { f.note("✅ ", message) }

// PrintWarning 打印警告消息
func (f *Formatter) PrintWarning(message string) { f.note("⚠️  ", message) }

// PrintInfo 打印信息消息
func (f *Formatter) PrintInfo(message string) { f.note("ℹ️  ", message) }

// PrintError 打印错误消息，静默模式下同样输出
func (f *Formatter) PrintError(err error) {
	_, _ = fmt.Fprintf(f.logWriter, "❌ Error: %v\n", err)
}

func (f *Formatter) note(icon, message string) {
	if f.silent {
		return
	}
	_, _ = fmt.Fprintf(f.logWriter, "%s%s\n", icon, message)
}

// ===== 辅助函数 =====

// formatValue 格式化值
func formatValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case int, int64, uint, uint64:
		return fmt.Sprintf("%d", v)
	case float64:
		// JSON 数字统一为 float64，整数按整数显示
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%.2f", v)
	case float32:
		return fmt.Sprintf("%.2f", v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case time.Time:
		return v.Format(time.RFC3339)
	case nil:
		return "-"
	default:
		// 尝试JSON序列化
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

// extractColumns 提取所有列（按名称排序）
func extractColumns(data []map[string]interface{}) []string {
	columnSet := make(map[string]bool)
	columns := make([]string, 0)

	// 收集所有列名
	for _, row := range data {
		for key := range row {
			if !columnSet[key] {
				columnSet[key] = true
				columns = append(columns, key)
			}
		}
	}

	sort.Strings(columns)
	return columns
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// toList 通过 JSON 把结构体切片转换为 []interface{}
func toList(data interface{}) ([]interface{}, bool) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, false
	}
	var list []interface{}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, false
	}
	return list, true
}

// toMap 通过 JSON 把结构体转换为 map
func toMap(data interface{}) (map[string]interface{}, bool) {
	if m, ok := data.(map[string]interface{}); ok {
		return m, true
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, false
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	return m, true
}

// ErrorOutput 错误输出结构
type ErrorOutput struct {
	Error struct {
		Code    string      `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	} `json:"error"`
}

// ErrorOutputFor 按错误分类生成错误输出
func ErrorOutputFor(err error) *ErrorOutput {
	var details interface{}
	if ve, ok := types.IsValidationError(err); ok {
		details = map[string]string{"prefix": ve.Prefix, "field": ve.Field, "rule": ve.Rule}
	}
	return NewErrorOutput(types.ErrorCode(err), err.Error(), details)
}

// NewErrorOutput 创建错误输出
func NewErrorOutput(code string, message string, details interface{}) *ErrorOutput {
	output := &ErrorOutput{}
	output.Error.Code = code
	output.Error.Message = message
	output.Error.Details = details
	return output
}

// SuccessOutput 成功输出结构
type SuccessOutput struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// NewSuccessOutput 创建成功输出
func NewSuccessOutput(data interface{}, message string) *SuccessOutput {
	return &SuccessOutput{
		Success: true,
		Data:    data,
		Message: message,
	}
}
