package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ReadRecords 读取扁平源 CSV（Kaggle Shakespeare_data.csv）
// 按表头名取列，行内缺失的单元格一律当空串处理
func ReadRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("读取 CSV 表头失败: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	field := func(row []string, name string) string {
		if i, ok := col[name]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("读取 CSV 行失败: %w", err)
		}
		records = append(records, Record{
			Play:         field(row, "Play"),
			Player:       field(row, "Player"),
			ActSceneLine: field(row, "ActSceneLine"),
			PlayerLine:   field(row, "PlayerLine"),
		})
	}

	return records, nil
}
