package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lucksec/gpuhunt/internal/domain"
	"github.com/lucksec/gpuhunt/internal/logger"
)

// WriteCSV 按快照格式写出报价表格
// 列顺序为 domain.CSVHeader，末尾附加 compute_capability 列
func WriteCSV(w io.Writer, offers []domain.RawOffer) error {
	cw := csv.NewWriter(w)

	header := append(append([]string{}, domain.CSVHeader...), domain.ColumnComputeCapability)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("写入表头失败: %w", err)
	}
	for _, o := range offers {
		cc := ""
		if o.ComputeCapability != nil {
			cc = o.ComputeCapability.String()
		}
		if err := cw.Write(append(domain.FormatRow(o), cc)); err != nil {
			return fmt.Errorf("写入 %s 失败: %w", o.InstanceName, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("写入表格失败: %w", err)
	}
	return nil
}

// ReadCSV 按列名读取快照表格
// 无法解析的行被跳过并记录日志（log 为空时不记录），返回被跳过的行数；
// 只有表头缺失或底层读取失败时返回错误
func ReadCSV(r io.Reader, log logger.Logger) ([]domain.RawOffer, int, error) {
	if log == nil {
		log = logger.Nop()
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	record, err := cr.Read()
	if err == io.EOF {
		return nil, 0, fmt.Errorf("%w: 表格为空", domain.ErrParse)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: 读取表头失败: %v", domain.ErrParse, err)
	}
	header := make([]string, len(record))
	for i, col := range record {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
	}

	var (
		offers  []domain.RawOffer
		skipped int
	)
	row := make(map[string]string, len(header))
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped++
				log.Warn("跳过第 %d 行: %v", perr.Line, err)
				continue
			}
			return offers, skipped, fmt.Errorf("读取表格失败: %w", err)
		}

		clear(row)
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		offer, err := domain.ParseRow(row)
		if err != nil {
			line, _ := cr.FieldPos(0)
			skipped++
			log.Warn("跳过第 %d 行: %v", line, err)
			continue
		}
		offers = append(offers, offer)
	}
	return offers, skipped, nil
}
