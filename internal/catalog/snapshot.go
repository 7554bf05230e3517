package catalog

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/lucksec/gpuhunt/internal/domain"
	"github.com/lucksec/gpuhunt/internal/logger"
	"github.com/lucksec/gpuhunt/internal/provider"
	"github.com/lucksec/gpuhunt/internal/repository"
)

// Snapshot 已下载的快照归档，创建后不再修改
type Snapshot struct {
	Version string
	Size    int

	tables map[string]*zip.File
	log    logger.Logger
}

// NewSnapshot 解析快照归档的目录，归档损坏时返回 ErrParse
func NewSnapshot(version string, data []byte, log logger.Logger) (*Snapshot, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: 快照归档 %s 无效: %v", domain.ErrParse, version, err)
	}

	s := &Snapshot{
		Version: version,
		Size:    len(data),
		tables:  make(map[string]*zip.File),
		log:     log,
	}
	for _, f := range zr.File {
		name := path.Base(f.Name)
		if f.FileInfo().IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		s.tables[strings.ToLower(strings.TrimSuffix(name, ".csv"))] = f
	}
	return s, nil
}

// Providers 返回快照中包含的云服务商（排序后）
func (s *Snapshot) Providers() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Offers 读取指定云服务商的报价表格，结果按价格稳定排序
// 无法解析的行被跳过并记录日志；nil 快照返回空结果
func (s *Snapshot) Offers(name string) ([]domain.RawOffer, error) {
	if s == nil {
		return nil, nil
	}
	f, ok := s.tables[normalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("快照 %s 中没有 %s 的报价表格", s.Version, name)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: 打开 %s 失败: %v", domain.ErrParse, f.Name, err)
	}
	defer rc.Close()

	offers, skipped, err := repository.ReadCSV(rc, s.log)
	if err != nil {
		return nil, fmt.Errorf("读取 %s 失败: %w", f.Name, err)
	}
	if skipped > 0 {
		s.log.Warn("快照 %s 的 %s 跳过了 %d 行无效数据", s.Version, name, skipped)
	}
	if !IsSortedByPrice(offers) {
		provider.SortByPrice(offers)
	}
	return offers, nil
}
