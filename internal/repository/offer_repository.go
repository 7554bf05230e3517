package repository

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lucksec/gpuhunt/internal/domain"
)

// tableExt 快照中每个云服务商表格的扩展名
const tableExt = ".csv"

// OfferRepository 本地快照表格仓库接口
// 一个目录对应一份快照，每个云服务商一个 <provider>.csv
type OfferRepository interface {
	// Save 保存指定云服务商的报价（覆盖已有文件）
	Save(provider string, offers []domain.RawOffer) error

	// Load 读取指定云服务商的报价，返回被跳过的行数
	Load(provider string) ([]domain.RawOffer, int, error)

	// List 列出仓库中所有云服务商
	List() ([]string, error)

	// Pack 将仓库中的所有表格打包为快照归档
	Pack(w io.Writer) error
}

// offerRepository 基于目录的仓库实现
type offerRepository struct {
	dir string
	mu  sync.RWMutex
}

// NewOfferRepository 创建基于目录的仓库实例
func NewOfferRepository(dir string) OfferRepository {
	return &offerRepository{dir: dir}
}

func (r *offerRepository) path(provider string) string {
	return filepath.Join(r.dir, strings.ToLower(provider)+tableExt)
}

// Save 保存报价
func (r *offerRepository) Save(provider string, offers []domain.RawOffer) error {
	if strings.TrimSpace(provider) == "" {
		return fmt.Errorf("云服务商名称为空")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	// 先写临时文件再重命名，避免读到写了一半的表格
	tmp, err := os.CreateTemp(r.dir, "."+provider+"-*")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, offers); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("写入文件失败: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path(provider)); err != nil {
		return fmt.Errorf("保存文件失败: %w", err)
	}
	return nil
}

// Load 读取报价
func (r *offerRepository) Load(provider string) ([]domain.RawOffer, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, err := os.Open(r.path(provider))
	if err != nil {
		return nil, 0, fmt.Errorf("打开 %s 失败: %w", provider, err)
	}
	defer f.Close()

	return ReadCSV(f, nil)
}

// List 列出云服务商
func (r *offerRepository) List() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("读取目录失败: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, tableExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(name, tableExt))
	}
	sort.Strings(names)
	return names, nil
}

// Pack 打包快照归档
func (r *offerRepository) Pack(w io.Writer) error {
	names, err := r.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("目录 %s 中没有报价表格", r.dir)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	zw := zip.NewWriter(w)
	for _, name := range names {
		if err := copyIntoArchive(zw, name+tableExt, r.path(name)); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("写入归档失败: %w", err)
	}
	return nil
}

func copyIntoArchive(zw *zip.Writer, entry, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("打开 %s 失败: %w", path, err)
	}
	defer src.Close()

	dst, err := zw.Create(entry)
	if err != nil {
		return fmt.Errorf("创建归档条目 %s 失败: %w", entry, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("写入归档条目 %s 失败: %w", entry, err)
	}
	return nil
}

// WriteArchive 将多个云服务商的报价直接写成快照归档，条目按名称排序
func WriteArchive(w io.Writer, tables map[string][]domain.RawOffer) error {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(w)
	for _, name := range names {
		dst, err := zw.Create(strings.ToLower(name) + tableExt)
		if err != nil {
			return fmt.Errorf("创建归档条目 %s 失败: %w", name, err)
		}
		if err := WriteCSV(dst, tables[name]); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("写入归档失败: %w", err)
	}
	return nil
}
