package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// Config 应用配置
type Config struct {
	// 实际加载的配置文件路径，未找到配置文件时为空
	Path string

	// 快照配置
	Catalog CatalogConfig

	// 查询配置
	Query QueryConfig

	// 出站 HTTP 配置
	HTTP HTTPConfig

	// HTTP 服务配置
	Server ServerConfig

	// 定时查询配置
	Watch WatchConfig

	// 日志配置
	Log LogConfig
}

// CatalogConfig 快照相关配置
type CatalogConfig struct {
	// 最新版本号地址
	VersionURL string

	// 快照归档地址，{version} 会被替换为版本号
	ArchiveURL string

	// 自动重新加载的间隔
	ReloadInterval time.Duration

	// 查询离线数据源前是否自动加载快照
	AutoReload bool

	// 快照中的云服务商
	OfflineProviders []string
}

// QueryConfig 查询相关配置
type QueryConfig struct {
	// 并发任务数
	Workers int

	// 单个在线数据源的超时时间，0 表示不限制
	FetchTimeout time.Duration

	// 是否按显存自动收紧 CPU / 内存下限
	BalanceResources bool

	// 归并前是否检查数据源返回的顺序
	StrictOrdering bool

	// 需要注册的在线数据源
	OnlineProviders []string
}

// HTTPConfig 出站 HTTP 配置
type HTTPConfig struct {
	// 请求超时
	Timeout time.Duration
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	// 监听地址
	Addr string
}

// WatchConfig 定时查询配置
type WatchConfig struct {
	// cron 表达式
	Schedule string
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别：DEBUG, INFO, WARN, ERROR, OFF
	Level string

	// 是否启用控制台输出
	EnableConsole bool

	// 是否启用文件输出
	EnableFile bool

	// 日志目录
	LogDir string

	// 日志文件名（如果为空，则使用默认格式）
	LogFile string
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Catalog: CatalogConfig{
			VersionURL:       "https://dstack-gpu-pricing.s3.eu-west-1.amazonaws.com/v1/version",
			ArchiveURL:       "https://dstack-gpu-pricing.s3.eu-west-1.amazonaws.com/v1/{version}/catalog.zip",
			ReloadInterval:   15 * time.Minute,
			AutoReload:       true,
			OfflineProviders: []string{"aws", "azure", "datacrunch", "gcp", "lambdalabs", "oci", "runpod"},
		},
		Query: QueryConfig{
			Workers:          8,
			BalanceResources: true,
			OnlineProviders:  []string{"coreweave", "crusoe", "hyperstack"},
		},
		HTTP: HTTPConfig{
			Timeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Watch: WatchConfig{
			Schedule: "*/15 * * * *",
		},
		Log: LogConfig{
			Level:         "INFO",
			EnableConsole: true,
			EnableFile:    false,
			LogDir:        "logs",
		},
	}
}

// SearchPaths 未指定配置文件时依次查找的路径
func SearchPaths() []string {
	paths := []string{".gpuhunt.ini"}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".gpuhunt", "config.ini"))
	}
	return paths
}

// LoadConfig 加载配置文件
// path 不为空时只读取该文件（不存在则报错）；为空时按 SearchPaths 查找，都不存在时使用默认配置
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, p := range SearchPaths() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
		if path == "" {
			return cfg, nil
		}
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}
	if err := apply(cfg, file); err != nil {
		return nil, fmt.Errorf("配置文件 %s 无效: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse 从 ini 内容解析配置，未出现的键保持默认值
func Parse(data []byte) (*Config, error) {
	file, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg := Default()
	if err := apply(cfg, file); err != nil {
		return nil, err
	}
	return cfg, nil
}

func apply(cfg *Config, file *ini.File) error {
	var err error

	sec := file.Section("catalog")
	setString(sec, "version_url", &cfg.Catalog.VersionURL)
	setString(sec, "archive_url", &cfg.Catalog.ArchiveURL)
	setList(sec, "offline_providers", &cfg.Catalog.OfflineProviders)
	if err = setDuration(sec, "reload_interval", &cfg.Catalog.ReloadInterval); err != nil {
		return err
	}
	if err = setBool(sec, "auto_reload", &cfg.Catalog.AutoReload); err != nil {
		return err
	}

	sec = file.Section("query")
	if err = setInt(sec, "workers", &cfg.Query.Workers); err != nil {
		return err
	}
	if err = setDuration(sec, "fetch_timeout", &cfg.Query.FetchTimeout); err != nil {
		return err
	}
	if err = setBool(sec, "balance_resources", &cfg.Query.BalanceResources); err != nil {
		return err
	}
	if err = setBool(sec, "strict_ordering", &cfg.Query.StrictOrdering); err != nil {
		return err
	}
	setList(sec, "online_providers", &cfg.Query.OnlineProviders)

	if err = setDuration(file.Section("http"), "timeout", &cfg.HTTP.Timeout); err != nil {
		return err
	}
	setString(file.Section("server"), "addr", &cfg.Server.Addr)
	setString(file.Section("watch"), "schedule", &cfg.Watch.Schedule)

	sec = file.Section("log")
	setString(sec, "level", &cfg.Log.Level)
	if err = setBool(sec, "enable_console", &cfg.Log.EnableConsole); err != nil {
		return err
	}
	if err = setBool(sec, "enable_file", &cfg.Log.EnableFile); err != nil {
		return err
	}
	setString(sec, "log_dir", &cfg.Log.LogDir)
	setString(sec, "log_file", &cfg.Log.LogFile)

	if cfg.Query.Workers <= 0 {
		return fmt.Errorf("query.workers 必须大于 0: %d", cfg.Query.Workers)
	}
	if cfg.Query.FetchTimeout < 0 {
		return fmt.Errorf("query.fetch_timeout 不能为负数: %v", cfg.Query.FetchTimeout)
	}
	if cfg.Catalog.ReloadInterval <= 0 {
		return fmt.Errorf("catalog.reload_interval 必须大于 0: %v", cfg.Catalog.ReloadInterval)
	}
	if !strings.Contains(cfg.Catalog.ArchiveURL, "{version}") {
		return fmt.Errorf("catalog.archive_url 缺少 {version} 占位符: %s", cfg.Catalog.ArchiveURL)
	}
	return nil
}

func setString(sec *ini.Section, name string, dst *string) {
	if v := strings.TrimSpace(sec.Key(name).String()); v != "" {
		*dst = v
	}
}

func setList(sec *ini.Section, name string, dst *[]string) {
	if !sec.HasKey(name) {
		return
	}
	var list []string
	for _, v := range sec.Key(name).Strings(",") {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			list = append(list, v)
		}
	}
	*dst = list
}

func setBool(sec *ini.Section, name string, dst *bool) error {
	if !sec.HasKey(name) || sec.Key(name).String() == "" {
		return nil
	}
	v, err := sec.Key(name).Bool()
	if err != nil {
		return fmt.Errorf("%s.%s 不是有效的布尔值: %q", sec.Name(), name, sec.Key(name).String())
	}
	*dst = v
	return nil
}

func setInt(sec *ini.Section, name string, dst *int) error {
	if !sec.HasKey(name) || sec.Key(name).String() == "" {
		return nil
	}
	v, err := sec.Key(name).Int()
	if err != nil {
		return fmt.Errorf("%s.%s 不是有效的整数: %q", sec.Name(), name, sec.Key(name).String())
	}
	*dst = v
	return nil
}

func setDuration(sec *ini.Section, name string, dst *time.Duration) error {
	if !sec.HasKey(name) || sec.Key(name).String() == "" {
		return nil
	}
	v, err := sec.Key(name).Duration()
	if err != nil {
		return fmt.Errorf("%s.%s 不是有效的时间间隔: %q", sec.Name(), name, sec.Key(name).String())
	}
	*dst = v
	return nil
}

// WriteTo 以 ini 格式输出配置，可直接保存为配置文件
func (c *Config) WriteTo(w io.Writer) (int64, error) {
	file := ini.Empty()

	sec := file.Section("catalog")
	sec.Key("version_url").SetValue(c.Catalog.VersionURL)
	sec.Key("archive_url").SetValue(c.Catalog.ArchiveURL)
	sec.Key("reload_interval").SetValue(c.Catalog.ReloadInterval.String())
	sec.Key("auto_reload").SetValue(fmt.Sprint(c.Catalog.AutoReload))
	sec.Key("offline_providers").SetValue(strings.Join(c.Catalog.OfflineProviders, ","))

	sec = file.Section("query")
	sec.Key("workers").SetValue(fmt.Sprint(c.Query.Workers))
	sec.Key("fetch_timeout").SetValue(c.Query.FetchTimeout.String())
	sec.Key("balance_resources").SetValue(fmt.Sprint(c.Query.BalanceResources))
	sec.Key("strict_ordering").SetValue(fmt.Sprint(c.Query.StrictOrdering))
	sec.Key("online_providers").SetValue(strings.Join(c.Query.OnlineProviders, ","))

	file.Section("http").Key("timeout").SetValue(c.HTTP.Timeout.String())
	file.Section("server").Key("addr").SetValue(c.Server.Addr)
	file.Section("watch").Key("schedule").SetValue(c.Watch.Schedule)

	sec = file.Section("log")
	sec.Key("level").SetValue(c.Log.Level)
	sec.Key("enable_console").SetValue(fmt.Sprint(c.Log.EnableConsole))
	sec.Key("enable_file").SetValue(fmt.Sprint(c.Log.EnableFile))
	sec.Key("log_dir").SetValue(c.Log.LogDir)
	sec.Key("log_file").SetValue(c.Log.LogFile)

	return file.WriteTo(w)
}

// Save 将配置保存到文件
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建目录 %s 失败: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建配置文件失败: %w", err)
	}
	defer f.Close()
	if _, err := c.WriteTo(f); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}
