package main

import (
	"fmt"
	"os"

	"github.com/lucksec/gpuhunt/internal/catalog"
	"github.com/lucksec/gpuhunt/internal/config"
	"github.com/lucksec/gpuhunt/internal/logger"
	"github.com/lucksec/gpuhunt/internal/service"
	"github.com/spf13/cobra"
)

// app 命令共享的运行时状态
// 控制台中每一行都会重新构建命令树，但 app 只初始化一次，快照缓存得以复用
type app struct {
	configPath string

	cfg     *config.Config
	log     logger.Logger
	catalog *catalog.Catalog
	svc     service.OfferService
}

func main() {
	a := &app{}
	rootCmd := newRootCmd(a)

	// 设置自动补全
	setupCompletion(rootCmd)

	// 执行命令
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "执行命令失败: %v\n", err)
		a.close()
		os.Exit(1)
	}
	a.close()
}

// newRootCmd 创建根命令及全部子命令
func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gpuhunt",
		Short: "gpuhunt 聚合多个云服务商的 GPU 实例报价",
		Long: `gpuhunt 从离线快照和在线价格页面聚合各云服务商的 GPU / CPU 实例报价，
按资源条件筛选后以每小时价格从低到高输出。

离线数据源（aws、azure、gcp 等）来自定期发布的快照压缩包，
在线数据源（crusoe、coreweave、hyperstack）在查询时实时抓取。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// shell 补全请求只需要静态列表
			if cmd.Name() == cobra.ShellCompRequestCmd || cmd.Name() == cobra.ShellCompNoDescRequestCmd {
				return nil
			}
			return a.init()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", a.configPath, "配置文件路径（默认依次查找 .gpuhunt.ini、~/.gpuhunt/config.ini）")

	rootCmd.AddCommand(queryCmd(a))
	rootCmd.AddCommand(providersCmd(a))
	rootCmd.AddCommand(catalogCmd(a))
	rootCmd.AddCommand(dumpCmd(a))
	rootCmd.AddCommand(packCmd(a))
	rootCmd.AddCommand(serveCmd(a))
	rootCmd.AddCommand(watchCmd(a))
	rootCmd.AddCommand(configCmd(a))
	rootCmd.AddCommand(newConsoleCmd(a))

	// 设置动态补全
	setupDynamicCompletion(rootCmd)
	return rootCmd
}

// init 加载配置、初始化日志并创建查询服务，重复调用时直接返回
func (a *app) init() error {
	if a.svc != nil {
		return nil
	}

	// 加载配置
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	// 初始化日志系统
	logConfig := &logger.Config{
		Level:         logger.ParseLevel(cfg.Log.Level),
		EnableConsole: cfg.Log.EnableConsole,
		EnableFile:    cfg.Log.EnableFile,
		LogDir:        cfg.Log.LogDir,
		LogFile:       cfg.Log.LogFile,
	}
	log, err := logger.InitLogger(logConfig)
	if err != nil {
		return fmt.Errorf("初始化日志系统失败: %w", err)
	}
	log.Debug("配置加载成功: path=%s, offline=%v, online=%v",
		cfg.Path, cfg.Catalog.OfflineProviders, cfg.Query.OnlineProviders)

	// 初始化服务
	c, err := service.NewCatalog(cfg, log)
	if err != nil {
		return err
	}
	if loader := c.Loader(); loader != nil {
		loader.OnReload(func(s *catalog.State) {
			if s.Snapshot != nil {
				log.Info("快照状态: %s (版本 %s)", s.Mode, s.Snapshot.Version)
			} else {
				log.Info("快照状态: %s", s.Mode)
			}
		})
	}

	a.cfg = cfg
	a.log = log
	a.catalog = c
	a.svc = service.NewOfferService(c, log)
	return nil
}

func (a *app) close() {
	if a.log != nil {
		_ = logger.Close(a.log)
	}
}
