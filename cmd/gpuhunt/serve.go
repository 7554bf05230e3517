package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lucksec/gpuhunt/internal/domain"
	"github.com/lucksec/gpuhunt/internal/server"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

// serveCmd 启动 HTTP 查询服务
func serveCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 查询服务",
		Long: `启动 HTTP 查询服务，提供以下接口:

  GET  /api/health             健康检查
  GET  /api/providers          数据源列表
  GET  /api/offers             查询报价（参数同 query 命令，如 gpu_name=H100&min_gpu_count=1）
  GET  /api/offers/summary     报价汇总
  GET  /api/catalog            快照状态
  POST /api/catalog/reload     立即下载最新快照`,
		Example: `  gpuhunt serve --addr 0.0.0.0:8080`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.NewServer(a.svc, addr, a.log)
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("HTTP 服务异常退出: %w", err)
			case <-ctx.Done():
			}

			a.log.Info("正在停止 HTTP 服务...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "监听地址（默认使用配置 [server] addr）")
	return cmd
}

// watchCmd 按 cron 计划定期执行查询
func watchCmd(a *app) *cobra.Command {
	var (
		ff       filterFlags
		schedule string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "按计划定期查询并输出最优报价",
		Long: `按 cron 表达式定期执行查询，每次输出价格最低的若干条报价，
最优方案变化时额外提示。离线快照到期后会在查询时自动重新下载。`,
		Example: `  # 每 15 分钟查询一次 H100
  gpuhunt watch --gpu H100 --schedule "*/15 * * * *"

  # 每小时查询一次 aws 上显存至少 40GB 的竞价实例
  gpuhunt watch -p aws --min-gpu-memory 40 --spot --schedule @hourly`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.build(cmd.Flags())
			if err != nil {
				return err
			}
			if err := f.Validate(); err != nil {
				return err
			}
			if schedule == "" {
				schedule = a.cfg.Watch.Schedule
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := &watcher{app: a, limit: limit}
			c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
			if _, err := c.AddFunc(schedule, func() { w.tick(ctx, f.Clone()) }); err != nil {
				return fmt.Errorf("无效的计划表达式 %q: %w", schedule, err)
			}

			fmt.Printf("开始定期查询（计划: %s），按 Ctrl+C 退出\n", schedule)
			w.tick(ctx, f.Clone())
			c.Start()
			<-ctx.Done()
			<-c.Stop().Done()
			fmt.Println("\n已停止定期查询。")
			return nil
		},
	}

	ff.register(cmd.Flags())
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron 表达式（默认使用配置 [watch] schedule）")
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "每次显示的报价条数")
	return cmd
}

// watcher 记录上一次的最优方案，用于提示变化
type watcher struct {
	app   *app
	limit int
	last  string
}

func (w *watcher) tick(ctx context.Context, f domain.QueryFilter) {
	if ctx.Err() != nil {
		return
	}
	result, err := w.app.svc.Query(ctx, f)
	if err != nil {
		w.app.log.Error("定期查询失败: %v", err)
		return
	}

	fmt.Printf("\n[%s] 共 %d 条报价\n", time.Now().Format("2006-01-02 15:04:05"), result.Count)
	if result.Count == 0 {
		w.last = ""
		return
	}

	best := offerLine(result.Offers[0])
	if w.last != "" && w.last != best {
		fmt.Printf("🔔 最优方案变化: %s\n", best)
	}
	w.last = best

	lines := make([]string, 0, len(result.Offers))
	for i, offer := range result.Offers {
		if w.limit > 0 && i >= w.limit {
			break
		}
		lines = append(lines, fmt.Sprintf("  %d. %s", i+1, offerLine(offer)))
	}
	fmt.Println(strings.Join(lines, "\n"))
}
