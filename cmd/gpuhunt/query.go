package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/lucksec/gpuhunt/internal/domain"
	"github.com/lucksec/gpuhunt/internal/service"
	"github.com/spf13/cobra"
)

// queryCmd 查询报价命令
func queryCmd(a *app) *cobra.Command {
	var (
		ff        filterFlags
		limit     int
		asJSON    bool
		recommend bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "按条件查询报价（按价格从低到高）",
		Long: `按资源条件查询各数据源的报价，结果按每小时价格从低到高排列。

未指定的条件不做限制；同一条件的上下限均为闭区间。`,
		Example: `  # 查询 1~2 张 H100 的报价
  gpuhunt query --gpu H100 --min-gpu-count 1 --max-gpu-count 2

  # 只查询 aws 和 crusoe，显存至少 80GB，输出 JSON
  gpuhunt query -p aws,crusoe --min-gpu-memory 80 --json

  # 给出最便宜的推荐方案
  gpuhunt query --gpu A100 --recommend`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.build(cmd.Flags())
			if err != nil {
				return err
			}
			ctx := context.Background()

			if recommend {
				text, err := a.svc.GetRecommendation(ctx, f)
				if err != nil {
					return err
				}
				fmt.Println(text)
				return nil
			}

			result, err := a.svc.Query(ctx, f)
			if err != nil {
				return err
			}
			if limit > 0 && len(result.Offers) > limit {
				result.Offers = result.Offers[:limit]
			}
			if asJSON {
				return writeJSON(os.Stdout, result)
			}
			printOffers(os.Stdout, result)
			return nil
		},
	}

	ff.register(cmd.Flags())
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "最多显示的报价条数（0 表示全部）")
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 格式输出")
	cmd.Flags().BoolVar(&recommend, "recommend", false, "只输出最优方案")
	return cmd
}

// providersCmd 列出数据源命令
func providersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "列出可查询的数据源",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos := a.svc.Providers()
			if len(infos) == 0 {
				fmt.Println("没有配置任何数据源")
				return nil
			}
			fmt.Println("数据源列表:")
			for _, info := range infos {
				kind := "在线"
				if info.Kind == "offline" {
					kind = "离线快照"
				}
				fmt.Printf("  - %-12s %s\n", info.Name, kind)
			}
			return nil
		},
	}
}

// catalogCmd 快照状态命令
func catalogCmd(a *app) *cobra.Command {
	var reload bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "查看离线快照状态",
		Example: `  # 查看当前快照状态
  gpuhunt catalog

  # 立即下载最新快照
  gpuhunt catalog --reload`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				status service.CatalogStatus
				err    error
			)
			if reload {
				status, err = a.svc.Reload(context.Background())
			} else {
				status = a.svc.Status()
			}
			printStatus(os.Stdout, status)
			return err
		},
	}
	cmd.Flags().BoolVar(&reload, "reload", false, "立即下载最新快照")
	return cmd
}

// configCmd 输出生效配置命令
func configCmd(a *app) *cobra.Command {
	var save string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "输出当前生效的配置",
		Example: `  # 查看生效配置
  gpuhunt config

  # 生成配置文件
  gpuhunt config --save ~/.gpuhunt/config.ini`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if save != "" {
				if err := a.cfg.Save(save); err != nil {
					return err
				}
				fmt.Printf("配置已保存到: %s\n", save)
				return nil
			}
			if a.cfg.Path != "" {
				fmt.Printf("; 配置文件: %s\n", a.cfg.Path)
			}
			_, err := a.cfg.WriteTo(os.Stdout)
			return err
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "将配置写入指定文件")
	return cmd
}

// printOffers 输出报价列表，第一条为最优方案
func printOffers(w io.Writer, result *service.QueryResult) {
	if len(result.Offers) == 0 {
		fmt.Fprintln(w, "没有找到满足条件的报价")
		return
	}

	best := result.Offers[0]
	fmt.Fprintf(w, "✨ 最优方案: %s/%s\n", best.Provider, best.InstanceName)
	fmt.Fprintf(w, "   规格: %s\n", service.DescribeResources(best.RawOffer))
	fmt.Fprintf(w, "   区域: %s\n", orDash(best.Location))
	fmt.Fprintf(w, "   价格: %.4f USD/小时%s\n", best.Price, spotTag(best.Spot))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "所有可选方案（按价格从低到高，共 %d 条，显示 %d 条）:\n", result.Count, len(result.Offers))
	for i, offer := range result.Offers {
		marker := "  "
		if i == 0 {
			marker = "⭐ "
		}
		fmt.Fprintf(w, "%s%d. %s/%s (%s)\n", marker, i+1, offer.Provider, offer.InstanceName,
			service.DescribeResources(offer.RawOffer))
		fmt.Fprintf(w, "     价格: %.4f USD/小时%s\n", offer.Price, spotTag(offer.Spot))
		fmt.Fprintf(w, "     区域: %s\n", orDash(offer.Location))
	}
}

func printStatus(w io.Writer, status service.CatalogStatus) {
	fmt.Fprintf(w, "快照状态: %s\n", status.Mode)
	if status.Version != "" {
		fmt.Fprintf(w, "快照版本: %s\n", status.Version)
	}
	if status.LoadedAt != nil {
		fmt.Fprintf(w, "加载时间: %s\n", status.LoadedAt.Format("2006-01-02 15:04:05"))
	}
	if len(status.Providers) > 0 {
		fmt.Fprintf(w, "包含数据源: %v\n", status.Providers)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func spotTag(spot bool) string {
	if spot {
		return " [竞价]"
	}
	return ""
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// offerLine 单行格式的报价，watch 输出使用
func offerLine(o domain.Offer) string {
	return fmt.Sprintf("%s/%s %.4f USD/小时%s (%s)", o.Provider, o.InstanceName, o.Price, spotTag(o.Spot),
		service.DescribeResources(o.RawOffer))
}
