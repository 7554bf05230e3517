package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/lucksec/gpuhunt/internal/provider"
	"github.com/lucksec/gpuhunt/internal/repository"
	"github.com/lucksec/gpuhunt/internal/service"
	"github.com/spf13/cobra"
)

// dumpCmd 抓取在线数据源并保存为快照表格
func dumpCmd(a *app) *cobra.Command {
	var (
		output   string
		dir      string
		noFilter bool
	)

	cmd := &cobra.Command{
		Use:   "dump <provider>",
		Short: "抓取在线数据源的全部报价并保存为快照表格",
		Long: `抓取在线数据源的全部报价，保存为与离线快照相同格式的 CSV 表格。

默认会合并实例名称、区域、竞价属性都相同的重复报价，--no-filter 可关闭。
使用 --dir 时写入快照目录（<dir>/<provider>.csv），之后可用 pack 打包。`,
		Example: `  # 输出到标准输出
  gpuhunt dump crusoe

  # 保存到文件
  gpuhunt dump coreweave --output coreweave.csv

  # 写入快照目录
  gpuhunt dump hyperstack --dir ./snapshot`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeOnlineProviders,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: a.cfg.HTTP.Timeout}
			p, err := service.NewProvider(args[0], client, a.log)
			if err != nil {
				return err
			}

			offers, err := p.Fetch(context.Background(), nil, false)
			if err != nil {
				return err
			}
			fetched := len(offers)
			if f, ok := p.(provider.Filterer); ok && !noFilter {
				offers = f.Filter(offers)
			}
			a.log.Info("%s 共抓取 %d 条报价，保留 %d 条", p.Name(), fetched, len(offers))

			if dir != "" {
				repo := repository.NewOfferRepository(dir)
				if err := repo.Save(p.Name(), offers); err != nil {
					return err
				}
				fmt.Printf("已保存 %d 条报价到快照目录: %s\n", len(offers), dir)
				return nil
			}

			if output == "" || output == "-" {
				return repository.WriteCSV(os.Stdout, offers)
			}
			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("创建文件失败: %w", err)
			}
			if err := repository.WriteCSV(file, offers); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("写入文件失败: %w", err)
			}
			fmt.Printf("已保存 %d 条报价到: %s\n", len(offers), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "输出文件（默认标准输出）")
	cmd.Flags().StringVar(&dir, "dir", "", "写入快照目录")
	cmd.Flags().BoolVar(&noFilter, "no-filter", false, "保留重复报价")
	cmd.MarkFlagsMutuallyExclusive("output", "dir")
	return cmd
}

// packCmd 将快照目录打包为归档
func packCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "pack <dir>",
		Short: "将快照目录打包为快照归档",
		Long: `将快照目录中的 <provider>.csv 表格打包为 zip 归档，
归档格式与离线快照下载地址提供的格式相同。`,
		Example: `  gpuhunt pack ./snapshot --output catalog.zip`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := repository.NewOfferRepository(args[0])
			names, err := repo.List()
			if err != nil {
				return err
			}

			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("创建文件失败: %w", err)
			}
			if err := repo.Pack(file); err != nil {
				file.Close()
				os.Remove(output)
				return err
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("写入文件失败: %w", err)
			}
			fmt.Printf("已打包 %d 个数据源 %v 到: %s\n", len(names), names, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "catalog.zip", "归档文件路径")
	return cmd
}
