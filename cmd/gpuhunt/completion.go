package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/lucksec/gpuhunt/internal/catalog"
	"github.com/lucksec/gpuhunt/internal/domain"
	"github.com/lucksec/gpuhunt/internal/provider"
	"github.com/spf13/cobra"
)

// knownProviders 补全使用的数据源列表（离线在前）
func knownProviders() [][2]string {
	var names [][2]string
	for _, name := range catalog.OfflineProviders {
		names = append(names, [2]string{name, "离线快照"})
	}
	for _, name := range provider.Online {
		names = append(names, [2]string{name, "在线"})
	}
	return names
}

// completeProviders 补全数据源名称，支持逗号分隔的多个值
func completeProviders(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	prefix, current := splitListArg(toComplete)
	var completions []string
	for _, p := range knownProviders() {
		if strings.HasPrefix(p[0], strings.ToLower(current)) {
			completions = append(completions, fmt.Sprintf("%s%s\t%s", prefix, p[0], p[1]))
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

// completeOnlineProviders 补全在线数据源名称
func completeOnlineProviders(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var completions []string
	for _, name := range provider.Online {
		if strings.HasPrefix(name, strings.ToLower(toComplete)) {
			completions = append(completions, name)
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

// completeGPUs 补全 GPU 型号，支持逗号分隔的多个值
func completeGPUs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	prefix, current := splitListArg(toComplete)
	var completions []string
	for _, gpu := range domain.KnownGPUs {
		if strings.HasPrefix(strings.ToLower(gpu.Name), strings.ToLower(current)) {
			completions = append(completions, fmt.Sprintf("%s%s\t%s %gGB", prefix, gpu.Name, gpu.Vendor, gpu.Memory))
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

// completeVendors 补全 GPU 厂商
func completeVendors(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var completions []string
	for _, v := range []domain.AcceleratorVendor{domain.VendorNVIDIA, domain.VendorAMD, domain.VendorGoogle, domain.VendorIntel} {
		completions = append(completions, strings.ToLower(string(v)))
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

// splitListArg 拆分逗号分隔参数中已完成的部分和正在输入的部分
func splitListArg(s string) (prefix, current string) {
	if i := strings.LastIndex(s, ","); i >= 0 {
		return s[:i+1], s[i+1:]
	}
	return "", s
}

// setupDynamicCompletion 设置动态补全
func setupDynamicCompletion(rootCmd *cobra.Command) {
	// 查询条件相关的参数补全
	for _, name := range []string{"query", "watch"} {
		cmd := findCommand(rootCmd, name)
		if cmd == nil {
			continue
		}
		_ = cmd.RegisterFlagCompletionFunc("provider", completeProviders)
		_ = cmd.RegisterFlagCompletionFunc("gpu", completeGPUs)
		_ = cmd.RegisterFlagCompletionFunc("gpu-vendor", completeVendors)
	}

	if packCmd := findCommand(rootCmd, "pack"); packCmd != nil {
		packCmd.ValidArgsFunction = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveFilterDirs
		}
	}
}

// findCommand 查找命令
func findCommand(root *cobra.Command, name string) *cobra.Command {
	for _, cmd := range root.Commands() {
		if cmd.Name() == name {
			return cmd
		}
		// 递归查找子命令
		if found := findCommand(cmd, name); found != nil {
			return found
		}
	}
	return nil
}

// setupCompletion 设置自动补全命令
func setupCompletion(rootCmd *cobra.Command) {
	// 添加 completion 命令
	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "生成自动补全脚本",
		Long: `生成指定 shell 的自动补全脚本。

支持的 shell: bash, zsh, fish, powershell

安装方法:

Bash:
  $ source <(gpuhunt completion bash)

  # 或添加到 ~/.bashrc
  $ echo 'source <(gpuhunt completion bash)' >> ~/.bashrc

Zsh:
  $ source <(gpuhunt completion zsh)

  # 或添加到 ~/.zshrc
  $ echo 'source <(gpuhunt completion zsh)' >> ~/.zshrc

Fish:
  $ gpuhunt completion fish | source

  # 或添加到 ~/.config/fish/completions/gpuhunt.fish
  $ gpuhunt completion fish > ~/.config/fish/completions/gpuhunt.fish

PowerShell:
  $ gpuhunt completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		// 生成脚本不需要加载配置和快照
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(os.Stdout)
			case "zsh":
				return rootCmd.GenZshCompletion(os.Stdout)
			case "fish":
				return rootCmd.GenFishCompletion(os.Stdout, true)
			default:
				return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
			}
		},
	}

	rootCmd.AddCommand(completionCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
