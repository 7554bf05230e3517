package main

import (
	"fmt"
	"os"
	"strings"

	prompt "github.com/c-bata/go-prompt"
	"github.com/lucksec/gpuhunt/internal/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// consoleUnsupported 需要独占终端或信号的命令，不能在控制台中运行
var consoleUnsupported = map[string]string{
	"console": "已在控制台中",
	"serve":   "请在命令行中直接运行 gpuhunt serve",
	"watch":   "请在命令行中直接运行 gpuhunt watch",
}

// console 表示交互式控制台结构体
// 使用 go-prompt 提供带 Tab 补全的 REPL（读取-执行-输出）循环
type console struct {
	app *app
}

// newConsoleCmd 创建控制台命令
// 用户执行 `gpuhunt console` 即可进入交互式控制台
func newConsoleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console",
		Short: "进入交互式控制台",
		Long: `进入交互式控制台，连续执行查询命令，离线快照在多次查询之间复用。

示例:
  gpuhunt console

进入控制台后，可使用命令:
  help                         显示帮助
  query [flags]                查询报价，如 query --gpu H100 --min-gpu-count 2
  providers                    列出数据源
  catalog [--reload]           查看或刷新快照状态
  dump <provider> [flags]      抓取在线数据源
  pack <dir> [flags]           打包快照目录
  config                       输出生效配置
  exit / quit                  退出控制台`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &console{app: a}
			return c.run()
		},
	}

	return cmd
}

// run 启动交互式控制台主循环（带 Tab 补全）
func (c *console) run() error {
	c.printWelcome()

	// 使用 go-prompt 提供交互式输入和 Tab 补全
	p := prompt.New(
		c.executor,                                          // 输入执行函数
		c.completer,                                         // 补全函数
		prompt.OptionPrefix("gpuhunt> "),                    // 提示符
		prompt.OptionTitle("gpuhunt console"),               // 标题
		prompt.OptionSuggestionBGColor(prompt.DarkGray),     // 建议背景色
		prompt.OptionSuggestionTextColor(prompt.White),      // 建议文字颜色
		prompt.OptionSelectedSuggestionBGColor(prompt.Blue), // 选中建议背景色
		prompt.OptionSelectedSuggestionTextColor(prompt.White),
	)

	// Run 会阻塞，直到用户退出（Ctrl+D）
	p.Run()
	fmt.Println("\n已退出控制台。")
	return nil
}

// executor 执行单行命令
func (c *console) executor(in string) {
	line := strings.TrimSpace(in)
	if line == "" {
		return
	}
	if err := c.handleCommand(line); err != nil {
		fmt.Printf("错误: %v\n", err)
	}
}

// handleCommand 解析并处理一条命令
// 每条命令使用新建的命令树执行，避免上一条命令的参数残留
func (c *console) handleCommand(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	switch parts[0] {
	case "help", "h", "?":
		c.printHelp()
		return nil
	case "exit", "quit", "q":
		fmt.Println("退出控制台。")
		c.app.close()
		os.Exit(0)
	}
	if reason, ok := consoleUnsupported[parts[0]]; ok {
		return fmt.Errorf("%s 不能在控制台中使用: %s", parts[0], reason)
	}

	root := newRootCmd(c.app)
	if sub, _, err := root.Find(parts); err != nil || sub == root {
		fmt.Println("未知命令。输入 'help' 查看支持的命令。")
		return nil
	}
	root.SetArgs(parts)
	return root.Execute()
}

// completer 提供 Tab 补全
func (c *console) completer(d prompt.Document) []prompt.Suggest {
	text := d.TextBeforeCursor()
	parts := strings.Fields(text)

	// 当前正在输入的 token；刚输入空格时为空
	current := ""
	if len(parts) > 0 && !strings.HasSuffix(text, " ") {
		current = parts[len(parts)-1]
		parts = parts[:len(parts)-1]
	}

	// 正在输入第一个单词（顶级命令）
	if len(parts) == 0 {
		return c.topLevelSuggestions(current)
	}

	cmd, _, err := newRootCmd(c.app).Find(parts[:1])
	if err != nil || cmd.Name() != parts[0] {
		return []prompt.Suggest{}
	}

	// 上一个 token 是需要取值的参数时补全取值
	if prev := parts[len(parts)-1]; strings.HasPrefix(prev, "-") && !strings.Contains(prev, "=") {
		if fl := lookupFlag(cmd.Flags(), prev); fl != nil && fl.NoOptDefVal == "" {
			return c.completeFlagValue(fl.Name, current)
		}
	}

	if strings.HasPrefix(current, "-") {
		return flagSuggestions(cmd.Flags(), current)
	}

	// 位置参数
	switch cmd.Name() {
	case "dump":
		if len(parts) == 1 {
			return c.completeFlagValue("dump", current)
		}
	}
	return []prompt.Suggest{}
}

// topLevelSuggestions 顶级命令补全
func (c *console) topLevelSuggestions(current string) []prompt.Suggest {
	cmds := []prompt.Suggest{
		{Text: "help", Description: "显示帮助"},
		{Text: "exit", Description: "退出控制台"},
		{Text: "quit", Description: "退出控制台"},
	}
	for _, sub := range newRootCmd(c.app).Commands() {
		if _, ok := consoleUnsupported[sub.Name()]; ok || sub.Hidden {
			continue
		}
		cmds = append(cmds, prompt.Suggest{Text: sub.Name(), Description: sub.Short})
	}
	return prompt.FilterHasPrefix(cmds, current, true)
}

// completeFlagValue 补全参数取值
func (c *console) completeFlagValue(name, current string) []prompt.Suggest {
	var res []prompt.Suggest
	switch name {
	case "provider":
		prefix, cur := splitListArg(current)
		for _, p := range knownProviders() {
			if strings.HasPrefix(p[0], strings.ToLower(cur)) {
				res = append(res, prompt.Suggest{Text: prefix + p[0], Description: p[1]})
			}
		}
	case "dump":
		for _, p := range knownProviders() {
			if p[1] == "在线" && strings.HasPrefix(p[0], strings.ToLower(current)) {
				res = append(res, prompt.Suggest{Text: p[0], Description: "在线数据源"})
			}
		}
	case "gpu":
		prefix, cur := splitListArg(current)
		for _, gpu := range domain.KnownGPUs {
			if strings.HasPrefix(strings.ToLower(gpu.Name), strings.ToLower(cur)) {
				res = append(res, prompt.Suggest{
					Text:        prefix + gpu.Name,
					Description: fmt.Sprintf("%s %gGB", gpu.Vendor, gpu.Memory),
				})
			}
		}
	case "gpu-vendor":
		vendors, _ := completeVendors(nil, nil, current)
		for _, v := range vendors {
			res = append(res, prompt.Suggest{Text: v, Description: "GPU 厂商"})
		}
		res = prompt.FilterHasPrefix(res, current, true)
	}
	return res
}

// flagSuggestions 列出命令支持的参数
func flagSuggestions(fs *pflag.FlagSet, current string) []prompt.Suggest {
	var res []prompt.Suggest
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == "help" {
			return
		}
		res = append(res, prompt.Suggest{Text: "--" + f.Name, Description: f.Usage})
		if f.Shorthand != "" {
			res = append(res, prompt.Suggest{Text: "-" + f.Shorthand, Description: f.Usage})
		}
	})
	return prompt.FilterHasPrefix(res, current, false)
}

func lookupFlag(fs *pflag.FlagSet, token string) *pflag.Flag {
	if strings.HasPrefix(token, "--") {
		return fs.Lookup(strings.TrimPrefix(token, "--"))
	}
	return fs.ShorthandLookup(strings.TrimPrefix(token, "-"))
}

// printWelcome 打印欢迎信息和基础命令提示
func (c *console) printWelcome() {
	fmt.Println("╔═════════════════════════════════════════════════════════╗")
	fmt.Println("║              gpuhunt 交互式控制台                       ║")
	fmt.Println("╚═════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Println("提示: 输入 'help' 查看可用命令，输入 'exit' 或 'quit' 退出")
	fmt.Println("      按 Tab 键自动补全命令、参数、数据源和 GPU 型号")
	fmt.Println()
}

func (c *console) printHelp() {
	fmt.Println("可用命令:")
	fmt.Println("  help                          显示本帮助")
	fmt.Println("  exit | quit                   退出控制台")
	fmt.Println()
	fmt.Println("  query [flags]                 按条件查询报价（按价格从低到高）")
	fmt.Println("                                如: query --gpu H100,A100 --min-gpu-count 2 --spot=false")
	fmt.Println("  query --recommend [flags]     只输出最优方案")
	fmt.Println("  providers                     列出可查询的数据源")
	fmt.Println("  catalog [--reload]            查看快照状态（--reload 立即下载最新快照）")
	fmt.Println()
	fmt.Println("  dump <provider> [-o file]     抓取在线数据源的全部报价")
	fmt.Println("  pack <dir> [-o catalog.zip]   将快照目录打包为归档")
	fmt.Println("  config                        输出生效配置")
	fmt.Println()
	fmt.Println("提示: 任意命令后加 --help 查看完整参数。")
}
