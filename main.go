package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/donutnomad/grpcerrgen/grpcerrgen"
	"github.com/donutnomad/grpcerrgen/plugin"
)

func init() {
	// 集中注册所有生成器
	plugin.MustRegister(grpcerrgen.NewGenerator())
}

// globalOptions 所有子命令共享的选项
type globalOptions struct {
	verbose bool
	output  string
	async   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		if !errors.Is(err, plugin.ErrGenerate) {
			fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "grpcerrgen [路径...]",
		Short: "为密封错误接口生成 gRPC status 转换函数",
		Long: `grpcerrgen 扫描带 @GrpcError 注解的错误接口，为其生成 <类型名>ToStatus 函数。

变体上的 @GrpcStatus(code=...) 指定状态码，未标注的变体使用 Internal。
Internal 错误会被记录到日志，调用方只收到 "Internal server error."。

路径:
  支持 Go 包路径模式，如:
    ./...          递归扫描当前目录及子目录（默认）
    ./pkg/...      递归扫描指定目录

模板变量:
  $FILE     - 源文件名（不含 .go 后缀）
  $PACKAGE  - 包名`,
		Example: `  grpcerrgen                                扫描当前目录（默认 ./...）
  grpcerrgen gen -v ./internal/...          详细模式扫描 internal 目录
  grpcerrgen gen --diff ./...               只输出 diff，不写文件
  grpcerrgen gen --output '$FILE_status' .  指定输出文件名
  grpcerrgen dev ./...                      开发模式，监听文件变动
  grpcerrgen annotations                    查看支持的注解`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 默认命令是 gen
			return runGen(cmd.Context(), opts, args, false)
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "详细输出")
	flags.StringVar(&opts.output, "output", "", "默认输出路径（支持模板变量 $FILE, $PACKAGE），优先级低于注解和 go:gogen: 配置")
	flags.BoolVar(&opts.async, "async", true, "异步执行生成器")

	root.AddCommand(
		newGenCommand(opts),
		newDevCommand(opts),
		newAnnotationsCommand(),
	)
	return root
}

func newGenCommand(opts *globalOptions) *cobra.Command {
	var diff bool

	cmd := &cobra.Command{
		Use:   "gen [路径...]",
		Short: "执行代码生成",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(cmd.Context(), opts, args, diff)
		},
	}
	cmd.Flags().BoolVar(&diff, "diff", false, "只输出生成文件的 unified diff，不写文件")
	return cmd
}

func newDevCommand(opts *globalOptions) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "dev [路径...]",
		Short: "开发模式，监听文件变动自动生成",
		RunE: func(cmd *cobra.Command, args []string) error {
			return dev(cmd.Context(), &DevOptions{
				Patterns: defaultPatterns(args),
				Verbose:  opts.verbose,
				Output:   opts.output,
				Async:    opts.async,
				Debounce: debounce,
			})
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "文件变动后等待多久再生成")
	return cmd
}

func newAnnotationsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "annotations",
		Short: "列出支持的注解及参数",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), plugin.FormatHelpText(plugin.Global()))
		},
	}
}

func defaultPatterns(args []string) []string {
	if len(args) == 0 {
		return []string{"./..."}
	}
	return args
}

func runGen(ctx context.Context, opts *globalOptions, args []string, diff bool) error {
	registry := plugin.Global()
	if opts.verbose {
		fmt.Printf("已注册 %d 个生成器:\n", len(registry.Generators()))
		for _, gen := range registry.Generators() {
			anns := lo.Map(gen.Annotations(), func(item string, index int) string {
				return "@" + item
			})
			fmt.Printf("  - %s (%s)\n", gen.Name(), strings.Join(anns, ","))
		}
		fmt.Println()
	}

	stats, err := plugin.Run(ctx, &plugin.RunOptions{
		Registry: registry,
		Patterns: defaultPatterns(args),
		Verbose:  opts.verbose,
		Output:   opts.output,
		Async:    opts.async,
		Diff:     diff,
	})
	if err != nil {
		return err
	}

	// 输出统计信息
	if !diff && stats != nil && (stats.FileCount > 0 || opts.verbose) {
		fmt.Printf("\n统计: 扫描 %d 个目标, 生成 %d 个文件\n", stats.TargetCount, stats.FileCount)
		fmt.Printf("耗时: 扫描 %v, 生成 %v, 总计 %v\n", stats.ScanDuration, stats.GenerateDuration, stats.TotalDuration)
	}
	return nil
}
