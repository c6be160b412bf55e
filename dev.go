package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/donutnomad/grpcerrgen/internal/utils"
	"github.com/donutnomad/grpcerrgen/plugin"
)

// DevOptions dev 命令选项
type DevOptions struct {
	Patterns []string      // 监听的路径模式
	Verbose  bool          // 详细输出
	Output   string        // 默认输出路径
	Async    bool          // 异步执行
	Debounce time.Duration // 防抖动时间
}

// devRunner 处理文件变动的核心逻辑
type devRunner struct {
	opts     *DevOptions
	registry *plugin.Registry
	scanner  *plugin.Scanner
	ctx      context.Context // 用于响应退出信号
	out      io.Writer

	// generate 默认为 runGenerate，测试中替换
	generate func(pkgDir string)

	// 防抖动相关
	mu          sync.Mutex
	pendingDirs map[string]*time.Timer // key: 包目录路径
}

func newDevRunner(ctx context.Context, opts *DevOptions, registry *plugin.Registry, out io.Writer) *devRunner {
	r := &devRunner{
		opts:        opts,
		registry:    registry,
		scanner:     plugin.NewScanner(plugin.WithAnnotationFilter(registry.Annotations()...)),
		ctx:         ctx,
		out:         out,
		pendingDirs: make(map[string]*time.Timer),
	}
	r.generate = r.runGenerate
	return r
}

// dev 启动开发模式，ctx 取消时退出
func dev(ctx context.Context, opts *DevOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听器失败: %w", err)
	}
	defer watcher.Close()

	runner := newDevRunner(ctx, opts, plugin.Global(), os.Stdout)
	defer runner.stop()

	dirs, err := collectWatchDirs(opts.Patterns)
	if err != nil {
		return fmt.Errorf("收集监听目录失败: %w", err)
	}
	if len(dirs) == 0 {
		return fmt.Errorf("没有找到需要监听的目录")
	}

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("添加监听目录失败 %s: %w", dir, err)
		}
		if opts.Verbose {
			fmt.Printf("监听目录: %s\n", dir)
		}
	}

	fmt.Printf("开发模式已启动，监听 %d 个目录\n", len(dirs))
	fmt.Println("按 Ctrl+C 退出")
	fmt.Println()

	return runner.watchLoop(watcher)
}

// stop 停止所有待处理的定时器
func (r *devRunner) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for dir, timer := range r.pendingDirs {
		timer.Stop()
		delete(r.pendingDirs, dir)
	}
}

// watchLoop 事件处理循环
func (r *devRunner) watchLoop(watcher *fsnotify.Watcher) error {
	for {
		select {
		case <-r.ctx.Done():
			fmt.Fprintln(r.out, "\n正在退出...")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			r.handleEvent(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if r.opts.Verbose {
				fmt.Fprintf(r.out, "监听错误: %v\n", err)
			}
		}
	}
}

// handleEvent 处理文件事件
func (r *devRunner) handleEvent(event fsnotify.Event) {
	// 只关注 Write 和 Create 事件
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	// 跳过测试文件和生成的文件
	filePath := event.Name
	if !plugin.IsSourceFile(filePath) {
		return
	}

	if r.opts.Verbose {
		fmt.Fprintf(r.out, "检测到文件变化: %s\n", filePath)
	}

	hasAnnotation, err := r.scanner.QuickMatchFile(filePath)
	if err != nil {
		if r.opts.Verbose {
			fmt.Fprintf(r.out, "检查注解失败 %s: %v\n", filePath, err)
		}
		return
	}
	if !hasAnnotation {
		if r.opts.Verbose {
			fmt.Fprintf(r.out, "跳过文件（无注解）: %s\n", filePath)
		}
		return
	}

	if err := utils.CheckSyntax(filePath); err != nil {
		fmt.Fprintf(r.out, "语法错误 %s: %v\n", filePath, err)
		return
	}

	r.scheduleGenerate(filepath.Dir(filePath))
}

// scheduleGenerate 防抖动调度生成
func (r *devRunner) scheduleGenerate(pkgDir string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if timer, exists := r.pendingDirs[pkgDir]; exists {
		timer.Stop()
	}

	r.pendingDirs[pkgDir] = time.AfterFunc(r.opts.Debounce, func() {
		if r.ctx.Err() != nil {
			return
		}

		r.generate(pkgDir)

		r.mu.Lock()
		delete(r.pendingDirs, pkgDir)
		r.mu.Unlock()
	})
}

// runGenerate 只生成变动的包
func (r *devRunner) runGenerate(pkgDir string) {
	if r.opts.Verbose {
		fmt.Fprintf(r.out, "触发代码生成: %s\n", pkgDir)
	}

	stats, err := plugin.Run(r.ctx, &plugin.RunOptions{
		Registry: r.registry,
		Patterns: []string{pkgDir},
		Verbose:  r.opts.Verbose,
		Output:   r.opts.Output,
		Async:    r.opts.Async,
		Stdout:   r.out,
	})
	if err != nil {
		fmt.Fprintf(r.out, "生成失败: %v\n", err)
		return
	}

	if stats != nil && stats.FileCount > 0 {
		fmt.Fprintf(r.out, "生成完成: %d 个文件 (耗时: %v)\n", stats.FileCount, stats.TotalDuration)
	} else if r.opts.Verbose {
		fmt.Fprintln(r.out, "生成完成: 无文件生成")
	}
}

// collectWatchDirs 收集所有需要监听的目录
func collectWatchDirs(patterns []string) ([]string, error) {
	var dirs []string
	seen := make(map[string]bool)

	add := func(dir string) {
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	for _, pattern := range patterns {
		recursive := strings.HasSuffix(pattern, "/...")
		absDir, err := filepath.Abs(strings.TrimSuffix(pattern, "/..."))
		if err != nil {
			return nil, err
		}

		info, err := os.Stat(absDir)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			continue
		}
		if !recursive {
			add(absDir)
			continue
		}

		err = filepath.Walk(absDir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return nil
			}
			// 跳过隐藏目录、vendor 和 testdata
			name := info.Name()
			if path != absDir && (strings.HasPrefix(name, ".") || name == "vendor" || name == "testdata") {
				return filepath.SkipDir
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return dirs, nil
}
