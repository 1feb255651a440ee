// =============================================================================
// 🚀 TurnKeeper 命令行入口
// =============================================================================
// 针对一份对话快照（JSON）执行发言调度决策
//
// 使用方法:
//
//	turnkeeper select    --conversation conv.json   # 选择下一位发言者
//	turnkeeper terminate --conversation conv.json   # 判断是否暂停对话
//	turnkeeper run       --conversation conv.json   # 运行参考对话循环
//	turnkeeper version                              # 显示版本信息
//
// 配置: --config turnkeeper.yaml，或 TURNKEEPER_* 环境变量
// =============================================================================
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// 构建时通过 -ldflags 注入
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
