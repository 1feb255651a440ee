package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BaSui01/turnkeeper/config"
	"github.com/BaSui01/turnkeeper/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "turnkeeper",
		Short:         "Group-chat turn scheduler backed by an LLM oracle",
		Long:          "turnkeeper decides which agent of a group chat speaks next and when the agents should pause for the user, using an LLM as the decision oracle.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (YAML)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSelectCmd(opts),
		newTerminateCmd(opts),
		newRunCmd(opts),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "TurnKeeper %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
			return err
		},
	}
}

// withApp 加载配置、装配依赖，执行 fn 后释放资源
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.NewLoader().
		WithConfigPath(opts.configPath).
		WithValidator(func(c *config.Config) error { return c.Validate() }).
		Load()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := wireApp(cfg, logger)
	if err != nil {
		logger.Error("failed to wire application", zap.Error(err))
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.Close(ctx)
	}()

	return fn(cmd.Context(), a)
}

// readConversation 读取对话快照，"-" 表示标准输入
func readConversation(cmd *cobra.Command, path string) (types.ConversationState, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return types.ConversationState{}, fmt.Errorf("open conversation: %w", err)
		}
		defer f.Close()
		r = f
	}

	var state types.ConversationState
	if err := json.NewDecoder(r).Decode(&state); err != nil {
		return types.ConversationState{}, fmt.Errorf("decode conversation: %w", err)
	}
	for i, m := range state.Messages {
		if m.Speaker == "" {
			return types.ConversationState{}, fmt.Errorf("message %d: speaker is required", i)
		}
		if m.Role == "" {
			state.Messages[i].Role = types.RoleAssistant
			if m.Speaker == types.SpeakerUser {
				state.Messages[i].Role = types.RoleUser
			}
		}
	}
	return state, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
