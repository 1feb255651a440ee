package main

import (
	"context"

	"github.com/BaSui01/turnkeeper/agent/conversation"
	"github.com/BaSui01/turnkeeper/types"
	"github.com/spf13/cobra"
)

func newSelectCmd(opts *rootOptions) *cobra.Command {
	var conversationPath string
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Select the next speaker of a conversation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := readConversation(cmd, conversationPath)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				sel, err := a.scheduler.SelectNext(ctx, state)
				if err != nil {
					return err
				}
				// 空名册输出 null
				return writeJSON(cmd, sel)
			})
		},
	}
	cmd.Flags().StringVar(&conversationPath, "conversation", "", "conversation snapshot JSON file, - for stdin")
	_ = cmd.MarkFlagRequired("conversation")
	return cmd
}

func newTerminateCmd(opts *rootOptions) *cobra.Command {
	var conversationPath string
	cmd := &cobra.Command{
		Use:   "terminate",
		Short: "Decide whether the agents should pause for the user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := readConversation(cmd, conversationPath)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				d, err := a.scheduler.ShouldTerminate(ctx, state)
				if err != nil {
					return err
				}
				return writeJSON(cmd, d)
			})
		},
	}
	cmd.Flags().StringVar(&conversationPath, "conversation", "", "conversation snapshot JSON file, - for stdin")
	_ = cmd.MarkFlagRequired("conversation")
	return cmd
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		conversationPath string
		message          string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the reference chat loop until the agents pause",
		Long:  "run lets the configured model role-play the selected agents until the termination check pauses the conversation, the round limit is hit, or the command is interrupted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := readConversation(cmd, conversationPath)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				run := a.loop.Run
				if message != "" {
					run = func(ctx context.Context, s types.ConversationState) (*conversation.LoopResult, error) {
						return a.loop.Resume(ctx, s, message)
					}
				}
				res, err := run(ctx, state)
				if res != nil {
					if werr := writeJSON(cmd, res); werr != nil && err == nil {
						err = werr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&conversationPath, "conversation", "", "conversation snapshot JSON file, - for stdin")
	cmd.Flags().StringVar(&message, "message", "", "user message appended before the loop starts")
	_ = cmd.MarkFlagRequired("conversation")
	return cmd
}
