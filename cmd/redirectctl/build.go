package main

import (
	"fmt"

	"github.com/ashureev/inapp-redirector/internal/domain"
	"github.com/ashureev/inapp-redirector/internal/target"
	"github.com/spf13/cobra"
)

func newBuildCmd() *cobra.Command {
	var (
		tf       targetFlags
		platform string
		pageURL  string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the redirect URI for a platform and page URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := domain.ParsePlatform(platform)
			if err != nil {
				return err
			}
			b, err := tf.builder()
			if err != nil {
				return fmt.Errorf("building target: %w", err)
			}
			tgt, err := b.Build(p, pageURL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tgt.URI)
			return nil
		},
	}

	tf.register(cmd)
	cmd.Flags().StringVar(&platform, "platform", "", "Target platform: android or ios")
	cmd.Flags().StringVar(&pageURL, "url", "", "Page URL to reopen")
	_ = cmd.MarkFlagRequired("platform")
	return cmd
}

func newUnwrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unwrap <uri>",
		Short: "Recover the https URL embedded in a redirect URI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := target.Unwrap(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}
}
