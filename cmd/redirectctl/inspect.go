package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/ashureev/inapp-redirector/internal/redirect"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// inspectReport is the printed outcome of one evaluated page load.
type inspectReport struct {
	Embedded       bool     `json:"embedded" yaml:"embedded"`
	HostApp        string   `json:"host_app,omitempty" yaml:"host_app,omitempty"`
	Platform       string   `json:"platform" yaml:"platform"`
	Loopback       bool     `json:"loopback" yaml:"loopback"`
	CleanURL       string   `json:"clean_url,omitempty" yaml:"clean_url,omitempty"`
	Mode           string   `json:"mode" yaml:"mode"`
	ShouldRedirect bool     `json:"should_redirect" yaml:"should_redirect"`
	Target         string   `json:"target,omitempty" yaml:"target,omitempty"`
	Reason         string   `json:"reason,omitempty" yaml:"reason,omitempty"`
	Log            []string `json:"log" yaml:"log"`
}

func newInspectCmd() *cobra.Command {
	var (
		tf      targetFlags
		ua      string
		pageURL string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show what a page view would do for a user agent and URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := tf.builder()
			if err != nil {
				return fmt.Errorf("building target: %w", err)
			}
			ctrl := redirect.NewController(redirect.Config{
				Builder: b,
				Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
			})

			d, entries := ctrl.Preview(context.Background(), ua, pageURL)
			report := inspectReport{
				Embedded:       d.Detection.Embedded,
				HostApp:        d.Detection.HostAppName,
				Platform:       d.Platform.String(),
				Loopback:       d.LoopGuard.IsLoopback,
				CleanURL:       d.CleanURL,
				Mode:           ctrl.Mode().String(),
				ShouldRedirect: d.ShouldRedirect(),
				Reason:         d.Reason,
				Log:            make([]string, 0, len(entries)),
			}
			if d.Target != nil {
				report.Target = d.Target.URI
			}
			for _, e := range entries {
				line := e.Message
				if e.IsError {
					line = "[error] " + line
				}
				report.Log = append(report.Log, line)
			}
			return writeReport(cmd.OutOrStdout(), output, report)
		},
	}

	tf.register(cmd)
	cmd.Flags().StringVar(&ua, "ua", "", "User agent string to classify")
	cmd.Flags().StringVar(&pageURL, "url", "", "Page URL as loaded in the in-app browser")
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format: yaml or json")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func writeReport(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
