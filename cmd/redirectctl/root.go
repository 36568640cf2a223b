package main

import (
	"github.com/ashureev/inapp-redirector/internal/domain"
	"github.com/ashureev/inapp-redirector/internal/target"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "redirectctl",
		Short: "Inspect in-app browser redirect decisions",
		Long: `redirectctl runs the redirector's detection and target construction
without a browser. It shows what a page view would do for a given user agent
and URL, builds redirect URIs, and unwraps them again.`,
		SilenceUsage: true,
	}

	root.AddCommand(newInspectCmd())
	root.AddCommand(newBuildCmd())
	root.AddCommand(newUnwrapCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("redirectctl v%s\n", Version)
		},
	})
	return root
}

// targetFlags are the target builder options shared by inspect and build.
type targetFlags struct {
	mode        string
	browserPkg  string
	androidPkg  string
	iosStoreURL string
}

func (f *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mode, "mode", "self-reopen", "Target mode: self-reopen or fixed-destination")
	cmd.Flags().StringVar(&f.browserPkg, "browser-package", "com.android.chrome", "Android browser package for self-reopen")
	cmd.Flags().StringVar(&f.androidPkg, "android-package", "", "Android app package for fixed-destination")
	cmd.Flags().StringVar(&f.iosStoreURL, "ios-store-url", "", "App Store URL for fixed-destination")
}

func (f *targetFlags) builder() (*target.Builder, error) {
	mode, err := domain.ParseTargetMode(f.mode)
	if err != nil {
		return nil, err
	}
	return target.New(target.Options{
		Mode:                  mode,
		AndroidBrowserPackage: f.browserPkg,
		AndroidAppPackage:     f.androidPkg,
		IOSStoreURL:           f.iosStoreURL,
	})
}
