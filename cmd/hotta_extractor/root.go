package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shiroemons/go-hotta-extractor/internal/hotta/app"
	"github.com/shiroemons/go-hotta-extractor/internal/hotta/config"
	"github.com/shiroemons/go-hotta-extractor/internal/hotta/logging"
)

// newRootCmd はルートコマンドを作成します。
// ルートコマンドと extract サブコマンドは同じ抽出処理を実行します。
func newRootCmd() *cobra.Command {
	v := viper.New()
	runE := func(cmd *cobra.Command, args []string) error {
		return runExtract(cmd, v, args)
	}

	root := &cobra.Command{
		Use:   "hotta_extractor [GAME_DIR]",
		Short: "Decode Tower of Fantasy packages and log their exported objects",
		Long: `hotta_extractor opens the .pak archives under GAME_DIR, selects asset paths
with include (--filter) and skip (--skip) substrings plus a case-insensitive
marker token (--marker), and logs every exported object of each selected
package as indented JSON or YAML.`,
		Version:       config.Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runE,
	}
	config.AddFlags(root.PersistentFlags())

	extract := &cobra.Command{
		Use:     "extract [GAME_DIR]",
		Aliases: []string{"ex", "unpack"},
		Short:   "Extract and decode the selected assets (default command)",
		Args:    cobra.MaximumNArgs(1),
		RunE:    runE,
	}
	root.AddCommand(extract)

	return root
}

// runExtract は設定を解決し、ロガーを設定して抽出を実行します
func runExtract(cmd *cobra.Command, v *viper.Viper, args []string) error {
	config.LoadDotEnv()

	req, err := config.Load(v, cmd.Flags(), args)
	if err != nil {
		return err
	}

	logging.Setup(cmd.OutOrStdout(), req.Debug)
	return app.New(req).Run(cmd.Context())
}
