package main

import (
	"os"

	"github.com/aretw0/lantern"
	"github.com/aretw0/lantern/internal/cli"
	"github.com/aretw0/lantern/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <experience-id>",
	Short: "Play an experience headlessly",
	Long: `Starts an experience in the modal context, renders its steps to stdout and
drives it with a comma separated script, e.g. --script "next,next,back,close".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		script, _ := cmd.Flags().GetString("script")
		quiet, _ := cmd.Flags().GetBool("quiet")

		var opts []lantern.Option
		if !quiet {
			tui.PrintBanner(os.Stdout)
			opts = append(opts, lantern.WithObserver(cli.TraceObserver(os.Stderr)))
		}

		rt, err := cli.NewRuntime(cfg, os.Stdout, logger, opts...)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		if err := rt.Engine.Show(ctx, args[0]); err != nil {
			return err
		}
		return cli.Play(ctx, rt, cli.ParseScript(script))
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("script", "s", "", "Comma separated commands to play after the first step")
	runCmd.Flags().BoolP("quiet", "q", false, "Only print step content")
}
