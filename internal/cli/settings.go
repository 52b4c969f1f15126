package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	githubadapter "github.com/ericfisherdev/pyautofix/internal/adapter/driven/github"
	"github.com/ericfisherdev/pyautofix/internal/application"
	"github.com/ericfisherdev/pyautofix/internal/domain/model"
)

var (
	settingsInstallation int64
	settingsOwner        string
	settingsRepo         string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage the per-repository settings issue",
}

var settingsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Open the settings issue with unsafe fixes disabled",
	Long: `init opens an issue titled "` + model.SettingsIssueTitle + `" holding the
default settings. A repository admin can then edit it to opt in to unsafe
fixes. Nothing is changed when the issue already exists.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		cfg, err := configFor(ctx)
		if err != nil {
			return err
		}
		if cfg.AppID <= 0 || (cfg.PrivateKey == "" && cfg.PrivateKeyPath == "") {
			return errors.New("PYAUTOFIX_APP_ID and a private key are required")
		}
		key, err := cfg.PrivateKeyPEM()
		if err != nil {
			return err
		}
		provider, err := githubadapter.NewAppProvider(cfg.AppID, key, cfg.GitHubAPIURL)
		if err != nil {
			return err
		}
		inst, err := provider.Installation(ctx, settingsInstallation)
		if err != nil {
			return err
		}

		issue, created, err := application.NewSettingsStore(nil).InitSettings(ctx, inst.GitHub, settingsOwner, settingsRepo)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "created settings issue #%d in %s/%s\n", issue.Number, settingsOwner, settingsRepo)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "settings issue #%d already open in %s/%s\n", issue.Number, settingsOwner, settingsRepo)
		}
		return nil
	},
}

func init() {
	f := settingsInitCmd.Flags()
	f.Int64Var(&settingsInstallation, "installation", 0, "GitHub App installation id")
	f.StringVar(&settingsOwner, "owner", "", "repository owner")
	f.StringVar(&settingsRepo, "repo", "", "repository name")
	for _, name := range []string{"installation", "owner", "repo"} {
		_ = settingsInitCmd.MarkFlagRequired(name)
	}

	settingsCmd.AddCommand(settingsInitCmd)
}
