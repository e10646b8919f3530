package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klabast/wb-services/my-schedule/internal/app"
)

func newBackupCmd(e *env) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a backup of the schedule data now",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := e.cfg
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if dir == "" {
				dir = cfg.BackupPath()
			}

			st, err := app.OpenStore(cfg, e.log)
			if err != nil {
				return fmt.Errorf("failed to open %s storage: %w", cfg.Storage, err)
			}
			defer st.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			path, err := app.RunBackup(ctx, st, dir, cfg.Backup.Keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Backup created: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Backup directory (default <data_dir>/backup)")
	return cmd
}
