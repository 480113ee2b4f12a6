package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	_ "modernc.org/sqlite" // pure Go SQLite driver, registers as "sqlite"

	"github.com/tonimelisma/fileid"
)

// newDropTableCmd drops the files table in the configured store. Exits 0 on
// success; propagates a wrapped fileid.ErrNotFound (non-zero exit) if the
// table does not exist.
func newDropTableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop-table",
		Short: "Drop the files table in the configured store",
		Long:  "Administrative escape hatch: deletes all records by dropping the backing table outright.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			storePath, err := resolveStorePath()
			if err != nil {
				return err
			}

			return dropFilesTable(cmd.Context(), storePath)
		},
	}
}

func dropFilesTable(ctx context.Context, storePath string) error {
	db, err := sql.Open("sqlite", storePath)
	if err != nil {
		return fmt.Errorf("fileidctl: opening %s: %w", storePath, err)
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, "DROP TABLE files")
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return fmt.Errorf("fileidctl: drop-table %s: %w", storePath, fileid.ErrNotFound)
		}

		return fmt.Errorf("fileidctl: drop-table %s: %w", storePath, err)
	}

	return nil
}
