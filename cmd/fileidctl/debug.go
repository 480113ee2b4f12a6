package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/fileid"
)

// printResult writes v as JSON if --json was passed, else as a plain line
// via format/args.
func printResult(v any, format string, args ...any) {
	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(v)

		return
	}

	fmt.Printf(format+"\n", args...)
}

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index <path>",
		Short: "Return the ID at path, creating a record if one doesn't exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := buildLogger()

			m, closeFn, err := openManager(ctx, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			id, err := m.Index(ctx, args[0])
			if err != nil {
				return err
			}

			printResult(struct {
				Path string    `json:"path"`
				ID   fileid.ID `json:"id"`
			}{args[0], id}, "%s\t%s", id, args[0])

			return nil
		},
	}
}

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Look up the ID at path without creating a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := buildLogger()

			m, closeFn, err := openManager(ctx, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			id, found, err := m.GetID(ctx, args[0])
			if err != nil {
				return err
			}

			if !found {
				return fmt.Errorf("fileidctl: stat %s: %w", args[0], fileid.ErrNotFound)
			}

			printResult(struct {
				Path string    `json:"path"`
				ID   fileid.ID `json:"id"`
			}{args[0], id}, "%s\t%s", id, args[0])

			return nil
		},
	}
}

func newMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <old-path> <new-path>",
		Short: "Move the record at old-path to new-path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := buildLogger()

			m, closeFn, err := openManager(ctx, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			id, err := m.Move(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			printResult(struct {
				OldPath string    `json:"old_path"`
				NewPath string    `json:"new_path"`
				ID      fileid.ID `json:"id"`
			}{args[0], args[1], id}, "%s\t%s -> %s", id, args[0], args[1])

			return nil
		},
	}
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete the record at path and all its descendants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := buildLogger()

			m, closeFn, err := openManager(ctx, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := m.Delete(ctx, args[0]); err != nil {
				return err
			}

			printResult(struct {
				Path string `json:"path"`
			}{args[0]}, "removed\t%s", args[0])

			return nil
		},
	}
}
