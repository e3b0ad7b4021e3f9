package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/therealutkarshpriyadarshi/captioner/internal/captions"
)

func newRootCommand() *cobra.Command {
	var outDir string
	var reverse bool

	cmd := &cobra.Command{
		Use:   "srt2json <file>",
		Short: "Convert an SRT subtitle file into caption JSON",
		Long: "Convert an SRT subtitle file into the caption JSON read by the renderer.\n" +
			"The output is written to <out-dir>/<stem>.json. With --reverse a caption JSON\n" +
			"file is converted back to <out-dir>/<stem>.srt.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			info, err := os.Stat(src)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("file does not exist: %s", src)
				}
				return fmt.Errorf("inspect file: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", src)
			}

			if err := os.MkdirAll(outDir, 0755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			base := filepath.Base(src)
			stem := strings.TrimSuffix(base, filepath.Ext(base))

			var dst string
			if reverse {
				dst = filepath.Join(outDir, stem+".srt")
				err = jsonToSRT(src, dst)
			} else {
				dst = filepath.Join(outDir, stem+".json")
				err = srtToJSON(src, dst)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Converted %s to %s\n", src, dst)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "public", "directory the converted file is written to")
	cmd.Flags().BoolVar(&reverse, "reverse", false, "convert caption JSON back to SRT")

	return cmd
}

func srtToJSON(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read subtitles: %w", err)
	}

	list := captions.ParseSRT(string(data))
	if err := captions.Validate(list); err != nil {
		return err
	}
	return captions.WriteFile(dst, list)
}

func jsonToSRT(src, dst string) error {
	list, err := captions.LoadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, []byte(captions.FormatSRT(list)), 0644); err != nil {
		return fmt.Errorf("write subtitles: %w", err)
	}
	return nil
}
