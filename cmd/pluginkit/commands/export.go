package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pluginkit/pkg/blob"
	"pluginkit/pkg/export"
)

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <rows.json>",
		Short: "Render a JSON array of objects as CSV, JSON or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var rows []export.Row
			if err := json.Unmarshal(data, &rows); err != nil {
				return fmt.Errorf("%s: expected a JSON array of objects: %w", args[0], err)
			}

			name := a.v.GetString("export.name")
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			var columns []export.Column
			for _, c := range a.v.GetStringSlice("export.columns") {
				key, label, _ := strings.Cut(c, ":")
				columns = append(columns, export.Column{Key: key, Label: label})
			}
			opts := export.Options{
				Plugin:           a.v.GetString("export.plugin"),
				FilenameTemplate: a.v.GetString("export.filename"),
				CSVBOM:           a.v.GetBool("export.bom"),
			}

			var (
				store blob.Store
				batch string
			)
			outDir := a.v.GetString("export.out")
			if a.v.GetBool("export.store") {
				if store, err = blob.Open(cmd.Context()); err != nil {
					return err
				}
				batch = uuid.NewString()
			} else if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			for _, raw := range a.v.GetStringSlice("export.format") {
				format, err := export.ParseFormat(raw)
				if err != nil {
					return err
				}
				art, err := export.Render(export.Table{Name: name, Columns: columns, Rows: rows}, format, opts)
				if err != nil {
					return err
				}
				size := humanize.Bytes(uint64(len(art.Payload)))
				if store != nil {
					owner := opts.Plugin
					if owner == "" {
						owner = "cli"
					}
					key := path.Join(export.ArtifactPrefix, owner, batch, art.Filename)
					obj, err := store.Put(cmd.Context(), key, bytes.NewReader(art.Payload), blob.WriteOptions{
						ContentType: art.ContentType,
						Metadata: map[string]string{
							blob.MetaFilename: art.Filename,
							blob.MetaPlugin:   opts.Plugin,
							blob.MetaFormat:   string(format),
						},
					})
					if err != nil {
						return err
					}
					a.log.Info().Str("key", obj.Key).Str("driver", string(store.Driver())).Str("format", string(format)).Msg("export stored")
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", obj.Key, size, obj.URL)
					continue
				}
				file := filepath.Join(outDir, art.Filename)
				if err := os.WriteFile(file, art.Payload, 0o644); err != nil {
					return err
				}
				a.log.Info().Str("path", file).Str("format", string(format)).Int("rows", len(rows)).Msg("export written")
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", file, size)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringSliceP("format", "f", []string{"csv"}, "output formats (csv, json, xlsx)")
	flags.String("name", "", "export name (default: input file name)")
	flags.StringP("out", "o", ".", "output directory")
	flags.String("plugin", "", "plugin handle used in the file name")
	flags.String("filename", "", "file name template, e.g. {plugin}-{name}-{date}")
	flags.StringSlice("columns", nil, "columns as key:Label, in order")
	flags.Bool("bom", false, "prefix CSV with a UTF-8 byte order mark")
	flags.Bool("store", false, "write into the artifact store selected by PLUGINKIT_BLOB_* instead of --out")
	for _, name := range []string{"format", "name", "out", "plugin", "filename", "columns", "bom", "store"} {
		_ = a.v.BindPFlag("export."+name, flags.Lookup(name))
	}
	cmd.AddCommand(newExportPruneCmd(a))
	return cmd
}

func newExportPruneCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete stored export artifacts older than --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := blob.Open(cmd.Context())
			if err != nil {
				return err
			}
			age := a.v.GetDuration("export.prune.older-than")
			removed, err := blob.Prune(cmd.Context(), store, a.v.GetString("export.prune.prefix"), time.Now().Add(-age))
			for _, key := range removed {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			a.log.Info().Int("removed", len(removed)).Dur("older_than", age).Msg("export artifacts pruned")
			return err
		},
	}
	cmd.Flags().Duration("older-than", 30*24*time.Hour, "minimum artifact age")
	cmd.Flags().String("prefix", export.ArtifactPrefix, "key prefix to prune")
	_ = a.v.BindPFlag("export.prune.older-than", cmd.Flags().Lookup("older-than"))
	_ = a.v.BindPFlag("export.prune.prefix", cmd.Flags().Lookup("prefix"))
	return cmd
}
