package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/five82/voicesync/internal/app"
	"github.com/five82/voicesync/internal/export"
	"github.com/five82/voicesync/internal/voicebrain"
)

// NotesCmd groups the note commands.
func NotesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notes",
		Aliases: []string{"note"},
		Short:   "List, edit and export notes",
	}
	cmd.AddCommand(notesListCmd())
	cmd.AddCommand(notesShowCmd())
	cmd.AddCommand(notesEditCmd())
	cmd.AddCommand(notesDeleteCmd())
	cmd.AddCommand(notesExportCmd())
	cmd.AddCommand(notesCopyCmd())
	return cmd
}

func notesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, _ := cmd.Flags().GetString("query")
			return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
				if err := rt.Search(ctx, query); err != nil {
					return fmt.Errorf("failed to list notes: %w", err)
				}
				return printNotes(cmd.OutOrStdout(), rt.Store.Notes())
			})
		},
	}
	cmd.Flags().StringP("query", "q", "", "Semantic search query")
	return cmd
}

func printNotes(out io.Writer, notes []voicebrain.Note) error {
	if len(notes) == 0 {
		printf(out, "No notes found\n")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tTAGS\tCREATED")
	fmt.Fprintln(w, "--\t-----\t------\t----\t-------")
	for _, n := range notes {
		status := n.StatusLabel()
		if status == "" {
			status = "-"
		}
		tags := "-"
		if len(n.Tags) > 0 {
			tags = strings.Join(n.Tags, ",")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", n.ID, n.DisplayTitle(), status, tags, noteAge(n))
	}
	return w.Flush()
}

func noteAge(n voicebrain.Note) string {
	created := n.ParsedCreatedAt()
	if created.IsZero() {
		return "-"
	}
	return humanize.Time(created)
}

func notesShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [note-id]",
		Short: "Show a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asMarkdown, _ := cmd.Flags().GetBool("markdown")
			return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
				note, err := rt.Note(ctx, args[0])
				if err != nil {
					return fmt.Errorf("note not found: %w", err)
				}
				out := cmd.OutOrStdout()
				if asMarkdown {
					doc, err := export.Markdown(note)
					if err != nil {
						return err
					}
					_, err = out.Write(doc)
					return err
				}
				printNote(out, note)
				return nil
			})
		},
	}
	cmd.Flags().Bool("markdown", false, "Print the note as Markdown with front matter")
	return cmd
}

func printNote(out io.Writer, n voicebrain.Note) {
	bold := color.New(color.Bold)
	printf(out, "Note: %s\n", n.ID)
	printf(out, "Title: %s\n", bold.Sprint(n.DisplayTitle()))
	if status := n.StatusLabel(); status != "" {
		printf(out, "Status: %s\n", statusColor(n.Status).Sprint(status))
	}
	if n.ProcessingError != "" {
		printf(out, "Error: %s\n", n.ProcessingError)
	}
	if created := n.ParsedCreatedAt(); !created.IsZero() {
		printf(out, "Created: %s\n", created.Format("2006-01-02 15:04"))
	}
	if len(n.Tags) > 0 {
		printf(out, "Tags: %s\n", strings.Join(n.Tags, ", "))
	}
	if n.Mood != "" {
		printf(out, "Mood: %s\n", n.Mood)
	}
	if n.Summary != "" {
		printf(out, "\n%s\n%s\n", bold.Sprint("Summary"), n.Summary)
	}
	if len(n.ActionItems) > 0 {
		printf(out, "\n%s\n", bold.Sprint("Action Items"))
		for _, item := range n.ActionItems {
			printf(out, "  - %s\n", item)
		}
	}
	if n.TranscriptionText != "" {
		printf(out, "\n%s\n%s\n", bold.Sprint("Transcript"), n.TranscriptionText)
	}
	for _, is := range n.IntegrationStatus {
		line := fmt.Sprintf("%s: %s", is.Provider, is.Status)
		if is.Error != "" {
			line += " (" + is.Error + ")"
		}
		printf(out, "Integration %s\n", line)
	}
}

func statusColor(s voicebrain.Status) *color.Color {
	switch s {
	case voicebrain.StatusFailed:
		return color.New(color.FgRed)
	case voicebrain.StatusPending, voicebrain.StatusProcessing:
		return color.New(color.FgCyan)
	}
	return color.New(color.FgGreen)
}

func notesEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit [note-id]",
		Short: "Update a note's title, summary or tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var update voicebrain.NoteUpdate
			if cmd.Flags().Changed("title") {
				title, _ := cmd.Flags().GetString("title")
				update.Title = &title
			}
			if cmd.Flags().Changed("summary") {
				summary, _ := cmd.Flags().GetString("summary")
				update.Summary = &summary
			}
			if cmd.Flags().Changed("tags") {
				tags, _ := cmd.Flags().GetStringSlice("tags")
				update.Tags = cleanTags(tags)
			}
			addTag, _ := cmd.Flags().GetString("add-tag")
			if update.IsEmpty() && addTag == "" {
				return fmt.Errorf("must specify --title, --summary, --tags or --add-tag")
			}

			return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
				id := args[0]
				var note voicebrain.Note
				var err error
				if !update.IsEmpty() {
					if note, err = rt.UpdateNote(ctx, id, update); err != nil {
						return fmt.Errorf("failed to update note: %w", err)
					}
				}
				if addTag != "" {
					if note.ID == "" {
						if note, err = rt.Note(ctx, id); err != nil {
							return fmt.Errorf("note not found: %w", err)
						}
					}
					if _, err = rt.AddTag(ctx, note, addTag); err != nil {
						return fmt.Errorf("failed to tag note: %w", err)
					}
				}
				printf(cmd.OutOrStdout(), "%s Note %s updated\n", okMark, id)
				return nil
			})
		},
	}
	cmd.Flags().String("title", "", "New title")
	cmd.Flags().String("summary", "", "New summary")
	cmd.Flags().StringSlice("tags", nil, "Replace tags (comma separated)")
	cmd.Flags().String("add-tag", "", "Add one tag")
	return cmd
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func notesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [note-id]...",
		Short: "Delete notes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
				if err := rt.DeleteNotes(ctx, args...); err != nil {
					return fmt.Errorf("failed to delete notes: %w", err)
				}
				printf(cmd.OutOrStdout(), "%s Deleted %d note(s)\n", okMark, len(args))
				return nil
			})
		},
	}
}

func notesExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [note-id]...",
		Short: "Export notes as Markdown, PDF or a ZIP of Markdown files",
		Long:  "Exports the given notes, or every note when no id is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			outDir, _ := cmd.Flags().GetString("out")
			switch format {
			case "md", "pdf", "zip":
			default:
				return fmt.Errorf("invalid format: %s\nValid formats: md, pdf, zip", format)
			}

			return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
				if outDir == "" {
					outDir = rt.Config.ExportDir
				}
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return fmt.Errorf("create export dir: %w", err)
				}
				notes, err := notesForExport(ctx, rt, args)
				if err != nil {
					return err
				}
				if len(notes) == 0 {
					printf(cmd.OutOrStdout(), "No notes to export\n")
					return nil
				}
				return exportNotes(cmd.OutOrStdout(), notes, format, outDir)
			})
		},
	}
	cmd.Flags().StringP("format", "f", "md", "Export format (md, pdf, zip)")
	cmd.Flags().StringP("out", "o", "", "Output directory (default export_dir from config)")
	return cmd
}

func notesForExport(ctx context.Context, rt *app.Runtime, ids []string) ([]voicebrain.Note, error) {
	if len(ids) == 0 {
		if err := rt.Search(ctx, ""); err != nil {
			return nil, fmt.Errorf("failed to list notes: %w", err)
		}
		return rt.Store.Notes(), nil
	}
	notes := make([]voicebrain.Note, 0, len(ids))
	for _, id := range ids {
		note, err := rt.Note(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("note %s: %w", id, err)
		}
		notes = append(notes, note)
	}
	return notes, nil
}

func exportNotes(out io.Writer, notes []voicebrain.Note, format, dir string) error {
	if format == "zip" {
		path := filepath.Join(dir, fmt.Sprintf("voicesync-notes-%s.zip", time.Now().Format("2006-01-02")))
		failed, err := export.WriteArchiveFile(notes, path)
		if err != nil {
			return err
		}
		printf(out, "%s Exported %d note(s) to %s\n", okMark, len(notes)-len(failed), path)
		for _, id := range failed {
			printf(out, "%s Skipped %s\n", warnMark, id)
		}
		return nil
	}

	write := export.WriteMarkdownFile
	if format == "pdf" {
		write = export.WritePDFFile
	}
	for _, note := range notes {
		path, err := write(note, dir)
		if err != nil {
			return fmt.Errorf("export %s: %w", note.ID, err)
		}
		printf(out, "%s Exported %s\n", okMark, path)
	}
	return nil
}

func notesCopyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy [note-id]",
		Short: "Copy a note to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
				note, err := rt.Note(ctx, args[0])
				if err != nil {
					return fmt.Errorf("note not found: %w", err)
				}
				if err := export.Copy(note); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "%s Copied %q to the clipboard\n", okMark, note.DisplayTitle())
				return nil
			})
		},
	}
}
