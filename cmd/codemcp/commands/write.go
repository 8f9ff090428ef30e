package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/codemcp/internal/changes"
	"github.com/thoreinstein/codemcp/internal/errors"
	"github.com/thoreinstein/codemcp/internal/fileops"
	"github.com/thoreinstein/codemcp/internal/paths"
	"github.com/thoreinstein/codemcp/pkg/fileutil"
)

var (
	writeFrom        string
	writeDescription string
	writeChat        string
)

func init() {
	writeCmd.Flags().StringVar(&writeFrom, "from", "", `file holding the new content, or "-" for stdin`)
	writeCmd.Flags().StringVarP(&writeDescription, "description", "m", "", "commit message for the change")
	writeCmd.Flags().StringVar(&writeChat, "chat", changes.DefaultChat, "conversation the change belongs to")
	_ = writeCmd.MarkFlagRequired("from")
	rootCmd.AddCommand(writeCmd)
}

var writeCmd = &cobra.Command{
	Use:   "write <path>",
	Short: "Propose or write new content for a file",
	Long: `Replace the content of a file, or create it.

By default the change is only proposed: a unified diff is printed and the
change waits in the pending queue until "codemcp pending apply". With
auto_edit enabled the file is written at once.

Existing files must be tracked by git. Line endings of an existing file are
kept; new files use LF. Applied writes are staged and committed with the
description, or only staged when commit_prompt is enabled.`,
	Example: `  # Propose new content from a file
  codemcp write src/app.py --from /tmp/app.py -m "Handle empty input"

  # Pipe content in
  generate | codemcp write docs/api.md --from -

See Also: codemcp pending, codemcp config set auto_edit true`,
	Args: cobra.ExactArgs(1),
	RunE: runWrite,
}

func runWrite(cmd *cobra.Command, args []string) error {
	path, err := paths.Abs(args[0])
	if err != nil {
		return errors.NewUserError(err, "")
	}

	content, err := readContent(cmd.InOrStdin(), writeFrom)
	if err != nil {
		return err
	}

	w, _, err := newWriter(cmd)
	if err != nil {
		return err
	}

	req := fileops.Request{
		Path:        path,
		Content:     content,
		Description: writeDescription,
		ChatID:      writeChat,
	}
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if settings().AutoEdit {
		res, err := w.Write(ctx, req)
		if res != nil {
			fmt.Fprintln(out, res.Message)
		}
		return err
	}

	proposal, err := w.Propose(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, proposal.String())
	fmt.Fprintf(out, "\nApply with: codemcp pending apply %s\n", proposal.Change.ID)
	return nil
}

// readContent reads --from, where "-" means r.
func readContent(r io.Reader, from string) (string, error) {
	if from == "-" {
		data, err := io.ReadAll(io.LimitReader(r, fileutil.MaxFileSize+1))
		if err != nil {
			return "", errors.Wrap(err, "reading stdin")
		}
		if len(data) > fileutil.MaxFileSize {
			return "", errors.NewUserError(
				errors.Newf("content exceeds %d bytes", fileutil.MaxFileSize), "")
		}
		return string(data), nil
	}

	data, err := fileutil.ReadFileWithLimit(from)
	if err != nil {
		return "", errors.NewUserError(err, "")
	}
	return string(data), nil
}
