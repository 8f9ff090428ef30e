package commands

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thoreinstein/codemcp/internal/changes"
	"github.com/thoreinstein/codemcp/internal/config"
	"github.com/thoreinstein/codemcp/internal/errors"
	"github.com/thoreinstein/codemcp/internal/fileops"
	"github.com/thoreinstein/codemcp/internal/prompt"
)

var (
	pendingChat string
	pendingAuto bool
)

// selectChange asks which pending change to apply. Tests replace it.
var selectChange = func(list []*changes.Change) (*changes.Change, error) {
	return prompt.NewSelector().SelectChange(list)
}

func init() {
	pendingCmd.PersistentFlags().StringVar(&pendingChat, "chat", changes.DefaultChat,
		"conversation whose current change is used")
	pendingApplyCmd.Flags().BoolVar(&pendingAuto, "auto", false,
		"also enable auto_edit so later writes apply without approval")

	pendingCmd.AddCommand(pendingListCmd)
	pendingCmd.AddCommand(pendingShowCmd)
	pendingCmd.AddCommand(pendingApplyCmd)
	pendingCmd.AddCommand(pendingDropCmd)
	pendingCmd.AddCommand(pendingCurrentCmd)
	rootCmd.AddCommand(pendingCmd)
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Review proposed changes awaiting approval",
	Long: `Review the queue of changes proposed by "codemcp write" and
"codemcp chmod --propose".

Each proposal becomes the current change of its chat, so "pending apply"
without an ID applies the most recent proposal. Applying a change offers
the same choices as the preview: apply it, apply it and switch to
auto_edit (--auto), or skip it (pending drop).

Without a subcommand, lists the queue.`,
	Example: `  codemcp pending
  codemcp pending show 0b9f6c1e-7d7e-4e55-9d42-3f1f0f3b7c11
  codemcp pending apply
  codemcp pending apply --auto
  codemcp pending drop 0b9f6c1e-7d7e-4e55-9d42-3f1f0f3b7c11

See Also: codemcp write, codemcp chmod`,
	RunE: runPendingList,
}

var pendingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending changes, oldest first",
	Args:  cobra.NoArgs,
	RunE:  runPendingList,
}

var pendingShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a pending change as a diff",
	Long:  `Show a pending change. Without an ID the chat's current change is shown.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPendingShow,
}

var pendingApplyCmd = &cobra.Command{
	Use:   "apply [id]",
	Short: "Apply a pending change",
	Long: `Apply a pending change and remove it from the queue.

Without an ID the chat's current change is applied; when there is none and
the terminal is interactive, you are asked to pick one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPendingApply,
}

var pendingDropCmd = &cobra.Command{
	Use:     "drop [id]",
	Aliases: []string{"skip"},
	Short:   "Discard a pending change",
	Long:    `Discard a pending change without applying it. Without an ID the chat's current change is dropped.`,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runPendingDrop,
}

var pendingCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Print the ID of the chat's current change",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		id, err := store.Current(pendingChat)
		if err != nil {
			return err
		}
		if id == "" {
			return errors.NewUserError(
				errors.Wrapf(changes.ErrChangeNotFound, "no current change for chat %q", pendingChat),
				"Run: codemcp pending list")
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

func runPendingList(cmd *cobra.Command, _ []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	list, err := store.List()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(w, "No pending changes")
		return nil
	}

	current, err := store.Current(pendingChat)
	if err != nil {
		return err
	}
	return outputPendingText(w, list, current)
}

func outputPendingText(w io.Writer, list []*changes.Change, current string) error {
	st := newStyles(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n",
		st.paint(st.header, "ID"),
		st.paint(st.header, "KIND"),
		st.paint(st.header, "PATH"),
		st.paint(st.header, "CHAT"),
		st.paint(st.header, "CREATED"))
	for _, c := range list {
		marker := " "
		if c.ID == current {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%s\t%s\t%s\n",
			marker,
			st.paint(st.name, c.ID),
			c.Kind,
			c.Path,
			c.ChatID,
			st.paint(st.muted, c.CreatedAt.Local().Format(time.DateTime)))
	}
	return tw.Flush()
}

// resolveChange returns the change named by args, or the chat's current one.
func resolveChange(store *changes.Store, args []string) (*changes.Change, error) {
	if len(args) == 1 {
		c, err := store.Get(args[0])
		if err != nil {
			return nil, errors.NewUserError(err, "Run: codemcp pending list")
		}
		return c, nil
	}

	id, err := store.Current(pendingChat)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, errors.NewUserError(
			errors.Wrapf(changes.ErrChangeNotFound, "no current change for chat %q", pendingChat),
			"Run: codemcp pending list")
	}
	c, err := store.Get(id)
	if err != nil {
		return nil, errors.NewUserError(err, "Run: codemcp pending list")
	}
	return c, nil
}

func runPendingShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	c, err := resolveChange(store, args)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "id:      %s\n", c.ID)
	fmt.Fprintf(w, "kind:    %s\n", c.Kind)
	fmt.Fprintf(w, "path:    %s\n", c.Path)
	if c.Description != "" {
		fmt.Fprintf(w, "message: %s\n", c.Description)
	}

	if c.Kind == changes.KindChmod {
		fmt.Fprintf(w, "\nchmod %s %s\n", c.Mode, c.Path)
		return nil
	}

	var old string
	data, err := os.ReadFile(c.Path)
	switch {
	case err == nil:
		old = string(data)
	case !errors.Is(err, os.ErrNotExist):
		return errors.Wrapf(err, "reading %s", c.Path)
	}
	diff, err := fileops.UnifiedDiff(c.Path, old, c.Content)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%s\n", diff)
	return nil
}

func runPendingApply(cmd *cobra.Command, args []string) error {
	w, store, err := newWriter(cmd)
	if err != nil {
		return err
	}

	c, err := resolveChange(store, args)
	if errors.Is(err, changes.ErrChangeNotFound) && len(args) == 0 && interactive() {
		c, err = pickPending(store)
	}
	if err != nil {
		return err
	}

	res, err := w.Apply(cmd.Context(), c.ID)
	if res != nil {
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
	}
	if err != nil {
		return err
	}

	if pendingAuto {
		return enableAutoEdit(cmd)
	}
	return nil
}

func pickPending(store *changes.Store) (*changes.Change, error) {
	list, err := store.List()
	if err != nil {
		return nil, err
	}
	c, err := selectChange(list)
	if errors.Is(err, prompt.ErrNothingPending) {
		return nil, errors.NewUserError(err, "Propose a change with: codemcp write")
	}
	if err != nil {
		return nil, errors.NewUserError(err, "")
	}
	return c, nil
}

// enableAutoEdit persists auto_edit=true.
func enableAutoEdit(cmd *cobra.Command) error {
	viper.Set(config.KeyAutoEdit, true)
	current, err := currentSettings()
	if err != nil {
		return err
	}
	path, err := writeConfig(current)
	if err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Auto mode enabled in %s; future writes apply without approval\n", path)
	}
	return nil
}

func runPendingDrop(cmd *cobra.Command, args []string) error {
	w, store, err := newWriter(cmd)
	if err != nil {
		return err
	}
	c, err := resolveChange(store, args)
	if err != nil {
		return err
	}
	if err := w.Discard(c); err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Dropped change %s for %s\n", c.ID, c.Path)
	}
	return nil
}
