package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/codemcp/internal/errors"
	"github.com/thoreinstein/codemcp/internal/project"
	"github.com/thoreinstein/codemcp/internal/proc"
)

var (
	listJSON bool
	listYAML bool
)

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
	listCmd.Flags().BoolVar(&listYAML, "yaml", false, "output as YAML")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the commands in codemcp.toml",
	Long: `List every command declared in the [commands] table of codemcp.toml,
sorted by name, with its argument vector and documentation.`,
	Example: `  # Table output
  codemcp list

  # Machine-readable output
  codemcp list --json

See Also: codemcp show, codemcp run`,
	Args: cobra.NoArgs,
	RunE: runList,
}

// commandEntry is the serialized form of one table entry.
type commandEntry struct {
	Name    string            `json:"name" yaml:"name"`
	Command []string          `json:"command" yaml:"command"`
	Doc     string            `json:"doc,omitempty" yaml:"doc,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

func entries(p *project.Project) []commandEntry {
	out := make([]commandEntry, 0, len(p.Commands))
	for _, name := range p.Names() {
		c := p.Commands[name]
		out = append(out, commandEntry{Name: name, Command: c.Args, Doc: c.Doc, Env: c.Env})
	}
	return out
}

func runList(cmd *cobra.Command, _ []string) error {
	if listJSON && listYAML {
		return errors.NewUserError(
			errors.New("flags --json and --yaml are mutually exclusive"), "")
	}

	p, err := loadProject()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	switch {
	case listJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries(p)); err != nil {
			return errors.Wrap(err, "encoding JSON")
		}
		return nil
	case listYAML:
		data, err := yaml.Marshal(entries(p))
		if err != nil {
			return errors.Wrap(err, "encoding YAML")
		}
		_, err = w.Write(data)
		return err
	}
	return outputListText(w, p)
}

func outputListText(w io.Writer, p *project.Project) error {
	if len(p.Commands) == 0 {
		fmt.Fprintf(w, "No commands defined in %s\n", p.Path)
		return nil
	}

	st := newStyles(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\n",
		st.paint(st.header, "NAME"),
		st.paint(st.header, "COMMAND"),
		st.paint(st.header, "DESCRIPTION"))
	for _, e := range entries(p) {
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			st.paint(st.name, e.Name),
			truncate(proc.Spec{Argv: e.Command}.String(), 50),
			st.paint(st.muted, truncate(e.Doc, 60)))
	}
	return tw.Flush()
}
