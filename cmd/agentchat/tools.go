package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bazelment/yoloswe/agentchat/adapter"
	"github.com/bazelment/yoloswe/agentchat/tool"
)

var toolsJSON bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List configured tools",
	RunE:  runTools,
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "Print the catalog as JSON")
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, err := tool.LoadConfig(resolveConfigPath())
	if err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	tools := reg.List()

	if toolsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tools)
	}

	adapters := adapter.DefaultRegistry()
	for _, d := range tools {
		fmt.Println(describeTool(d, adapters.SupportsStreamParsing(d)))
	}
	return nil
}

// describeTool renders one catalog entry as a single line.
func describeTool(d tool.Descriptor, parsed bool) string {
	var flags []string
	if d.Persistent {
		flags = append(flags, "persistent")
	}
	if parsed {
		flags = append(flags, "adapter="+d.AdapterName())
	}
	if !d.Enabled {
		flags = append(flags, "disabled")
	}
	line := fmt.Sprintf("%-14s %-22s %s", d.ID, d.Name(), d.Command)
	if len(flags) > 0 {
		line += "  [" + strings.Join(flags, ", ") + "]"
	}
	return line
}
