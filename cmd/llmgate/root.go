package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"llmgate/internal/llm"
	"llmgate/internal/prompt"
	"llmgate/internal/registry"
	"llmgate/pkg/types"
)

func newRootCmd() *cobra.Command {
	sf := &serveFlags{}
	serveRun := func(cmd *cobra.Command, args []string) error {
		cfg, err := sf.resolve(cmd.Flags(), os.LookupEnv)
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg)
	}
	root := &cobra.Command{
		Use:           "llmgate",
		Short:         "Stream chat completions from a local llama.cpp model over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveRun,
	}
	// serve is the default action, so its flags live on root too.
	sf.register(root.Flags())

	serveCmd := &cobra.Command{
		Use:     "serve",
		Short:   "Load the model and serve /health and /chat_stream",
		Example: "  MODEL_PATH=~/models/tinyllama.Q4_K_M.gguf llmgate serve --addr :8000",
		Args:    cobra.NoArgs,
		RunE:    serveRun,
	}
	sf.register(serveCmd.Flags())

	promptCmd := &cobra.Command{
		Use:   "prompt [file]",
		Short: "Render the prompt for a conversation (JSON messages array or chat request)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			msgs, err := readMessages(in)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), prompt.Build(msgs))
			return err
		},
	}

	modelsCmd := &cobra.Command{
		Use:   "models [dir]",
		Short: "List GGUF model files in a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "~/models"
			if len(args) == 1 {
				dir = args[0]
			}
			models, err := registry.Scan(dir)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tQUANT\tSIZE_MB\tPATH")
			for _, m := range models {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", m.ID, m.Quant, m.SizeMB, m.Path)
			}
			return tw.Flush()
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version and compiled backends",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			backends := []string{"server"}
			if llm.LlamaBuilt() {
				backends = append([]string{"llama"}, backends...)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "llmgate %s (engines: %s)\n", version, strings.Join(backends, ","))
		},
	}

	root.AddCommand(serveCmd, promptCmd, modelsCmd, versionCmd)
	return root
}

// readMessages accepts either a JSON array of messages or an object with a
// messages field.
func readMessages(r io.Reader) ([]types.ChatMessage, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(b))
	if strings.HasPrefix(trimmed, "[") {
		var msgs []types.ChatMessage
		if err := json.Unmarshal([]byte(trimmed), &msgs); err != nil {
			return nil, fmt.Errorf("parse messages: %w", err)
		}
		return msgs, nil
	}
	var req types.ChatStreamRequest
	if err := json.Unmarshal([]byte(trimmed), &req); err != nil {
		return nil, fmt.Errorf("parse chat request: %w", err)
	}
	return req.Messages, nil
}

// splitCSV splits a comma-separated list, dropping blanks.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
