package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/siqueiraa/pipemetrics/pkg/event"
)

func newTranslateCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "translate [file|-]",
		Short: "Translate lifecycle events from a file or stdin",
		Long: `Translate reads one EventBridge CodePipeline event, a JSON array of
events, or newline-delimited events, and submits the resulting metrics.`,
		Example: `  # Replay a captured event against CloudWatch
  pipemetrics translate event.json

  # Preview the metrics without submitting them
  cat events.ndjson | pipemetrics translate --dry-run -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			events, err := decodeEvents(raw)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			env, err := opts.openEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			tr := env.Translator()
			out := cmd.OutOrStdout()
			for i := range events {
				e := &events[i]
				if dryRun {
					data, err := tr.Translate(ctx, e)
					if err != nil {
						return fmt.Errorf("event %d: %w", i, err)
					}
					for _, d := range data {
						fmt.Fprintf(out, "%s\t%s\t%v %s\n", e.Resource(), d.Name, d.Value, d.Unit)
					}
					continue
				}
				data, err := tr.Handle(ctx, e)
				if err != nil {
					return fmt.Errorf("event %d: %w", i, err)
				}
				fmt.Fprintf(out, "%s\t%s\t%d datum(s)\n", e.Resource(), e.Detail.State, len(data))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print metrics instead of submitting them")
	return cmd
}

func readInput(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(args[0])
}

// decodeEvents accepts a single object, an array, or a stream of objects.
func decodeEvents(raw []byte) ([]event.Event, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("no events in input")
	}

	json := jsoniter.ConfigCompatibleWithStandardLibrary
	if trimmed[0] == '[' {
		var events []event.Event
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("decode event array: %w", err)
		}
		return events, nil
	}

	var events []event.Event
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	for dec.More() {
		var e event.Event
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", len(events), err)
		}
		events = append(events, e)
	}
	return events, nil
}
