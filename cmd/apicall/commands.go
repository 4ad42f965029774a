package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-apiclient/internal/app"
	"github.com/samvad-hq/samvad-apiclient/pkg/publishers"
)

// errCallsFailed signals a non-zero exit after events were already printed.
var errCallsFailed = errors.New("one or more calls failed")

type requestFlags struct {
	headers map[string]string
	query   map[string]string
	timeout time.Duration
	data    string
	name    string
}

func newRootCmd(runner *app.Runner) *cobra.Command {
	root := &cobra.Command{
		Use:           "apicall",
		Short:         "Issue API calls and report each outcome as a JSON line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newVerbCmd(runner, http.MethodGet, false),
		newVerbCmd(runner, http.MethodDelete, false),
		newVerbCmd(runner, http.MethodPost, true),
		newVerbCmd(runner, http.MethodPut, true),
		newBatchCmd(runner),
		newHistoryCmd(runner),
	)
	return root
}

func newVerbCmd(runner *app.Runner, method string, withBody bool) *cobra.Command {
	var flags requestFlags
	cmd := &cobra.Command{
		Use:   strings.ToLower(method) + " URL",
		Short: "Send a " + method + " request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			call := app.Call{
				Name:    flags.name,
				Method:  method,
				URL:     args[0],
				Headers: flags.headers,
				Query:   flags.query,
			}
			call.TimeoutMs = flags.timeout.Milliseconds()
			if withBody && flags.data != "" {
				body, err := parseData(flags.data)
				if err != nil {
					return err
				}
				call.Body = body
			}

			evt := runner.Do(cmd.Context(), call)
			return printEvents(cmd.OutOrStdout(), []publishers.Event{evt})
		},
	}

	fs := cmd.Flags()
	fs.StringToStringVarP(&flags.headers, "header", "H", nil, "request header as key=value (repeatable)")
	fs.StringToStringVarP(&flags.query, "query", "q", nil, "query parameter as key=value (repeatable)")
	fs.DurationVar(&flags.timeout, "timeout", 0, "per-request timeout (e.g. 2s); 0 uses the client default")
	fs.StringVar(&flags.name, "name", "", "label recorded on the outcome event")
	if withBody {
		fs.StringVarP(&flags.data, "data", "d", "", "JSON request body")
	}
	return cmd
}

func newBatchCmd(runner *app.Runner) *cobra.Command {
	return &cobra.Command{
		Use:   "batch FILE",
		Short: "Run the calls listed in a YAML or JSON file concurrently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			calls, err := app.LoadCalls(args[0])
			if err != nil {
				return err
			}
			events, err := runner.Batch(cmd.Context(), calls)
			if printErr := writeJSONLines(cmd.OutOrStdout(), events); printErr != nil {
				return printErr
			}
			if err != nil {
				return fmt.Errorf("batch: %w", err)
			}
			return failureOf(events)
		},
	}
}

func newHistoryCmd(runner *app.Runner) *cobra.Command {
	var (
		limit int
		id    string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print journaled outcomes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if id != "" {
				opt, err := runner.Lookup(id)
				if err != nil {
					return fmt.Errorf("lookup %s: %w", id, err)
				}
				evt, ok := opt.Get()
				if !ok {
					return fmt.Errorf("no journaled outcome with id %q", id)
				}
				return writeJSONLines(cmd.OutOrStdout(), []publishers.Event{evt})
			}

			events, err := runner.History(limit)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}
			return writeJSONLines(cmd.OutOrStdout(), events)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of outcomes to print (0 for all)")
	cmd.Flags().StringVar(&id, "id", "", "print only the outcome with this id")
	return cmd
}

// parseData decodes a JSON body flag so it is re-encoded by the transport.
func parseData(data string) (any, error) {
	var body any
	if err := json.Unmarshal([]byte(data), &body); err != nil {
		return nil, fmt.Errorf("--data must be valid JSON: %w", err)
	}
	return body, nil
}

// printEvents writes events and reports errCallsFailed when any failed.
func printEvents(w io.Writer, events []publishers.Event) error {
	if err := writeJSONLines(w, events); err != nil {
		return err
	}
	return failureOf(events)
}

func failureOf(events []publishers.Event) error {
	for _, evt := range events {
		if evt.Failed() {
			return errCallsFailed
		}
	}
	return nil
}

func writeJSONLines(w io.Writer, events []publishers.Event) error {
	enc := json.NewEncoder(w)
	for _, evt := range events {
		if err := enc.Encode(evt); err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
	}
	return nil
}
