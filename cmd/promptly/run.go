package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/sant0-9/promptly/internal/optimizer"
	"github.com/sant0-9/promptly/internal/tui/styles"
)

type runFlags struct {
	model          string
	json           bool
	current        string
	clarifications string
}

func addRunFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Target model key (default: first in registry)")
	cmd.Flags().BoolVarP(&f.json, "json", "j", false, "Print the result as JSON")
}

func newOptimizeCmd(flags *globalFlags) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "optimize [prompt]",
		Short: "Rewrite a prompt for a target model",
		Long: `Rewrite a prompt for a target model. The prompt is taken from the
arguments, or from stdin when none are given.

Exits 0 on success, 2 when the model rejects the input, 1 on error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			initial, err := readPrompt(cmd, args)
			if err != nil {
				return err
			}
			return run(cmd, flags, f, optimizer.Fresh{InitialPrompt: initial, TargetModel: f.model})
		},
	}
	addRunFlags(cmd, f)
	return cmd
}

func newImproveCmd(flags *globalFlags) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "improve [prompt] --current TEXT --clarifications FILE",
		Short: "Refine an optimized prompt with answers to its clarifying questions",
		Long: `Refine an optimized prompt using answers to the clarifying questions it
came with. The clarifications file holds a JSON array of
{"question": "...", "answer": "..."} objects; "-" reads it from stdin.
Every entry is sent, blank answers included, so the model sees which
questions were skipped. At least one must be answered.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.clarifications == "-" && len(args) == 0 {
				return errors.New("the prompt must be passed as an argument when clarifications come from stdin")
			}
			initial, err := readPrompt(cmd, args)
			if err != nil {
				return err
			}
			clarifications, err := readClarifications(cmd, f.clarifications)
			if err != nil {
				return err
			}
			return run(cmd, flags, f, optimizer.Improve{
				InitialPrompt:          initial,
				TargetModel:            f.model,
				CurrentOptimizedPrompt: f.current,
				Clarifications:         clarifications,
			})
		},
	}
	addRunFlags(cmd, f)
	cmd.Flags().StringVar(&f.current, "current", "", "The optimized prompt to refine")
	cmd.Flags().StringVar(&f.clarifications, "clarifications", "", "JSON file of question/answer pairs, or - for stdin")
	_ = cmd.MarkFlagRequired("current")
	_ = cmd.MarkFlagRequired("clarifications")
	return cmd
}

func newRetryCmd(flags *globalFlags) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "retry [prompt] --current TEXT",
		Short: "Ask for a different rewrite than the current one",
		RunE: func(cmd *cobra.Command, args []string) error {
			initial, err := readPrompt(cmd, args)
			if err != nil {
				return err
			}
			return run(cmd, flags, f, optimizer.Retry{
				InitialPrompt:          initial,
				TargetModel:            f.model,
				CurrentOptimizedPrompt: f.current,
			})
		},
	}
	addRunFlags(cmd, f)
	cmd.Flags().StringVar(&f.current, "current", "", "The optimized prompt to replace")
	_ = cmd.MarkFlagRequired("current")
	return cmd
}

// run makes one call and prints the outcome.
func run(cmd *cobra.Command, flags *globalFlags, f *runFlags, req optimizer.Request) error {
	sess, err := newSession(flags)
	if err != nil {
		return err
	}
	defer sess.Close()

	req = withDefaultModel(req, sess.service.Registry().Default().Key)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, sess.cfg.Timeout())
	defer cancel()

	result, err := sess.service.Run(ctx, req)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), result, f.json)
}

func withDefaultModel(req optimizer.Request, key string) optimizer.Request {
	if req.Target() != "" {
		return req
	}
	switch r := req.(type) {
	case optimizer.Fresh:
		r.TargetModel = key
		return r
	case optimizer.Improve:
		r.TargetModel = key
		return r
	case optimizer.Retry:
		r.TargetModel = key
		return r
	}
	return req
}

func printResult(stdout, stderr io.Writer, result optimizer.Result, asJSON bool) error {
	if asJSON {
		if err := writeJSON(stdout, result); err != nil {
			return err
		}
		if !result.OK() {
			return errRejected
		}
		return nil
	}

	switch r := result.(type) {
	case optimizer.Success:
		fmt.Fprintln(stdout, r.OptimizedPrompt)
		if r.HasQuestions() {
			// Questions go to stderr so stdout stays pipeable.
			fmt.Fprintln(stderr)
			fmt.Fprintln(stderr, styles.Warning.Render("Clarifying questions:"))
			for i, q := range r.ClarifyingQuestions {
				fmt.Fprintf(stderr, "  %d. %s\n", i+1, q)
			}
			fmt.Fprintln(stderr, styles.Muted.Render("Answer them with: promptly improve --current ... --clarifications FILE"))
		}
		return nil
	case optimizer.Rejection:
		fmt.Fprintln(stderr, styles.Warning.Render("Rejected:"), r.RejectReason)
		return errRejected
	}
	return errors.Newf("unexpected result type %T", result)
}

// readPrompt joins args, or reads stdin when there are none.
func readPrompt(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		if info, err := f.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			return "", errors.New("no prompt given: pass it as an argument or pipe it on stdin")
		}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", errors.Wrap(err, "read prompt from stdin")
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func readClarifications(cmd *cobra.Command, path string) ([]optimizer.Clarification, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read clarifications from %s", path)
	}

	var out []optimizer.Clarification
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "parse clarifications from %s", path),
			`expected a JSON array like [{"question": "...", "answer": "..."}]`,
		)
	}
	for i := range out {
		out[i].Answer = strings.TrimSpace(out[i].Answer)
	}
	return out, nil
}
