package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sufield/clusterauth/internal/core/domain"
)

type resolveReport struct {
	CallbackID string `json:"callback_id" yaml:"callback_id"`
	Event      string `json:"event,omitempty" yaml:"event,omitempty"`
	Decision   string `json:"decision" yaml:"decision"`
}

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve [callback-id]",
		Short: "Apply a policy decision to a deferred action",
		Long: `Apply a policy decision to a deferred action.

The action runs at most once: resolving the same callback twice fails. With
--next the oldest queued policy request is taken from the event queue.

Examples:
  clusterauth resolve 6f1c...            # allow
  clusterauth resolve 6f1c... --prevent --message "image not signed"
  clusterauth resolve --next`,
		Args: cobra.MaximumNArgs(1),
		RunE: runResolve,
	}
	cmd.Flags().Bool("prevent", false, "Prevent the action instead of allowing it")
	cmd.Flags().String("message", "", "Reason recorded with a prevented decision")
	cmd.Flags().Bool("next", false, "Resolve the oldest queued policy request")
	return cmd
}

func runResolve(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	prevent, _ := cmd.Flags().GetBool("prevent")
	message, _ := cmd.Flags().GetString("message")
	next, _ := cmd.Flags().GetBool("next")

	if next == (len(args) == 1) {
		return fmt.Errorf("%w: pass either a callback id or --next", ErrUsage)
	}

	return withEnvironment(cmd, func(env *environment) error {
		ctx := cmd.Context()
		report := resolveReport{Decision: "allowed"}
		if prevent {
			report.Decision = "prevented"
		}

		if next {
			req, ok, err := env.events.Next(ctx)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrRuntime, err)
			}
			if !ok {
				return fmt.Errorf("%w: no pending policy requests", ErrRuntime)
			}
			report.CallbackID = req.CallbackID
			report.Event = req.Event
		} else {
			report.CallbackID = args[0]
		}

		decision := domain.Decision{CallbackID: report.CallbackID, Prevented: prevent, Message: message}
		if err := env.gate.Resolve(ctx, decision); err != nil {
			return fmt.Errorf("%w: %w", ErrRuntime, err)
		}

		return render(cmd.OutOrStdout(), format, report, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "Callback %s %s\n", report.CallbackID, report.Decision)
			return err
		})
	})
}
