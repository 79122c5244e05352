package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewExecutionCmd создаёт группу команд для работы с executions.
func NewExecutionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execution",
		Short: "Inspect and cancel executions",
	}

	cmd.AddCommand(
		newExecutionShowCmd(clientFn, outputFn),
		newExecutionCancelCmd(clientFn, outputFn),
	)

	return cmd
}

func newExecutionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show execution with its node log",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.GetExecution(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution %s: %s (%s)", exec.ID, exec.Status, exec.TriggerSource))
			if exec.Error != nil {
				out.Error(fmt.Sprintf("failed at node %q: %s", exec.Error.NodeID, exec.Error.Message))
			}

			headers := []string{"#", "NODE", "TYPE", "DURATION_MS", "TIMESTAMP"}
			rows := make([][]string, len(exec.Logs))
			for i, entry := range exec.Logs {
				rows[i] = []string{
					strconv.Itoa(i + 1),
					entry.NodeID,
					entry.NodeType,
					strconv.FormatInt(entry.DurationMs, 10),
					entry.Timestamp,
				}
			}

			out.Print(headers, rows, exec)
			return nil
		},
		Args: cobra.ExactArgs(1),
	}
}

func newExecutionCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Request cancellation of a running execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.CancelExecution(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Cancellation requested: %s", args[0]))
			return nil
		},
	}
}
