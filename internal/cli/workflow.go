package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewWorkflowCmd создаёт группу команд для управления workflows.
func NewWorkflowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage workflows",
	}

	cmd.AddCommand(
		newWorkflowListCmd(clientFn, outputFn),
		newWorkflowCreateCmd(clientFn, outputFn),
		newWorkflowShowCmd(clientFn, outputFn),
		newWorkflowDeleteCmd(clientFn, outputFn),
		newWorkflowActivateCmd(clientFn, outputFn),
		newWorkflowDeactivateCmd(clientFn, outputFn),
		newWorkflowRunCmd(clientFn, outputFn),
		newWorkflowExecutionsCmd(clientFn, outputFn),
	)

	return cmd
}

// workflowRow собирает строку таблицы для workflow.
func workflowRow(wf *WorkflowResponse) []string {
	return []string{
		wf.ID,
		wf.Name,
		strconv.FormatBool(wf.IsActive),
		strconv.Itoa(len(wf.Nodes)),
		wf.CreatedAt,
	}
}

var workflowHeaders = []string{"ID", "NAME", "ACTIVE", "NODES", "CREATED"}

func newWorkflowListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workflows, err := client.ListWorkflows()
			if err != nil {
				return err
			}

			rows := make([][]string, len(workflows))
			for i := range workflows {
				rows[i] = workflowRow(&workflows[i])
			}

			out.Print(workflowHeaders, rows, workflows)
			return nil
		},
	}
}

func newWorkflowCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workflow from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read workflow file: %w", err)
			}
			if !json.Valid(data) {
				return fmt.Errorf("workflow file is not valid JSON")
			}

			wf, err := client.CreateWorkflow(json.RawMessage(data))
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow created: %s", wf.ID))
			out.Print(workflowHeaders, [][]string{workflowRow(wf)}, wf)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to workflow JSON file (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newWorkflowShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show workflow details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			wf, err := client.GetWorkflow(args[0])
			if err != nil {
				return err
			}

			out.Print(workflowHeaders, [][]string{workflowRow(wf)}, wf)
			return nil
		},
	}
}

func newWorkflowDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteWorkflow(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow deleted: %s", args[0]))
			return nil
		},
	}
}

func newWorkflowActivateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "activate ID",
		Short: "Activate a workflow and register its triggers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			wf, err := client.ActivateWorkflow(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow activated: %s", wf.ID))
			out.Print(workflowHeaders, [][]string{workflowRow(wf)}, wf)
			return nil
		},
	}
}

func newWorkflowDeactivateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate ID",
		Short: "Deactivate a workflow and remove its triggers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			wf, err := client.DeactivateWorkflow(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow deactivated: %s", wf.ID))
			out.Print(workflowHeaders, [][]string{workflowRow(wf)}, wf)
			return nil
		},
	}
}

func newWorkflowRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var payloadJSON string

	cmd := &cobra.Command{
		Use:   "run ID",
		Short: "Trigger a workflow manually",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var payload map[string]any
			if payloadJSON != "" {
				if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
					return fmt.Errorf("invalid --payload JSON: %w", err)
				}
			}

			started, err := client.RunWorkflow(args[0], payload)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution started: %s", started.ExecutionID))
			out.Print(
				[]string{"EXECUTION_ID", "STATUS"},
				[][]string{{started.ExecutionID, started.Status}},
				started,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&payloadJSON, "payload", "", "Trigger payload as JSON object")

	return cmd
}

func newWorkflowExecutionsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "executions WORKFLOW_ID",
		Short: "List executions of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			execs, err := client.ListExecutions(args[0], limit)
			if err != nil {
				return err
			}

			headers := []string{"ID", "STATUS", "SOURCE", "NODES", "STARTED", "FINISHED"}
			rows := make([][]string, len(execs))
			for i, e := range execs {
				rows[i] = []string{
					e.ID,
					e.Status,
					e.TriggerSource,
					strconv.Itoa(len(e.Logs)),
					e.StartedAt,
					e.FinishedAt,
				}
			}

			out.Print(headers, rows, execs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of executions")

	return cmd
}
