package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewWebhookCmd создаёт группу команд для проверки webhook-триггеров.
func NewWebhookCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Test webhook triggers",
	}

	cmd.AddCommand(newWebhookTriggerCmd(clientFn, outputFn))

	return cmd
}

func newWebhookTriggerCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var payloadJSON string
	var secret string
	var urlSecret string

	cmd := &cobra.Command{
		Use:   "trigger TOKEN",
		Short: "Fire a webhook trigger by token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			payload := map[string]any{}
			if payloadJSON != "" {
				if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
					return fmt.Errorf("invalid --payload JSON: %w", err)
				}
			}
			if secret != "" {
				payload["secret"] = secret
			}

			started, err := client.TriggerWebhook(args[0], payload, urlSecret)
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

	cmd.Flags().StringVar(&payloadJSON, "payload", "", "Webhook payload as JSON object")
	cmd.Flags().StringVar(&secret, "secret", "", "Secret for auth_type=payload (added to body)")
	cmd.Flags().StringVar(&urlSecret, "url-secret", "", "Secret for auth_type=url (query parameter)")

	return cmd
}
