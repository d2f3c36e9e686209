package askcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/aigw/simplychat/internal/chat"
	"github.com/aigw/simplychat/internal/config"
	"github.com/aigw/simplychat/internal/infrastructure/completion"
)

const askLongDesc string = `Send a single prompt to the completion endpoint.

Assistant replies are printed to stdout, rendered as Markdown. Notices
such as the model used are printed to stderr. The command fails when the
endpoint could not be reached or answered with an error status.

Examples:
  simplychat ask "What is a gateway?"
  simplychat ask --plain "Summarize HTTP/2 in one line"`

const askShortDesc string = "Send one prompt and print the reply"

// ErrSubmissionFailed is returned when the submission produced an error
// notice.
var ErrSubmissionFailed = errors.New("submission failed")

type askCommander struct {
	plain bool
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), strings.Join(args, " "))
		},
	}

	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print replies without Markdown rendering")

	return cmd
}

func (c *askCommander) run(ctx context.Context, stdout, stderr io.Writer, prompt string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var opts []completion.Option
	if cfg.APIKey != "" {
		opts = append(opts, completion.WithAPIKey(cfg.APIKey))
	}

	controller := chat.NewController(chat.Settings{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Greeting:    cfg.WelcomeMessage,
	}, completion.NewClient(cfg.APIURL, opts...))

	conv := &chat.Conversation{}
	outcome, err := controller.Submit(ctx, conv, prompt)
	if err != nil {
		return err
	}

	var renderer *glamour.TermRenderer
	if !c.plain {
		renderer, err = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			return fmt.Errorf("could not create markdown renderer: %w", err)
		}
	}

	for _, msg := range outcome.Appended {
		if msg.Role != chat.RoleAssistant {
			continue
		}
		if err := writeReply(stdout, renderer, msg.Content); err != nil {
			return err
		}
	}

	for _, n := range outcome.Notices {
		fmt.Fprintf(stderr, "[%s] %s\n", n.Level, n.Text)
	}

	if outcome.HasErrors() {
		return ErrSubmissionFailed
	}
	return nil
}

func writeReply(w io.Writer, renderer *glamour.TermRenderer, content string) error {
	if renderer == nil {
		_, err := fmt.Fprintln(w, content)
		return err
	}

	out, err := renderer.Render(content)
	if err != nil {
		return fmt.Errorf("could not render reply: %w", err)
	}
	_, err = fmt.Fprint(w, out)
	return err
}
