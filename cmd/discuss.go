package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/casedoc"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/diagrams"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/discussion"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/storage"
)

var discussCmd = &cobra.Command{
	Use:   "discuss",
	Short: "Discuss a saved case with the AI tutor",
	Long: `Opens a streaming discussion thread anchored to one aspect of a saved
case. A previously persisted thread for the same topic is resumed.
Type /diagram <prompt> to request a diagram, /save to persist the
thread onto the case, and /quit to leave.`,
	RunE: runDiscuss,
}

func init() {
	discussCmd.Flags().String("case", "", "saved case id (required)")
	discussCmd.Flags().String("topic", "", "topic id, e.g. a consideration aspect (required)")
	discussCmd.Flags().String("aspect", "", "aspect label shown in the thread")
	discussCmd.MarkFlagRequired("case")
	discussCmd.MarkFlagRequired("topic")
	rootCmd.AddCommand(discussCmd)
}

func runDiscuss(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	caseID, _ := cmd.Flags().GetString("case")
	topicID, _ := cmd.Flags().GetString("topic")
	aspect, _ := cmd.Flags().GetString("aspect")
	if aspect == "" {
		aspect = topicID
	}

	database, records, err := openRecords(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	doc, ok := records.SavedCase(caseID)
	if !ok {
		return fmt.Errorf("no saved case with id %q", caseID)
	}

	provider, err := createProviderFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating LLM provider: %w", err)
	}

	sessCfg := discussion.Config{
		TopicID:   topicID,
		CaseTitle: doc.Title,
		Aspect:    aspect,
		Language:  doc.Language,
		Provider:  provider,
		Model:     cfg.Model,
	}

	var sess *discussion.Session
	if history := doc.Discussion(topicID); len(history) > 0 {
		sess = discussion.Restore(sessCfg, history)
		fmt.Printf("Resuming discussion on %q (%d messages)\n\n", aspect, len(history))
	} else {
		sess = discussion.Open(sessCfg)
	}
	defer sess.Close()

	printTranscript(sess.Messages())

	prompt := promptui.Prompt{Label: "You", AllowEdit: true}
	for {
		line, err := prompt.Run()
		if err != nil {
			// Ctrl-C / Ctrl-D end the session.
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case line == "/quit" || line == "/exit":
			return persistIfDirty(sess, records, doc)
		case line == "/save":
			if err := persistIfDirty(sess, records, doc); err != nil {
				return err
			}
			fmt.Println("Discussion saved.")
			continue
		case strings.HasPrefix(line, "/diagram"):
			runDiagramTurn(ctx, sess, strings.TrimSpace(strings.TrimPrefix(line, "/diagram")))
			continue
		}

		runChatTurn(ctx, sess, line)
	}

	return persistIfDirty(sess, records, doc)
}

// runChatTurn sends one message and prints the reply as it streams.
func runChatTurn(ctx context.Context, sess *discussion.Session, text string) {
	fmt.Print("Tutor: ")
	printed := 0
	err := sess.Send(ctx, text, func(full string) {
		fmt.Print(full[printed:])
		printed = len(full)
	})
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	// Transport failures surface as the trailing system message.
	msgs := sess.Messages()
	if last := msgs[len(msgs)-1]; last.Role == casedoc.RoleSystem {
		fmt.Println(last.Text)
	}
}

func runDiagramTurn(ctx context.Context, sess *discussion.Session, prompt string) {
	if err := sess.RequestDiagram(ctx, prompt); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	msgs := sess.Messages()
	last := msgs[len(msgs)-1]
	if last.Diagram != nil {
		fmt.Println(diagrams.Mermaid(last.Diagram))
	} else {
		fmt.Println(last.Text)
	}
}

func persistIfDirty(sess *discussion.Session, records *storage.Records, doc *casedoc.Document) error {
	if !sess.Dirty() {
		return nil
	}
	if err := sess.Persist(doc); err != nil {
		return fmt.Errorf("persisting discussion: %w", err)
	}
	records.SaveCase(doc)
	return nil
}

func printTranscript(msgs []casedoc.Message) {
	for _, m := range msgs {
		switch m.Role {
		case casedoc.RoleUser:
			fmt.Printf("You: %s\n", m.Text)
		case casedoc.RoleAssistant:
			fmt.Printf("Tutor: %s\n", m.Text)
		default:
			fmt.Printf("[%s]\n", m.Text)
		}
	}
	fmt.Println()
}
