package cmd

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/runger/tally/internal/picker"
	"github.com/runger/tally/internal/storage"
	"github.com/runger/tally/internal/suggest"
)

var (
	tagsLimit int

	tagsPickEvent string
)

var tagsCmd = &cobra.Command{
	Use:     "tags <queue> [query]...",
	Short:   "Show a queue's tags by usage",
	GroupID: groupCore,
	Long: `Show a queue's tags, most used first. With a query, only tags whose
names contain the query's words in order are shown.

Examples:
  tally tags runs             # every tag in the queue
  tally tags runs lo ru       # tags like "long run"
  tally tags pick runs        # choose a tag interactively`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTags,
}

var tagsPickCmd = &cobra.Command{
	Use:   "pick <queue> [query]",
	Short: "Choose a tag interactively",
	Long: `Open an interactive picker over the queue's tags. The chosen name is
printed to stdout. With --event, the tag is also attached to that event;
typing a name that does not exist yet creates it.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runTagsPick,
}

func init() {
	tagsCmd.Flags().IntVarP(&tagsLimit, "limit", "n", 0, "maximum number of tags to show (0 = all)")
	tagsPickCmd.Flags().StringVarP(&tagsPickEvent, "event", "e", "", "attach the chosen tag to this event id")

	tagsCmd.AddCommand(tagsPickCmd)
}

func runTags(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := commandContext(cmd)
	defer cancel()

	q, err := resolveQueue(ctx, s.store, args[0])
	if err != nil {
		return err
	}
	stats, err := s.store.GlobalTags(ctx, q.ID)
	if err != nil {
		return err
	}

	query := strings.Join(args[1:], " ")
	if query != "" {
		stats = suggest.Rescan(stats, query)
	}
	stats = suggest.Limit(stats, tagsLimit)

	if len(stats) == 0 {
		if query != "" {
			fmt.Printf("No tags in %s matching '%s'\n", queueLabel(q), query)
		} else {
			fmt.Printf("No tags in %s\n", queueLabel(q))
		}
		return nil
	}

	width := terminalWidth() - 2
	for _, st := range stats {
		fmt.Println("  " + picker.Row(picker.SanitizeName(st.Tag.Name), st.Count, width))
	}
	return nil
}

func runTagsPick(cmd *cobra.Command, args []string) error {
	var eventID int64
	if tagsPickEvent != "" {
		id, err := parseID("event", tagsPickEvent)
		if err != nil {
			return err
		}
		eventID = id
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	q, err := pickTarget(cmd, s.store, args[0], eventID)
	if err != nil {
		return err
	}

	opts := picker.Options{
		QueueID:   q.ID,
		QueueName: q.DisplayName(),
		Limit:     s.cfg.Display.SuggestionLimit,
	}
	if len(args) == 2 {
		opts.Initial = args[1]
	}

	name, ok, err := runPicker(picker.NewModel(s.store, opts))
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if eventID != 0 {
		// The picker may have been open for a while; start a fresh deadline.
		ctx, cancel := commandContext(cmd)
		defer cancel()
		if err := attachTags(ctx, s.store, q.ID, eventID, []string{name}); err != nil {
			return err
		}
		s.logger.Debug("tag picked", "queue_id", q.ID, "event_id", eventID, "tag", name)
	}
	fmt.Println(name)
	return nil
}

// pickTarget resolves the queue and checks the event before the picker opens.
func pickTarget(cmd *cobra.Command, store storage.Store, queueArg string, eventID int64) (*storage.Queue, error) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	q, err := resolveQueue(ctx, store, queueArg)
	if err != nil {
		return nil, err
	}
	if eventID != 0 {
		if err := requireQueueEvent(ctx, store, q, eventID); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// runPicker runs the picker on /dev/tty so stdout stays free for the result.
func runPicker(model picker.Model) (string, bool, error) {
	if os.Getenv("TERM") == "dumb" {
		return "", false, fmt.Errorf("TERM=dumb is not supported by the picker")
	}
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return "", false, fmt.Errorf("cannot open /dev/tty: %w", err)
	}
	defer tty.Close()

	// stdout may be a pipe; take the color profile from the tty.
	lipgloss.SetColorProfile(termenv.NewOutput(tty).ColorProfile())

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithInput(tty),
		tea.WithOutput(tty),
	)
	final, err := p.Run()
	if err != nil {
		return "", false, fmt.Errorf("picker failed: %w", err)
	}
	m, ok := final.(picker.Model)
	if !ok {
		return "", false, fmt.Errorf("picker returned unexpected model type")
	}
	name, accepted := m.Result()
	return name, accepted, nil
}
