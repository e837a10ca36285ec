package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/tally/internal/storage"
)

var (
	eventAddAt      string
	eventAddComment string
	eventAddTags    string

	eventEditAt      string
	eventEditComment string

	eventListOrder string
	eventListLimit int

	eventUntagAll bool
)

var eventCmd = &cobra.Command{
	Use:     "event",
	Short:   "Record and edit events",
	GroupID: groupCore,
	Long: `Record and edit events. An event is a timestamped occurrence in a
queue, with an optional comment and any number of tags.

Timestamps are unix milliseconds or RFC 3339; the default is now.
Tag lists are shell-quoted so names may contain spaces.

Examples:
  tally event add runs --tags "morning 'long run'" --comment "10k"
  tally event add runs --at 2024-05-01T07:30:00Z
  tally event list runs --order timestamp_desc -n 10
  tally event tag runs 42 tempo
  tally event untag runs 42 --all`,
}

var eventAddCmd = &cobra.Command{
	Use:   "add <queue>",
	Short: "Add an event to a queue",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventAdd,
}

var eventListCmd = &cobra.Command{
	Use:   "list <queue>",
	Short: "List a queue's events",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventList,
}

var eventShowCmd = &cobra.Command{
	Use:   "show <event-id>",
	Short: "Show an event",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventShow,
}

var eventEditCmd = &cobra.Command{
	Use:   "edit <event-id>",
	Short: "Change an event's timestamp or comment",
	Long: `Change an event's timestamp or comment. Only the flags given are
changed; --comment "" clears the comment.`,
	Args: cobra.ExactArgs(1),
	RunE: runEventEdit,
}

var eventTagCmd = &cobra.Command{
	Use:   "tag <queue> <event-id> <tag>...",
	Short: "Attach tags from a queue's namespace to an event",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runEventTag,
}

var eventUntagCmd = &cobra.Command{
	Use:   "untag <queue> <event-id> [tag]...",
	Short: "Detach tags from an event",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runEventUntag,
}

var eventDeleteCmd = &cobra.Command{
	Use:   "delete <event-id>",
	Short: "Delete an event with its queue and tag links",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventDelete,
}

func init() {
	eventAddCmd.Flags().StringVar(&eventAddAt, "at", "", "event time: unix ms or RFC 3339 (default now)")
	eventAddCmd.Flags().StringVarP(&eventAddComment, "comment", "m", "", "event comment")
	eventAddCmd.Flags().StringVarP(&eventAddTags, "tags", "t", "", "shell-quoted tag list")

	eventEditCmd.Flags().StringVar(&eventEditAt, "at", "", "new event time: unix ms or RFC 3339")
	eventEditCmd.Flags().StringVarP(&eventEditComment, "comment", "m", "", "new comment (empty clears it)")

	eventListCmd.Flags().StringVar(&eventListOrder, "order", "",
		"event order: "+strings.Join(storage.EventOrderTokens(), ", ")+" (default display.event_order)")
	eventListCmd.Flags().IntVarP(&eventListLimit, "limit", "n", 0, "maximum number of events to show (0 = all)")

	eventUntagCmd.Flags().BoolVar(&eventUntagAll, "all", false, "detach every tag")

	eventCmd.AddCommand(eventAddCmd)
	eventCmd.AddCommand(eventListCmd)
	eventCmd.AddCommand(eventShowCmd)
	eventCmd.AddCommand(eventEditCmd)
	eventCmd.AddCommand(eventTagCmd)
	eventCmd.AddCommand(eventUntagCmd)
	eventCmd.AddCommand(eventDeleteCmd)
}

func runEventAdd(cmd *cobra.Command, args []string) error {
	ts, err := parseTimestamp(eventAddAt, time.Now())
	if err != nil {
		return err
	}
	tags, err := splitTags(eventAddTags)
	if err != nil {
		return err
	}

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

	ev, err := s.store.CreateEvent(ctx)
	if err != nil {
		return err
	}
	if err := fillEvent(ctx, s.store, q.ID, ev, ts, eventAddComment, tags); err != nil {
		// Drop the half-built event.
		if derr := s.store.DeleteEvent(ctx, ev.ID); derr != nil {
			s.logger.Warn("failed to remove partial event", "event_id", ev.ID, "error", derr)
		}
		return err
	}

	fmt.Printf("%sAdded%s event #%d to %s\n", colorGreen, colorReset, ev.ID, queueLabel(q))
	return nil
}

func runEventList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := commandContext(cmd)
	defer cancel()

	order := s.cfg.EventOrder()
	if eventListOrder != "" {
		var ok bool
		order, ok = storage.ParseEventOrder(eventListOrder)
		if !ok {
			return fmt.Errorf("unknown event order %q (want one of %s)",
				eventListOrder, strings.Join(storage.EventOrderTokens(), ", "))
		}
	}

	q, err := resolveQueue(ctx, s.store, args[0])
	if err != nil {
		return err
	}
	ids, err := s.store.QueueEventIDs(ctx, q.ID, order)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Printf("No events in %s\n", queueLabel(q))
		return nil
	}
	if eventListLimit > 0 && len(ids) > eventListLimit {
		ids = ids[:eventListLimit]
	}

	for _, id := range ids {
		ev, err := s.store.GetEvent(ctx, id)
		if err != nil {
			return err
		}
		tags, err := s.store.EventTags(ctx, id)
		if err != nil {
			return err
		}
		printEventLine(ev, tags, s.cfg.Display.TimeFormat)
	}
	return nil
}

func runEventShow(cmd *cobra.Command, args []string) error {
	id, err := parseID("event", args[0])
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := commandContext(cmd)
	defer cancel()

	ev, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	tags, err := s.store.EventTags(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("%sEvent%s #%d\n", colorBold, colorReset, ev.ID)
	fmt.Printf("  time:    %s\n", formatTimestamp(ev.Timestamp, s.cfg.Display.TimeFormat))
	if ev.Comment != nil {
		fmt.Printf("  comment: %s\n", *ev.Comment)
	}
	if len(tags) > 0 {
		fmt.Printf("  tags:    %s\n", tagNames(tags))
	}
	return nil
}

func runEventEdit(cmd *cobra.Command, args []string) error {
	id, err := parseID("event", args[0])
	if err != nil {
		return err
	}
	atChanged := cmd.Flags().Changed("at")
	commentChanged := cmd.Flags().Changed("comment")
	if !atChanged && !commentChanged {
		return fmt.Errorf("nothing to change: pass --at or --comment")
	}

	var ts int64
	if atChanged {
		ts, err = parseTimestamp(eventEditAt, time.Now())
		if err != nil {
			return err
		}
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if atChanged {
		if err := s.store.SetEventTimestamp(ctx, id, ts); err != nil {
			return err
		}
	}
	if commentChanged {
		if err := s.store.SetEventComment(ctx, id, eventEditComment); err != nil {
			return err
		}
	}

	fmt.Printf("Updated event #%d\n", id)
	return nil
}

func runEventTag(cmd *cobra.Command, args []string) error {
	eventID, err := parseID("event", args[1])
	if err != nil {
		return err
	}
	tags := normalizeTags(args[2:])
	if len(tags) == 0 {
		return storage.ErrEmptyTagName
	}

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
	if err := requireQueueEvent(ctx, s.store, q, eventID); err != nil {
		return err
	}
	if err := attachTags(ctx, s.store, q.ID, eventID, tags); err != nil {
		return err
	}

	fmt.Printf("Tagged event #%d: %s\n", eventID, strings.Join(tags, ", "))
	return nil
}

func runEventUntag(cmd *cobra.Command, args []string) error {
	eventID, err := parseID("event", args[1])
	if err != nil {
		return err
	}
	names := normalizeTags(args[2:])
	if !eventUntagAll && len(names) == 0 {
		return fmt.Errorf("name at least one tag, or pass --all")
	}

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
	if err := requireQueueEvent(ctx, s.store, q, eventID); err != nil {
		return err
	}

	if eventUntagAll {
		if err := s.store.RemoveEventTags(ctx, eventID); err != nil {
			return err
		}
		fmt.Printf("Removed all tags from event #%d\n", eventID)
		return nil
	}

	queueTags, err := s.store.QueueTags(ctx, q.ID)
	if err != nil {
		return err
	}
	byName := make(map[string]storage.Tag, len(queueTags))
	for _, t := range queueTags {
		byName[t.Name] = t
	}

	for _, name := range names {
		tag, ok := byName[name]
		if !ok {
			return fmt.Errorf("%w: %q in %s", storage.ErrTagNotFound, name, queueLabel(q))
		}
		if err := s.store.RemoveEventTag(ctx, eventID, &tag); err != nil {
			return err
		}
	}

	fmt.Printf("Untagged event #%d: %s\n", eventID, strings.Join(names, ", "))
	return nil
}

func runEventDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID("event", args[0])
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if _, err := s.store.GetEvent(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return err
	}

	fmt.Printf("%sDeleted%s event #%d\n", colorRed, colorReset, id)
	return nil
}

// fillEvent sets a new event's fields, links it into the queue and tags it.
func fillEvent(ctx context.Context, store storage.Store, queueID int64, ev *storage.Event, ts int64, comment string, tags []string) error {
	if err := store.SetEventTimestamp(ctx, ev.ID, ts); err != nil {
		return err
	}
	if comment != "" {
		if err := store.SetEventComment(ctx, ev.ID, comment); err != nil {
			return err
		}
	}
	if err := store.AddQueueEvent(ctx, queueID, ev); err != nil {
		return err
	}
	return attachTags(ctx, store, queueID, ev.ID, tags)
}

// attachTags gets or creates each named tag in the queue and links it.
func attachTags(ctx context.Context, store storage.Store, queueID, eventID int64, names []string) error {
	for _, name := range names {
		tag, err := store.GetOrCreateTag(ctx, queueID, name)
		if err != nil {
			return err
		}
		if err := store.AddEventTag(ctx, eventID, tag); err != nil {
			return err
		}
	}
	return nil
}

func printEventLine(ev *storage.Event, tags []storage.Tag, layout string) {
	line := fmt.Sprintf("%s%6d%s  %s", colorCyan, ev.ID, colorReset, formatTimestamp(ev.Timestamp, layout))
	if len(tags) > 0 {
		line += "  " + colorYellow + tagNames(tags) + colorReset
	}
	if ev.Comment != nil {
		line += "  " + colorDim + *ev.Comment + colorReset
	}
	fmt.Println(line)
}
