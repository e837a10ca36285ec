package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/tally/internal/storage"
)

var queueListOrder string

var queueCmd = &cobra.Command{
	Use:     "queue",
	Short:   "Manage queues",
	GroupID: groupCore,
	Long: `Manage queues. A queue is a named bucket of events with its own tag
namespace. Queues are addressed by id or by exact name.

Examples:
  tally queue create workouts
  tally queue list --order name
  tally queue rename 3 runs
  tally queue delete runs`,
}

var queueCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a queue",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runQueueCreate,
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queues",
	Args:  cobra.NoArgs,
	RunE:  runQueueList,
}

var queueShowCmd = &cobra.Command{
	Use:   "show <queue>",
	Short: "Show a queue with its event and tag counts",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueShow,
}

var queueRenameCmd = &cobra.Command{
	Use:   "rename <queue> <name>",
	Short: "Rename a queue",
	Args:  cobra.ExactArgs(2),
	RunE:  runQueueRename,
}

var queueDeleteCmd = &cobra.Command{
	Use:   "delete <queue>",
	Short: "Delete a queue with its events and tag links",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueDelete,
}

func init() {
	queueListCmd.Flags().StringVar(&queueListOrder, "order", "",
		"queue order: "+strings.Join(storage.QueueOrderTokens(), ", ")+" (default display.queue_order)")

	queueCmd.AddCommand(queueCreateCmd)
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueShowCmd)
	queueCmd.AddCommand(queueRenameCmd)
	queueCmd.AddCommand(queueDeleteCmd)
}

func runQueueCreate(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := commandContext(cmd)
	defer cancel()

	q, err := s.store.CreateQueue(ctx)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		if err := s.store.SetQueueName(ctx, q.ID, args[0]); err != nil {
			return err
		}
		name := args[0]
		q.Name = &name
	}

	fmt.Printf("%sCreated%s queue %s\n", colorGreen, colorReset, queueLabel(q))
	return nil
}

func runQueueList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := commandContext(cmd)
	defer cancel()

	order := s.cfg.QueueOrder()
	if queueListOrder != "" {
		var ok bool
		order, ok = storage.ParseQueueOrder(queueListOrder)
		if !ok {
			return fmt.Errorf("unknown queue order %q (want one of %s)",
				queueListOrder, strings.Join(storage.QueueOrderTokens(), ", "))
		}
	}

	queues, err := s.store.ListQueues(ctx, order)
	if err != nil {
		return err
	}
	if len(queues) == 0 {
		fmt.Println("No queues yet. Create one with: tally queue create <name>")
		return nil
	}

	for i := range queues {
		count, err := s.store.QueueEventCount(ctx, queues[i].ID)
		if err != nil {
			return err
		}
		fmt.Printf("%s%6d%s  %s  %s%d event(s)%s\n",
			colorCyan, queues[i].ID, colorReset, queueNameText(&queues[i]), colorDim, count, colorReset)
	}
	return nil
}

func runQueueShow(cmd *cobra.Command, args []string) error {
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
	count, err := s.store.QueueEventCount(ctx, q.ID)
	if err != nil {
		return err
	}
	tags, err := s.store.QueueTags(ctx, q.ID)
	if err != nil {
		return err
	}

	fmt.Printf("%sQueue%s %s\n", colorBold, colorReset, queueLabel(q))
	fmt.Printf("  events: %d\n", count)
	fmt.Printf("  tags:   %d\n", len(tags))
	return nil
}

func runQueueRename(cmd *cobra.Command, args []string) error {
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
	if err := s.store.SetQueueName(ctx, q.ID, args[1]); err != nil {
		return err
	}
	name := args[1]
	q.Name = &name

	fmt.Printf("Renamed queue to %s\n", queueLabel(q))
	return nil
}

func runQueueDelete(cmd *cobra.Command, args []string) error {
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
	if err := s.store.DeleteQueue(ctx, q.ID); err != nil {
		return err
	}

	fmt.Printf("%sDeleted%s queue %s\n", colorRed, colorReset, queueLabel(q))
	return nil
}

func queueNameText(q *storage.Queue) string {
	if q.Name == nil {
		return colorDim + "(unnamed)" + colorReset
	}
	return *q.Name
}
