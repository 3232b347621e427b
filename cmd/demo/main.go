// Command demo runs a small in-process Sequence Paxos follower cluster
// driven by a scripted leader, printing the protocol trace and each
// host's final log length, decided index and compacted index (spec §8).
//
// Adapted from the teacher's cmd/demo/main.go TODO scaffold (a 5-node
// single-decree cluster wired by hand in main); this rebuilds that same
// "wire a cluster, drive one scenario, print the result" shape as a
// spf13/cobra command, since the teacher's own demo is an empty stub with
// no cobra dependency to carry forward.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/senutpal/seqpaxos/internal/demoharness"
	"github.com/senutpal/seqpaxos/internal/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted Sequence Paxos follower cluster in one process",
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		nodes        int
		snapshotAt   uint64
		reconfigure  bool
		dropMessages bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive one cluster through catch-up, steady state, and optional reconfiguration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(nodes, snapshotAt, reconfigure, dropMessages)
		},
	}
	cmd.Flags().IntVar(&nodes, "nodes", 3, "number of follower hosts")
	cmd.Flags().Uint64Var(&snapshotAt, "snapshot-at", 0, "compact every host's log up to this virtual index (0 disables)")
	cmd.Flags().BoolVar(&reconfigure, "reconfigure", false, "walk through a stop-sign reconfiguration after steady state")
	cmd.Flags().BoolVar(&dropMessages, "drop-messages", false, "simulate a dropped predecessor message to exercise reconnect")
	return cmd
}

func runDemo(nodes int, snapshotAt uint64, reconfigure, dropMessages bool) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	cluster := demoharness.NewCluster(nodes, logger, reg)
	defer cluster.Stop()

	scenario := demoharness.NewScenario(cluster)

	promises := scenario.Prepare()
	logger.Info("prepare round complete", zap.Int("promises", promises))

	accepted := scenario.CatchUp(1, []demoharness.Entry{"alpha", "bravo"})
	logger.Info("catch-up complete", zap.Int("accepted", accepted))

	accepted = scenario.AcceptDecide(1, []demoharness.Entry{"charlie"})
	logger.Info("accept-decide round complete", zap.Int("accepted", accepted))
	scenario.Decide(3)

	if snapshotAt > 0 {
		for _, h := range cluster.Hosts {
			if err := h.Replica().TrySnapshot(&snapshotAt); err != nil {
				logger.Warn("snapshot failed", zap.Error(err), zap.Uint64("pid", h.ID()))
			}
		}
	}

	if dropMessages {
		scenario.SkipAndDrop(4, []demoharness.Entry{"delta"})
		time.Sleep(50 * time.Millisecond)
	}

	if reconfigure {
		nextNodes := make([]uint64, 0, nodes)
		for _, h := range cluster.Hosts {
			nextNodes = append(nextNodes, uint64(h.ID()))
		}
		correlationID := uuid.New()
		ss := storage.StopSign{ConfigID: 2, Nodes: nextNodes, Metadata: correlationID[:]}
		logger.Info("reconfiguration correlation id", zap.String("id", correlationID.String()))
		acked := scenario.AcceptStopSign(ss)
		logger.Info("accept-stopsign complete", zap.Int("acked", acked))
		scenario.DecideStopSign()
	}

	time.Sleep(50 * time.Millisecond)
	for _, h := range cluster.Hosts {
		logLen, _ := h.Replica().LogLen()
		decidedIdx, _ := h.Replica().DecidedIdx()
		compactedIdx, _ := h.Replica().CompactedIdx()
		fmt.Printf("host %d: log_len=%d decided_idx=%d compacted_idx=%d\n", h.ID(), logLen, decidedIdx, compactedIdx)
	}
	return nil
}
