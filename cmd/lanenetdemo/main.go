// Command lanenetdemo wires two session engines together over an
// in-memory pipe and drives a few sends through them, printing delivered
// messages plus each side's final statistics. It exists purely to
// give the CLI dependency a home and to provide a runnable demonstration
// of the core; the engine itself never depends on this binary.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lanenet/internal/transport"
	"lanenet/pkg/lane"
	"lanenet/pkg/logger"
	"lanenet/pkg/session"
	"lanenet/pkg/wire"
)

const appVersion = "0.1.0"

func demoConfig() session.Config {
	return session.Config{
		LanesIn: []lane.Kind{
			lane.UnreliableUnordered,
			lane.ReliableOrdered,
		},
		LanesOut: []lane.SendConfig{
			{Kind: lane.UnreliableUnordered},
			{Kind: lane.ReliableOrdered, ResendAfter: lane.DefaultResendAfter},
		},
		MaxPacketLen:       1200,
		Bandwidth:          1_000_000,
		BandwidthBurst:     1_000_000,
		DefaultPacketCap:   1200,
		SendBufferBytesCap: 4 << 20,
		RecvBufferBytesCap: 4 << 20,
		ReassemblyTimeout:  3 * time.Second,
	}
}

func runDemo(cmd *cobra.Command, _ []string) error {
	if lvl, err := cmd.Flags().GetString("log-level"); err == nil {
		switch lvl {
		case "debug":
			logger.SetLevel(logger.LevelDebug)
		case "warn":
			logger.SetLevel(logger.LevelWarn)
		case "error":
			logger.SetLevel(logger.LevelError)
		}
	}
	logger.Banner("lanenet demo", appVersion)

	a, b := transport.NewMemPipePair(16)
	defer a.Close()
	defer b.Close()

	left, err := session.New(demoConfig())
	if err != nil {
		return fmt.Errorf("left session: %w", err)
	}
	right, err := session.New(demoConfig())
	if err != nil {
		return fmt.Errorf("right session: %w", err)
	}

	logger.Section("sending")
	now := time.Unix(0, 0)
	messages := []struct {
		payload string
		lane    int
	}{
		{"hello over an unreliable lane", 0},
		{"first ordered message", 1},
		{"second ordered message", 1},
		{"third ordered message", 1},
	}
	for _, m := range messages {
		key, err := left.Send([]byte(m.payload), wire.LaneIndex(m.lane))
		if err != nil {
			return fmt.Errorf("send: %w", err)
		}
		logger.InfoCyan("buffered message %v on lane %d: %q", key.Seq, m.lane, m.payload)
	}

	packets, err := left.Flush(now)
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	logger.Info("flush produced %d packet(s)", len(packets))

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
	defer cancel()
	for _, p := range packets {
		if err := a.Send(ctx, p); err != nil {
			return fmt.Errorf("transport send: %w", err)
		}
	}

	logger.Section("receiving")
	for range packets {
		raw, err := b.Recv(ctx)
		if err != nil {
			return fmt.Errorf("transport recv: %w", err)
		}
		_, delivered, err := right.Recv(now, raw)
		if err != nil {
			logger.Warn("dropped malformed packet: %v", err)
			continue
		}
		for _, d := range delivered {
			logger.Success("delivered lane=%d seq=%v: %q", d.Lane, d.Seq, string(d.Payload))
		}
	}

	logger.Section("stats")
	printStats("left", left.Stats())
	printStats("right", right.Stats())
	return nil
}

func printStats(name string, st session.Stats) {
	logger.Info("%s: reassembly_pending=%d reassembly_bytes=%d flushed_packets=%d",
		name, st.ReassemblyPending, st.ReassemblyBytes, st.FlushedPackets)
	for i, n := range st.SendBufferedMessages {
		logger.Info("%s: lane %d buffered_messages=%d buffered_bytes=%d", name, i, n, st.SendBufferedBytes[i])
	}
}

func main() {
	root := &cobra.Command{
		Use:          "lanenetdemo",
		Short:        "Exchange a few messages between two in-memory-piped lanenet sessions",
		RunE:         runDemo,
		SilenceUsage: true,
	}
	root.Flags().String("log-level", "info", "log level: debug|info|warn|error")
	if err := root.Execute(); err != nil {
		logger.Fatal("%v", err)
	}
}
