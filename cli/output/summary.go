package output

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"

	"github.com/jgoldverg/gust/pkg/metrics"
)

// PrintTransferSummary renders an end-of-session view of the transfer
// collector as a pterm table.
func PrintTransferSummary(title string, s metrics.TransferSnapshot) {
	pterm.DefaultSection.Println(title)

	data := pterm.TableData{
		{"Metric", "Value"},
		{"Elapsed", s.Elapsed.Round(time.Millisecond).String()},
		{"Bytes sent", fmt.Sprintf("%d", s.BytesSent)},
		{"Bytes received", fmt.Sprintf("%d", s.BytesReceived)},
		{"Bytes retransmitted", fmt.Sprintf("%d", s.BytesRetransmit)},
		{"Packets sent", fmt.Sprintf("%d", s.PacketsSent)},
		{"Packets received", fmt.Sprintf("%d", s.PacketsReceived)},
		{"Window resends", fmt.Sprintf("%d", s.WindowResends)},
		{"Checksum drops", fmt.Sprintf("%d", s.ChecksumDrops)},
		{"Discarded packets", fmt.Sprintf("%d", s.Discards)},
		{"Stalled rounds", fmt.Sprintf("%d", s.StalledRounds)},
		{"Throughput", formatRate(s.ThroughputBps)},
		{"Goodput", formatRate(s.GoodputBps)},
		{"Retransmit ratio", fmt.Sprintf("%.2f%%", s.RetransmitRate*100)},
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		pterm.Error.Println(err)
	}
}

// PrintListing renders the server's file listing.
func PrintListing(server string, names []string) {
	pterm.DefaultSection.Printf("Available files on %s", server)
	items := make([]pterm.BulletListItem, 0, len(names))
	for _, name := range names {
		items = append(items, pterm.BulletListItem{Level: 0, Text: name})
	}
	if err := pterm.DefaultBulletList.WithItems(items).Render(); err != nil {
		pterm.Error.Println(err)
	}
}

func formatRate(bps float64) string {
	switch {
	case bps >= 1e6:
		return fmt.Sprintf("%.2f MB/s", bps/1e6)
	case bps >= 1e3:
		return fmt.Sprintf("%.2f KB/s", bps/1e3)
	default:
		return fmt.Sprintf("%.0f B/s", bps)
	}
}
