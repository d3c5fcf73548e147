package reporting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mamadbah2/xchicks/internal/domain/models"
)

// FormatSales renders a summary as a WhatsApp-friendly text block.
func FormatSales(s models.SalesSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sales summary (%s)\n", s.ComputedAt.Format(dateLayout))
	fmt.Fprintf(&b, "Chicks: %d across %d requests = %s\n", s.ChicksSold, s.ChickRequests, s.ChickSalesTotal.StringFixed(2))
	fmt.Fprintf(&b, "Feed: %d bags across %d allocations = %s\n", s.FeedBagsSold, s.FeedAllocations, s.FeedSalesTotal.StringFixed(2))
	fmt.Fprintf(&b, "Total at current prices: %s\n", s.Total.StringFixed(2))
	fmt.Fprintf(&b, "Recorded at delivery: %s (%d sales)", s.RecordedSalesTotal.StringFixed(2), s.Sales)
	return b.String()
}

// FormatStock renders stock levels.
func FormatStock(s models.StockSummary) string {
	var b strings.Builder
	b.WriteString("Stock levels\n")
	if len(s.Chicks) == 0 {
		b.WriteString("Chicks: none\n")
	}
	for _, lvl := range s.Chicks {
		fmt.Fprintf(&b, "%s %s: %d chicks in %d batches\n", lvl.ChickBreed, lvl.ChickType, lvl.Quantity, lvl.Batches)
	}

	names := make([]string, 0, len(s.FeedBags))
	for name := range s.FeedBags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "Feed %s: %d bags\n", name, s.FeedBags[name])
	}
	if len(s.ExpiredFeed) > 0 {
		fmt.Fprintf(&b, "Expired feed: %s\n", strings.Join(s.ExpiredFeed, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatDaily renders the end-of-day report.
func FormatDaily(r models.DailyReport) string {
	return fmt.Sprintf("Daily report %s\nRequests: %d submitted, %d approved, %d rejected\nChicks allocated: %d\nFeed bags allocated: %d\nSales at current prices: %s\nRecorded today: %s",
		r.Date.Format(dateLayout),
		r.RequestsSubmitted, r.RequestsApproved, r.RequestsRejected,
		r.ChicksAllocated,
		r.FeedBagsAllocated,
		r.SalesTotal,
		r.RecordedTotal,
	)
}

// FormatReminder renders a payment reminder for a farmer.
func FormatReminder(p models.OverduePayment) string {
	return fmt.Sprintf("Hello %s, payment of %s for feed %s (%s) was due on %s. Please settle it at your earliest convenience.",
		p.Farmer.Name,
		p.Allocation.AmountDue.StringFixed(2),
		p.Allocation.FeedName,
		p.Allocation.RequestCode,
		p.Allocation.PaymentDueDate.Format(dateLayout),
	)
}
