package mentions

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/seenimoa/tickerpulse/pkg/models"
	"github.com/seenimoa/tickerpulse/pkg/utils"
)

// CSVHeader is the header row of an export.
var CSVHeader = []string{"Ticker", "Mentions", "Sentiment", "Unique Users", "Last Mentioned"}

// WriteCSV writes the full ranked list as CSV. Last-mentioned times are
// rendered in loc (local time when nil).
func WriteCSV(w io.Writer, ranked []models.TickerSummary, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range ranked {
		row := []string{
			t.Ticker,
			strconv.Itoa(t.MentionCount),
			t.SentimentLabel,
			strconv.Itoa(t.UniqueUserCount),
			utils.FormatDateTime(t.LastSeenAt, loc),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", t.Ticker, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename returns the conventional export file name for tf on the
// date of now.
func ExportFilename(tf Timeframe, now time.Time) string {
	return fmt.Sprintf("stock_summary_%s_%s.csv", tf, now.UTC().Format(utils.DateLayout))
}
