package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Strob0t/AgentShift/internal/domain/shift"
)

// Header is the column row of the CSV export.
var Header = []string{"Name", "Actual Date", "Shift Date", "Previous Value", "New Value", "Time Logged In"}

const timestampLayout = "2006-01-02 15:04:05"

// WriteCSV writes rows in scan order, synthetic rows included.
func WriteCSV(w io.Writer, rows []shift.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.Agent,
			r.Timestamp.Format(timestampLayout),
			r.ShiftDate.Format(dateLayout),
			strconv.Itoa(int(r.Previous)),
			strconv.Itoa(int(r.New)),
			FormatDuration(r.LoggedIn),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// FormatDuration renders d as H:MM:SS.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}
