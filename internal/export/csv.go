package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/okian/gridelo/internal/domain/model"
)

var csvHeader = []string{"rank", "driver", "elo_rating"}

// WriteCSV writes standings with a header row and returns the number of data rows.
func WriteCSV(w io.Writer, standings []model.Standing) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("writing csv header: %w", err)
	}
	for i, st := range standings {
		row := []string{
			strconv.Itoa(st.Rank),
			string(st.Competitor),
			strconv.FormatFloat(st.Rating, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return i, fmt.Errorf("writing csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return len(standings), fmt.Errorf("flushing csv: %w", err)
	}
	return len(standings), nil
}
