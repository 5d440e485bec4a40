package bench

import (
	"encoding/csv"
	"io"
	"strconv"
)

var csvHeader = []string{
	"DFG_Name", "Variant", "Scale", "Target_Latency", "Actual_Latency",
	"Delta", "Status", "FUs_Used", "Runtime_ms",
}

// WriteCSV writes rows with a header line. Rows without a target leave
// Target_Latency and Delta empty.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		target, delta := "", ""
		if r.TargetLatency > 0 {
			target = strconv.Itoa(r.TargetLatency)
			delta = strconv.Itoa(r.Delta)
		}
		rec := []string{
			r.DFG,
			r.Variant,
			strconv.FormatFloat(r.ScaleFactor, 'f', 2, 64),
			target,
			strconv.Itoa(r.ActualLatency),
			delta,
			string(r.Status),
			strconv.Itoa(r.FUsUsed),
			strconv.FormatFloat(r.RuntimeMS, 'f', 3, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
