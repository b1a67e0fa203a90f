package eld

// PrintableHeader carries the identification block required at the top of a
// printed log sheet.
type PrintableHeader struct {
	Date        string  `json:"date"`
	DayOfWeek   string  `json:"day_of_week"`
	CarrierName string  `json:"carrier_name"`
	DriverName  string  `json:"driver_name"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	TotalMiles  float64 `json:"total_miles"`
}

// PrintableGraph bundles the grid with its backing entries so a print
// template needs no other data source.
type PrintableGraph struct {
	Grid    GridData   `json:"grid"`
	Entries []LogEntry `json:"entries"`
}

// PrintableLog is the print-oriented projection of a DailyLog.
type PrintableLog struct {
	Header  PrintableHeader `json:"header"`
	Graph   PrintableGraph  `json:"graph"`
	Summary SummaryHours    `json:"summary"`
	Remarks []string        `json:"remarks"`
}

// Printable reshapes a rendered daily log for printing. Remarks collects the
// non-empty entry remarks in timeline order.
func Printable(log DailyLog) PrintableLog {
	remarks := []string{}
	for _, e := range log.Entries {
		if e.Remarks != "" {
			remarks = append(remarks, e.Remarks)
		}
	}
	return PrintableLog{
		Header: PrintableHeader{
			Date:        log.Date,
			DayOfWeek:   log.DayOfWeek,
			CarrierName: log.CarrierName,
			DriverName:  log.DriverName,
			From:        log.StartingLocation,
			To:          log.EndingLocation,
			TotalMiles:  log.TotalMiles,
		},
		Graph:   PrintableGraph{Grid: log.GridData, Entries: log.Entries},
		Summary: log.Summary,
		Remarks: remarks,
	}
}
