package routes

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

func formatMoney(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return moneyPrinter.Sprintf("%.2f", f)
}

// WriteSettlementCSV serialises a liquidation summary to CSV: the route
// totals first, then one row per stop.
func WriteSettlementCSV(w io.Writer, settlement *Settlement) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Metric", "Value"}); err != nil {
		return err
	}
	summary := [][]string{
		{"Route", settlement.RouteNumber},
		{"Status", string(settlement.Status)},
		{"Expected", formatMoney(settlement.TotalExpected)},
		{"Collected", formatMoney(settlement.TotalCollected)},
		{"Difference", formatMoney(settlement.Difference)},
	}
	if settlement.FinishedAt != nil {
		summary = append(summary, []string{"Finished At", settlement.FinishedAt.Format("2006-01-02 15:04:05")})
	}
	for _, record := range summary {
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	if err := writer.Write([]string{"Seq", "Customer", "Order", "Stop Status", "Payment Method", "Order Total", "Collected", "Paid Elsewhere"}); err != nil {
		return err
	}
	for _, row := range settlement.Rows {
		record := []string{
			strconv.Itoa(row.SequenceOrder),
			row.CustomerName,
			strconv.FormatInt(row.OrderID, 10),
			string(row.StopStatus),
			string(row.PaymentMethod),
			formatMoney(row.OrderTotal),
			formatMoney(row.Collected),
			formatMoney(row.PaidElsewhere),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
