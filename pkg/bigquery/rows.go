package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// SiteStatRow mirrors a daily_site_stats row in the warehouse.
type SiteStatRow struct {
	Date           civil.Date
	TotalVisitors  int64
	TotalPageViews int64
	TotalRentals   int64
	TotalRevenue   string
	AvgOrderValue  string
	ConversionRate float64
	ComputedAt     time.Time
}

// Save implements bigquery.ValueSaver.
func (r *SiteStatRow) Save() (map[string]bigquery.Value, string, error) {
	return map[string]bigquery.Value{
		"date":             r.Date,
		"total_visitors":   r.TotalVisitors,
		"total_page_views": r.TotalPageViews,
		"total_rentals":    r.TotalRentals,
		"total_revenue":    r.TotalRevenue,
		"avg_order_value":  r.AvgOrderValue,
		"conversion_rate":  r.ConversionRate,
		"computed_at":      r.ComputedAt,
	}, r.Date.String(), nil
}

func siteStatSchema() bigquery.Schema {
	return bigquery.Schema{
		{Name: "date", Type: bigquery.DateFieldType, Required: true},
		{Name: "total_visitors", Type: bigquery.IntegerFieldType, Required: true},
		{Name: "total_page_views", Type: bigquery.IntegerFieldType, Required: true},
		{Name: "total_rentals", Type: bigquery.IntegerFieldType, Required: true},
		{Name: "total_revenue", Type: bigquery.NumericFieldType, Required: true},
		{Name: "avg_order_value", Type: bigquery.NumericFieldType, Required: true},
		{Name: "conversion_rate", Type: bigquery.FloatFieldType, Required: true},
		{Name: "computed_at", Type: bigquery.TimestampFieldType, Required: true},
	}
}
