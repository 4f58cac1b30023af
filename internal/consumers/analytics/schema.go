package analytics

import "cloud.google.com/go/bigquery"

// SaleLineSchema is the warehouse table layout for saleLineRow. The table is
// day-partitioned on completed_at.
func SaleLineSchema() bigquery.Schema {
	return bigquery.Schema{
		{Name: "event_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "transaction_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "invoice_number", Type: bigquery.StringFieldType, Required: true},
		{Name: "line_number", Type: bigquery.IntegerFieldType, Required: true},
		{Name: "product_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "product_name", Type: bigquery.StringFieldType},
		{Name: "quantity", Type: bigquery.IntegerFieldType, Required: true},
		{Name: "unit_price", Type: bigquery.NumericFieldType, Required: true},
		{Name: "line_total", Type: bigquery.NumericFieldType, Required: true},
		{Name: "sale_total", Type: bigquery.NumericFieldType, Required: true},
		{Name: "currency", Type: bigquery.StringFieldType, Required: true},
		{Name: "payment_type", Type: bigquery.StringFieldType, Required: true},
		{Name: "staff_id", Type: bigquery.StringFieldType},
		{Name: "completed_at", Type: bigquery.TimestampFieldType, Required: true},
		{Name: "ingested_at", Type: bigquery.TimestampFieldType, Required: true},
	}
}

// PartitionField is the TIMESTAMP column the sales table is partitioned on.
const PartitionField = "completed_at"
