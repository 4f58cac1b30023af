package analytics

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSaleLineSchemaCoversRowFields(t *testing.T) {
	columns := map[string]bool{}
	for _, f := range SaleLineSchema() {
		assert.False(t, columns[f.Name], "duplicate column %s", f.Name)
		columns[f.Name] = true
	}

	rowType := reflect.TypeOf(saleLineRow{})
	assert.Len(t, columns, rowType.NumField())
	for i := 0; i < rowType.NumField(); i++ {
		tag := rowType.Field(i).Tag.Get("bigquery")
		assert.True(t, columns[tag], "row field %s has no column", tag)
	}
	assert.True(t, columns[PartitionField])
}
