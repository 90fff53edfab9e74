package utils

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// LoadDatesFromDB pulls the list of valid timestamps for a layer out
// of a Postgres table. The table is expected to have layer_name and
// timestamp columns maintained by the ingestion pipeline.
func LoadDatesFromDB(dsn string, table string, layerName string) ([]string, error) {
	if len(dsn) == 0 {
		return nil, fmt.Errorf("empty dates dsn for layer %s", layerName)
	}
	if len(table) == 0 {
		table = "layer_timestamps"
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(fmt.Sprintf("SELECT timestamp FROM %s WHERE layer_name = $1 ORDER BY timestamp", table), layerName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var ts string
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}

		t, err := ParseISOTimestamp(ts)
		if err != nil {
			return nil, err
		}
		dates = append(dates, t.Format(ISOFormat))
	}
	return dates, rows.Err()
}
