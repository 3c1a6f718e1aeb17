package implementation

import (
	"database/sql"

	pbdmodels "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Models"
)

// rowIterator adapts a *sql.Rows result set to the ReadingIterator
// contract shared by both repository implementations.
type rowIterator struct {
	rows *sql.Rows
	cur  *pbdmodels.StoredReading
	err  error
}

func newRowIterator(rows *sql.Rows) *rowIterator {
	return &rowIterator{rows: rows}
}

func (it *rowIterator) Next() bool {
	if it.err != nil || !it.rows.Next() {
		if it.err == nil {
			it.err = it.rows.Err()
		}
		return false
	}
	it.cur, it.err = scanReadingRows(it.rows)
	return it.err == nil
}

func (it *rowIterator) Reading() *pbdmodels.StoredReading {
	return it.cur
}

func (it *rowIterator) Err() error {
	return it.err
}

func (it *rowIterator) Close() error {
	return it.rows.Close()
}
