package ingest

// RowError describes one rejected CSV row. Row is the 1-based record
// number in the file, header included. For extracts without quoted
// multi-line fields this matches the physical line number.
type RowError struct {
	Row    int    `json:"error_row"`
	Detail string `json:"error_detail"`
}

// Result is the per-file outcome of one ingestion stage. Row failures
// never abort the file; they are recorded here and processing moves on.
type Result struct {
	TotalRows   int        `json:"total_csv_rows"`
	SuccessRows int        `json:"success_rows"`
	FailedRows  int        `json:"failed_rows"`
	InvalidRows []RowError `json:"invalid_rows"`
}

func newResult() *Result {
	return &Result{InvalidRows: []RowError{}}
}

func (r *Result) success() {
	r.TotalRows++
	r.SuccessRows++
}

func (r *Result) fail(row int, err error) {
	r.TotalRows++
	r.FailedRows++
	r.InvalidRows = append(r.InvalidRows, RowError{Row: row, Detail: err.Error()})
}
