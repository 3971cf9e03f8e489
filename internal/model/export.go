package model

// ResultsExport is the top-level JSON structure for result export.
type ResultsExport struct {
	ExportedAt int64            `json:"exported_at"`
	Results    []ExportedResult `json:"results"`
}

// ExportedResult pairs a stored result with its exam title for export.
type ExportedResult struct {
	ExamTitle string `json:"exam_title"`
	ExamResult
}
