package pipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	filesSheet   = "Files"
)

var fileHeaders = []interface{}{
	"Path", "File Name", "Type", "Status", "Title", "Language", "Chunks", "Tokens", "Processing (ms)", "Output", "Error",
}

// WriteReport renders a batch run as an xlsx workbook with a summary sheet
// and one row per file.
func WriteReport(w io.Writer, res *BatchResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	s := res.Summary
	rows := [][]interface{}{
		{"Run ID", res.RunID},
		{"Directory", res.Directory},
		{"Started", res.StartedAt.Format("2006-01-02 15:04:05")},
		{"Finished", res.FinishedAt.Format("2006-01-02 15:04:05")},
		{"Total Files", s.TotalFiles},
		{"Successful", s.Successful},
		{"Failed", s.Failed},
		{"Total Chunks", s.TotalChunks},
		{"Total Tokens", s.TotalTokens},
		{"Avg Processing Time (ms)", s.AvgProcessingTimeMS},
		{"File Types", strings.Join(s.FileTypes, ", ")},
	}
	for i, row := range rows {
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 26); err != nil {
		return err
	}

	if _, err := f.NewSheet(filesSheet); err != nil {
		return err
	}
	if err := setRow(f, filesSheet, 1, fileHeaders); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(filesSheet, 1, 1, bold); err != nil {
		return err
	}
	for i, item := range res.Items {
		if err := setRow(f, filesSheet, i+2, fileRow(item)); err != nil {
			return err
		}
	}
	if err := f.SetPanes(filesSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

func fileRow(item ItemResult) []interface{} {
	if !item.OK() {
		return []interface{}{item.Path, "", "", "failed", "", "", 0, 0, 0, "", item.Error}
	}
	d := item.Document
	status := "ok"
	errText := ""
	if item.SaveError != "" {
		status = "unsaved"
		errText = item.SaveError
	}
	return []interface{}{
		item.Path, d.FileName, d.FileType, status, d.Metadata.Title, d.Metadata.Language,
		d.ChunkCount, d.TotalTokens, d.ProcessingTimeMS, item.Output, errText,
	}
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
