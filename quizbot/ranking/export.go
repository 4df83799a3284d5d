package ranking

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportFileName is the attachment name of the spreadsheet export.
const ExportFileName = "results.xlsx"

var exportHeader = []interface{}{
	"Место",
	"ФИО",
	"Никнейм",
	"ID участника",
	"Общее количество баллов",
	"Баллы, начисленные по типу 1 (рейтинг)",
	"Баллы, начисленные по типу 2 (РОТ/ПОТ)",
	"Баллы, начисленные по типу 3 (бонусы)",
	"Баллы, начисленные по типу 4 (прибыль от трансфера)",
	"Суммарный доход от трансфера",
	"Суммарный убыток от трансфера",
	"Количество правильных ответов",
	"Количество вопросов",
	"Количество туров",
}

// BuildExport renders the ranked table into an xlsx workbook: the fixed
// header row followed by one row per participant.
func BuildExport(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write export header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []interface{}{
			row.Rank,
			row.FullName,
			row.Username,
			row.DiscordID,
			row.TotalPoints,
			row.PlacementPoints,
			row.PoolSharePoints,
			row.BonusPoints,
			row.TransferProfit,
			row.TransferIncome,
			row.TransferLoss,
			row.CorrectAnswers,
			row.QuestionsDone,
			row.ToursPlayed,
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write export row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize export: %w", err)
	}
	return buf.Bytes(), nil
}
