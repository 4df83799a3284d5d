package ranking

import (
	"fmt"
	"strings"
)

// RowText renders one participant's aggregates as the conversational block
// used in rating replies.
func RowText(r Row) string {
	return strings.Join([]string{
		fmt.Sprintf("Место: %d", r.Rank),
		fmt.Sprintf("ФИО: %s", r.FullName),
		fmt.Sprintf("Никнейм: %s", r.Username),
		fmt.Sprintf("ID участника: %s", r.DiscordID),
		fmt.Sprintf("Общее количество баллов: %s", formatPoints(r.TotalPoints)),
		fmt.Sprintf("Баллы, начисленные по рейтингу: %d", r.PlacementPoints),
		fmt.Sprintf("Баллы, начисленные по РОТ/ПОТ: %s", formatPoints(r.PoolSharePoints)),
		fmt.Sprintf("Баллы, начисленные по бонусам: %d", r.BonusPoints),
		fmt.Sprintf("Прибыль от трансфера баллов: %d", r.TransferProfit),
		fmt.Sprintf("Суммарный доход от трансфера: %d", r.TransferIncome),
		fmt.Sprintf("Суммарный убыток от трансфера: %d", r.TransferLoss),
		fmt.Sprintf("Количество правильных ответов: %d", r.CorrectAnswers),
		fmt.Sprintf("Количество вопросов: %d", r.QuestionsDone),
		fmt.Sprintf("Количество туров: %d", r.ToursPlayed),
	}, "\n")
}

// TableText renders the whole ranked table under a heading.
func TableText(heading string, rows []Row) string {
	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n\n")
	for _, r := range rows {
		b.WriteString(RowText(r))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatPoints drops the fractional part for display; pool-share sums stay
// fractional in storage but are shown truncated.
func formatPoints(v float64) string {
	return fmt.Sprintf("%d", int64(v))
}
