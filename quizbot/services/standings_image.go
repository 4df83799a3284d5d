package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/maxter9595/O2RusQuizBot/quizbot/database/models"
)

// StandingsImageService renders the standings table to a PNG through a
// headless browser. Rendering is best effort: callers fall back to plain
// text when it fails.
type StandingsImageService struct {
	logger *slog.Logger
}

type standingsImageData struct {
	Title     string
	Timestamp string
	Rows      []*models.StandingsRow
}

func NewStandingsImageService() *StandingsImageService {
	service := &StandingsImageService{
		logger: slog.With(slog.String("service", "standings_image")),
	}
	service.testChromedpAvailability()
	return service
}

func (s *StandingsImageService) testChromedpAvailability() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	chromedpCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	err := chromedp.Run(chromedpCtx, chromedp.Navigate("data:text/html,<html><body>test</body></html>"))
	if err != nil {
		s.logger.Error("chromedp not available - image generation will fail",
			slog.String("error", err.Error()))
	} else {
		s.logger.Info("chromedp is available and working")
	}
}

// GenerateStandingsImage renders the rows into a screenshot of the standings
// table.
func (s *StandingsImageService) GenerateStandingsImage(ctx context.Context, title string, rows []*models.StandingsRow) ([]byte, error) {
	start := time.Now()
	if len(rows) == 0 {
		return nil, fmt.Errorf("no standings rows provided")
	}

	htmlContent, err := s.generateHTML(standingsImageData{
		Title:     title,
		Timestamp: time.Now().Format("15:04 02.01.2006"),
		Rows:      rows,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	chromedpCtx, cancel := chromedp.NewContext(ctx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancel()

	chromedpCtx, cancel = context.WithTimeout(chromedpCtx, 15*time.Second)
	defer cancel()

	var imageBytes []byte
	err = chromedp.Run(chromedpCtx,
		chromedp.Navigate("data:text/html,"+htmlContent),
		chromedp.WaitVisible("#standings-container", chromedp.ByID),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.Screenshot("#standings-container", &imageBytes, chromedp.ByID),
	)
	if err != nil {
		s.logger.Error("Failed to generate image with chromedp",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}

	s.logger.Info("Standings image generated",
		slog.Int("rows", len(rows)),
		slog.Int("image_size", len(imageBytes)),
		slog.Duration("elapsed", time.Since(start)))
	return imageBytes, nil
}

var standingsTemplate = template.Must(template.New("standings").Funcs(template.FuncMap{
	"points": func(v float64) int64 { return int64(v) },
}).Parse(`<html><head><meta charset="utf-8"><style>
body { margin: 0; font-family: Arial, sans-serif; background: #1e1f22; }
#standings-container { display: inline-block; padding: 24px; background: #2b2d31; color: #f2f3f5; }
h1 { font-size: 20px; margin: 0 0 4px 0; }
.timestamp { color: #949ba4; font-size: 12px; margin-bottom: 16px; }
table { border-collapse: collapse; }
th, td { padding: 6px 14px; text-align: left; font-size: 14px; }
th { color: #949ba4; border-bottom: 1px solid #3f4147; }
tr:nth-child(even) td { background: #313338; }
td.place { color: #f0b232; font-weight: bold; }
</style></head><body>
<div id="standings-container">
<h1>{{.Title}}</h1>
<div class="timestamp">{{.Timestamp}}</div>
<table>
<tr><th>Место</th><th>ФИО</th><th>Викторины</th><th>Турниры</th><th>Всего</th></tr>
{{range .Rows}}<tr>
<td class="place">{{.FinalPlace}}</td>
<td>{{.FullName}}</td>
<td>{{points .QuizPoints}} ({{.QuizPlace}})</td>
<td>{{points .TournamentPoints}} ({{.TournamentPlace}})</td>
<td>{{points .TotalPoints}}</td>
</tr>{{end}}
</table>
</div>
</body></html>`))

func (s *StandingsImageService) generateHTML(data standingsImageData) (string, error) {
	var buf bytes.Buffer
	if err := standingsTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	// data: URLs treat # as a fragment delimiter.
	htmlContent := strings.ReplaceAll(buf.String(), "#", "%23")
	htmlContent = strings.ReplaceAll(htmlContent, "\n", "")
	return htmlContent, nil
}
