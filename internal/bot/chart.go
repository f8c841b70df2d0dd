package bot

import (
	"fmt"
	"strings"

	"todo-assistant/internal/model"
)

// ChartRenderer turns a daily series into message text.
type ChartRenderer interface {
	Render(points []model.DailyPoint) string
}

// TextChart draws horizontal bars with block characters inside a <pre> block.
type TextChart struct {
	Width int
}

func (c TextChart) Render(points []model.DailyPoint) string {
	if len(points) == 0 {
		return ""
	}
	width := c.Width
	if width <= 0 {
		width = 12
	}
	maxScore := 0.0
	for _, p := range points {
		maxScore = max(maxScore, p.Score)
	}

	var b strings.Builder
	b.WriteString("<pre>")
	b.WriteString("date   +new ✓done score\n")
	for _, p := range points {
		n := 0
		if maxScore > 0 {
			n = int(p.Score / maxScore * float64(width))
		}
		fmt.Fprintf(&b, "%s %4d %5d %5.1f %s\n",
			p.Date.Format("02.01"), p.Created, p.Completed, p.Score, strings.Repeat("█", n))
	}
	b.WriteString("</pre>")
	return b.String()
}
