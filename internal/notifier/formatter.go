package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"OptionSentinel/internal/model"
	"OptionSentinel/internal/recorder"
)

func bandEmoji(score int) string {
	switch model.ScoreBand(score) {
	case "strong":
		return "🟢"
	case "moderate":
		return "🟡"
	default:
		return "⚪"
	}
}

func flags(s model.Signal) string {
	var parts []string
	if s.UnusualVolume {
		parts = append(parts, "🔥 unusual volume")
	}
	if s.EarningsSoon {
		parts = append(parts, "📅 earnings soon")
	}
	parts = append(parts, "IV "+string(s.IVLevel))
	return strings.Join(parts, " | ")
}

// FormatSignalAlert formats one high-scoring signal with its factor
// breakdown and the ticker's historical averages.
func FormatSignalAlert(s model.Signal, avg recorder.Averages) string {
	var b strings.Builder

	side, score := "CALL", s.CallScore
	if s.PutScore > s.CallScore {
		side, score = "PUT", s.PutScore
	}
	b.WriteString(fmt.Sprintf("🚨 <b>%s %s signal</b> | %s\n\n", html.EscapeString(s.Ticker), side,
		s.Timestamp.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Price: %.2f\n", s.Price))
	b.WriteString(fmt.Sprintf("%s Call: %d | %s Put: %d\n", bandEmoji(s.CallScore), s.CallScore, bandEmoji(s.PutScore), s.PutScore))
	b.WriteString(flags(s) + "\n\n")

	if len(s.Factors) > 0 {
		b.WriteString("📈 <b>Factors:</b>\n")
		for _, f := range s.Factors {
			b.WriteString(fmt.Sprintf("  %s (w%.0f): call %+.1f / put %+.1f  %s\n",
				f.Name, f.Weight, f.Call, f.Put, html.EscapeString(f.Commentary)))
		}
		b.WriteString("\n")
	}

	b.WriteString(formatComparison(s, avg))
	b.WriteString(fmt.Sprintf("\nStrongest side %s at %d (%s)", side, score, model.ScoreBand(score)))
	return b.String()
}

func formatComparison(s model.Signal, avg recorder.Averages) string {
	if avg.Count == 0 {
		return "No history for comparison yet.\n"
	}
	return fmt.Sprintf("vs avg of %d: call %+.1f, put %+.1f\n",
		avg.Count, float64(s.CallScore)-avg.Call, float64(s.PutScore)-avg.Put)
}

// FormatBoard formats the ranked signal board.
func FormatBoard(signals []model.Signal, status model.DataStatus, at time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>Options signals</b> | %s | data: %s\n\n", at.Format("2006-01-02 15:04"), status))
	if len(signals) == 0 {
		b.WriteString("No signals yet.")
		return b.String()
	}
	for i, s := range signals {
		b.WriteString(fmt.Sprintf("%d. <b>%s</b> %.2f  %s C%d  %s P%d",
			i+1, html.EscapeString(s.Ticker), s.Price,
			bandEmoji(s.CallScore), s.CallScore, bandEmoji(s.PutScore), s.PutScore))
		if s.UnusualVolume {
			b.WriteString(" 🔥")
		}
		if s.EarningsSoon {
			b.WriteString(" 📅")
		}
		b.WriteString("\n")
	}
	if status == model.StatusMock {
		b.WriteString("\n⚠️ Mock data in use, send /retry to reconnect live data.")
	}
	return b.String()
}

// FormatHistory formats a ticker's recent recorded signals.
func FormatHistory(ticker string, history []model.Signal, avg recorder.Averages) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🕘 <b>%s history</b>\n\n", html.EscapeString(strings.ToUpper(ticker))))
	if len(history) == 0 {
		b.WriteString("No recorded signals.")
		return b.String()
	}
	for _, s := range history {
		b.WriteString(fmt.Sprintf("%s  %.2f  C%d P%d\n", s.Timestamp.Format("01-02 15:04"), s.Price, s.CallScore, s.PutScore))
	}
	b.WriteString(fmt.Sprintf("\nAverage over %d: call %.1f | put %.1f", avg.Count, avg.Call, avg.Put))
	return b.String()
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	return strings.Join([]string{
		"🤖 <b>Commands</b>",
		"/signals - ranked signal board",
		"/history TICKER - recent signals for a ticker",
		"/retry - retry the live data source",
		"/clear - clear recorded history",
	}, "\n")
}
