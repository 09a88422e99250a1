package cmd

import (
	"strconv"

	"github.com/fatih/color"

	"github.com/khanhnv2901/secakit/internal/domain/scan"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

func formatRiskWithColor(level scan.RiskLevel) string {
	switch level {
	case scan.RiskHigh:
		return colorError(string(level))
	case scan.RiskMedium:
		return colorWarn(string(level))
	default:
		return colorSuccess(string(level))
	}
}

func formatScoreWithColor(score int) string {
	text := strconv.Itoa(score) + "/100"
	switch {
	case score >= 80:
		return colorSuccess(text)
	case score >= 50:
		return colorWarn(text)
	default:
		return colorError(text)
	}
}

func formatBoolWithColor(ok bool) string {
	if ok {
		return colorSuccess("yes")
	}
	return colorError("no")
}
