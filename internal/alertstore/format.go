package alertstore

import (
	"fmt"
	"time"

	"github.com/pondwatch/pondwatch/internal/i18n"
	"github.com/pondwatch/pondwatch/internal/types"
)

var severityLabels = map[i18n.Language]map[types.Severity]string{
	i18n.French: {
		types.SeverityHigh:   "CRITIQUE",
		types.SeverityMedium: "ATTENTION",
		types.SeverityLow:    "INFO",
	},
	i18n.Arabic: {
		types.SeverityHigh:   "حرج",
		types.SeverityMedium: "تحذير",
		types.SeverityLow:    "معلومات",
	},
}

// SeverityLabel returns the display label of a severity. Unknown severities
// are returned unchanged.
func SeverityLabel(sev types.Severity, lang i18n.Language) string {
	labels, ok := severityLabels[lang]
	if !ok {
		labels = severityLabels[i18n.Primary]
	}
	if s, ok := labels[sev]; ok {
		return s
	}
	return string(sev)
}

// rlm keeps slash-separated dates in order inside right-to-left text
const rlm = "\u200f"

// RelativeTime describes how long ago ts happened as seen from now: minutes
// under an hour, hours under a day, otherwise the calendar date in now's
// location.
func RelativeTime(ts, now time.Time, lang i18n.Language) string {
	minutes := elapsedMinutes(ts, now)
	switch {
	case minutes < 60:
		if lang == i18n.Arabic {
			return fmt.Sprintf("منذ %d دقيقة", minutes)
		}
		return fmt.Sprintf("Il y a %d min", minutes)
	case minutes < 24*60:
		hours := minutes / 60
		if lang == i18n.Arabic {
			return fmt.Sprintf("منذ %d ساعة", hours)
		}
		return fmt.Sprintf("Il y a %dh", hours)
	default:
		return FormatDate(ts.In(now.Location()), lang)
	}
}

// ShortRelativeTime is the compact form used in the recent alerts panel
func ShortRelativeTime(ts, now time.Time, lang i18n.Language) string {
	minutes := elapsedMinutes(ts, now)
	if minutes < 60 {
		if lang == i18n.Arabic {
			return fmt.Sprintf("منذ %d د", minutes)
		}
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	if lang == i18n.Arabic {
		return fmt.Sprintf("منذ %d س", hours)
	}
	return fmt.Sprintf("%dh", hours)
}

// FormatDate renders a calendar date the way each locale writes it
func FormatDate(t time.Time, lang i18n.Language) string {
	if lang == i18n.Arabic {
		return fmt.Sprintf("%d%s/%d%s/%d", t.Day(), rlm, int(t.Month()), rlm, t.Year())
	}
	return t.Format("02/01/2006")
}

// elapsedMinutes floors the elapsed time to whole minutes; timestamps in the
// future count as zero.
func elapsedMinutes(ts, now time.Time) int {
	d := now.Sub(ts)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}
