package csvexport

import (
	"time"

	"calkit/internal/model"
)

func formatSpan(e model.Event, loc *time.Location) (string, string) {
	if e.AllDay {
		end := ""
		if !e.End.IsZero() {
			end = e.End.Format(dateLayout)
		}
		return e.Start.Format(dateLayout), end
	}
	end := ""
	if !e.End.IsZero() {
		end = e.End.In(loc).Format(dateTimeLayout)
	}
	return e.Start.In(loc).Format(dateTimeLayout), end
}
