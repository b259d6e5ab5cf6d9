package bills

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage layout of Bill.Date.
const DateLayout = "2006-01-02"

var shortMonths = [...]string{
	"Jan", "Fév", "Mar", "Avr", "Mai", "Jui",
	"Jui", "Aoû", "Sep", "Oct", "Nov", "Déc",
}

// FormatDate renders an ISO date for the bills table, e.g. "2004-04-04" -> "4 Avr. 04".
func FormatDate(date string) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("invalid bill date %q: %w", date, err)
	}
	return fmt.Sprintf("%d %s. %02d", t.Day(), shortMonths[t.Month()-1], t.Year()%100), nil
}

// FormatStatus renders a status label for the bills table.
func FormatStatus(s Status) string {
	switch s {
	case StatusPending:
		return "En attente"
	case StatusAccepted:
		return "Accepté"
	case StatusRefused:
		return "Refused"
	}
	return string(s)
}
