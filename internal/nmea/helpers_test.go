package nmea

import (
	"fmt"
	"strings"
	"time"
)

// checksummed wraps an NMEA body in "$...*HH".
func checksummed(body string) string {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X", body, sum)
}

type epoch struct {
	at               time.Time
	alt              float64
	fix              string
	pdop, hdop, vdop float64
}

func goodEpoch(at time.Time, alt float64) epoch {
	return epoch{at: at, alt: alt, fix: "3", pdop: 1.8, hdop: 1.0, vdop: 1.5}
}

// sentences returns RMC, GGA, VTG and GSA of one fix.
func (e epoch) sentences() []string {
	hms := e.at.UTC().Format("150405.00")
	date := e.at.UTC().Format("020106")
	gsa := []string{"GPGSA", "A", e.fix, "04", "05", "09", "12"}
	gsa = append(gsa, make([]string, 8)...)
	gsa = append(gsa, fmt.Sprintf("%.1f", e.pdop), fmt.Sprintf("%.1f", e.hdop), fmt.Sprintf("%.1f", e.vdop))
	return []string{
		checksummed(fmt.Sprintf("GPRMC,%s,A,5133.8200,N,00042.2400,W,10.0,231.8,%s,003.1,W", hms, date)),
		checksummed(fmt.Sprintf("GPGGA,%s,5133.8200,N,00042.2400,W,1,08,%.1f,%.1f,M,47.0,M,,", hms, e.hdop, e.alt)),
		checksummed("GPVTG,231.8,T,,M,10.0,N,18.5,K"),
		checksummed(strings.Join(gsa, ",")),
	}
}

func stream(epochs ...epoch) string {
	var lines []string
	for _, e := range epochs {
		lines = append(lines, e.sentences()...)
	}
	return strings.Join(lines, "\r\n") + "\r\n"
}
