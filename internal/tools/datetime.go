package tools

import (
	"fmt"
	"strings"
	"time"
)

// CurrentDatetime reports the current time in the requested IANA timezone.
// Unknown timezones come back as a readable message.
func CurrentDatetime(timezoneName string) string {
	var loc *time.Location
	if strings.EqualFold(timezoneName, "UTC") {
		loc = time.UTC
	} else {
		var err error
		loc, err = time.LoadLocation(timezoneName)
		if err != nil {
			return fmt.Sprintf("Unknown timezone: '%s'. Use an IANA name such as 'UTC', 'America/New_York' or 'Asia/Tokyo'.", timezoneName)
		}
	}
	now := time.Now().In(loc)
	return fmt.Sprintf(
		"Current date and time in %s:\n  Date: %s\n  Time: %s\n  ISO: %s\n  Unix timestamp: %d",
		timezoneName,
		now.Format("Monday, January 02, 2006"),
		now.Format("03:04:05 PM"),
		now.Format(time.RFC3339),
		now.Unix(),
	)
}
