package core

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// PlaceholderDomain is the domain of synthesized attendee emails.
const PlaceholderDomain = "import.local"

var slugStrip = regexp.MustCompile(`[^a-z.]`)

// PlaceholderEmail builds "<slug>_<epochMillis>_<index>@import.local" where
// slug is the lowercased name with words joined by dots.
func PlaceholderEmail(name string, at time.Time, index int) string {
	slug := strings.Join(strings.Fields(strings.ToLower(name)), ".")
	slug = slugStrip.ReplaceAllString(slug, "")
	return fmt.Sprintf("%s_%d_%d@%s", slug, at.UnixMilli(), index, PlaceholderDomain)
}

// FinalizeAttendees returns the attendee list submitted to commit. The
// name-only bucket is appended only when includeNameOnly is set, each record
// receiving a placeholder email unique within the call.
func FinalizeAttendees(preview PreviewResult, includeNameOnly bool, now time.Time) []AttendeeRecord {
	n := len(preview.AttendeesWithEmail)
	if includeNameOnly {
		n += len(preview.AttendeesNameOnly)
	}

	attendees := make([]AttendeeRecord, 0, n)
	attendees = append(attendees, preview.AttendeesWithEmail...)
	if !includeNameOnly {
		return attendees
	}

	for i, rec := range preview.AttendeesNameOnly {
		rec.Email = PlaceholderEmail(rec.Name, now, i)
		rec.HasPlaceholderEmail = true
		attendees = append(attendees, rec)
	}
	return attendees
}
