package classifier

import (
	"context"
	"strings"
	"unicode"

	"github.com/JonMunkholm/attendee-import/internal/core"
)

// Alias tables, compared after lowercasing and dropping everything but
// letters and digits. Earlier entries win.
var (
	nameAliases = []string{
		"fullname", "name", "attendeename", "guestname", "attendee", "guest",
		"participant", "participantname", "registrant", "contactname",
	}
	emailAliases = []string{
		"email", "emailaddress", "mail", "attendeeemail", "guestemail",
		"contactemail", "workemail", "eaddress",
	}
	phoneAliases = []string{
		"phone", "phonenumber", "mobile", "mobilenumber", "cell", "cellphone",
		"telephone", "tel", "contactnumber", "whatsapp",
	}
)

// Aliases classifies columns from their header labels alone.
type Aliases struct{}

// NewAliases creates a header alias classifier.
func NewAliases() *Aliases {
	return &Aliases{}
}

// Classify never fails. Labels are returned exactly as they appear in headers.
func (Aliases) Classify(_ context.Context, headers []string, _ string) (core.ColumnSuggestion, error) {
	keys := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = headerKey(h)
	}

	return core.ColumnSuggestion{
		NameColumn:  match(headers, keys, nameAliases),
		EmailColumn: match(headers, keys, emailAliases),
		PhoneColumn: match(headers, keys, phoneAliases),
	}, nil
}

// Name returns the classifier name.
func (Aliases) Name() string {
	return "aliases"
}

func match(headers, keys, aliases []string) string {
	for _, alias := range aliases {
		for i, k := range keys {
			if k == alias {
				return headers[i]
			}
		}
	}
	return ""
}

func headerKey(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
