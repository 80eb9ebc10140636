package core

import (
	"regexp"
	"strings"
	"unicode"
)

// SkipReasonNoIdentity is recorded for rows with neither a name nor an email.
const SkipReasonNoIdentity = "No name or email found"

var (
	emailPattern    = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)
	phonePattern    = regexp.MustCompile(`(\+?\d{1,3})?\s?(\(?\d{2,4}\)?)?\s?[\d\s-]{6,}`)
	firstNameHeader = regexp.MustCompile(`(?i)first.*name|given.*name`)
	lastNameHeader  = regexp.MustCompile(`(?i)last.*name|surname|family.*name`)
	localPartBreaks = regexp.MustCompile(`[._-]+`)
)

// Reconciler turns data rows into attendee records. Role indices that are
// Unknown may be adopted from the first row where a pattern scan succeeds,
// and stay adopted for every later row.
type Reconciler struct {
	headers HeaderSet
	roles   ColumnRoles

	firstNameIndex int
	lastNameIndex  int
}

// NewReconciler prepares a reconciler over the normalized headers.
func NewReconciler(headers HeaderSet, roles ColumnRoles) *Reconciler {
	r := &Reconciler{
		headers:        headers,
		roles:          roles,
		firstNameIndex: Unknown,
		lastNameIndex:  Unknown,
	}

	for i, h := range headers {
		if r.firstNameIndex == Unknown && firstNameHeader.MatchString(h) {
			r.firstNameIndex = i
			continue
		}
		if r.lastNameIndex == Unknown && lastNameHeader.MatchString(h) {
			r.lastNameIndex = i
		}
	}

	return r
}

// Roles returns the role indices, including any adopted during scanning.
func (r *Reconciler) Roles() ColumnRoles {
	return r.roles
}

// Reconcile is a convenience wrapper that runs a fresh Reconciler over rows.
func Reconcile(headers HeaderSet, roles ColumnRoles, dataRows [][]string) (PreviewResult, ColumnRoles) {
	r := NewReconciler(headers, roles)
	return r.Run(dataRows), r.Roles()
}

// Run partitions dataRows into the with-email, name-only and skipped buckets.
// Blank rows are dropped without being reported.
func (r *Reconciler) Run(dataRows [][]string) PreviewResult {
	result := PreviewResult{
		TotalRows:          len(dataRows),
		AttendeesWithEmail: []AttendeeRecord{},
		AttendeesNameOnly:  []AttendeeRecord{},
		SkippedRows:        []SkippedRow{},
	}

	for i, row := range dataRows {
		if len(row) == 0 || isEmptyRow(row) {
			continue
		}

		rec, ok := r.reconcileRow(row)
		if !ok {
			result.SkippedRows = append(result.SkippedRows, SkippedRow{
				Row:    i + 1,
				Reason: SkipReasonNoIdentity,
			})
			continue
		}

		if rec.HasPlaceholderEmail {
			result.AttendeesNameOnly = append(result.AttendeesNameOnly, rec)
		} else {
			result.AttendeesWithEmail = append(result.AttendeesWithEmail, rec)
		}
	}

	result.WithEmailCount = len(result.AttendeesWithEmail)
	result.NameOnlyCount = len(result.AttendeesNameOnly)
	result.SkippedCount = len(result.SkippedRows)
	return result
}

func (r *Reconciler) reconcileRow(row []string) (AttendeeRecord, bool) {
	name := cellAt(row, r.roles.NameIndex)
	email := emailPattern.FindString(cellAt(row, r.roles.EmailIndex))
	phone := cellAt(row, r.roles.PhoneIndex)

	// Columns a fallback drew from on this row, kept out of extras.
	consumed := map[int]bool{}

	if email == "" {
		if idx, match := scanCells(row, emailPattern, nil); idx != Unknown {
			email = match
			consumed[idx] = true
			if r.roles.EmailIndex == Unknown {
				r.roles.EmailIndex = idx
			}
		}
	}

	if phone == "" {
		exclude := map[int]bool{r.roles.NameIndex: true, r.roles.EmailIndex: true}
		for idx := range consumed {
			exclude[idx] = true
		}
		if idx, match := scanCells(row, phonePattern, exclude); idx != Unknown {
			phone = match
			consumed[idx] = true
			if r.roles.PhoneIndex == Unknown {
				r.roles.PhoneIndex = idx
			}
		}
	}

	if name == "" {
		var used []int
		name, used = r.fallbackName(row, consumed)
		for _, idx := range used {
			consumed[idx] = true
		}
	}

	if name == "" && email == "" {
		return AttendeeRecord{}, false
	}
	if name == "" {
		name = nameFromEmail(email)
	}

	rec := AttendeeRecord{
		Name:                name,
		Email:               email,
		HasPlaceholderEmail: email == "",
		Phone:               phone,
	}

	for i, header := range r.headers {
		if r.roles.isRoleIndex(i) || consumed[i] {
			continue
		}
		v := cellAt(row, i)
		if v == "" {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]string)
		}
		rec.Extra[header] = v
	}

	return rec, true
}

// fallbackName joins first and last name columns when both exist, else
// picks the first cell containing a letter outside the email and phone
// columns. The indices the name was built from are returned with it.
func (r *Reconciler) fallbackName(row []string, consumed map[int]bool) (string, []int) {
	if r.firstNameIndex != Unknown && r.lastNameIndex != Unknown {
		joined := strings.TrimSpace(cellAt(row, r.firstNameIndex) + " " + cellAt(row, r.lastNameIndex))
		if joined != "" {
			return joined, []int{r.firstNameIndex, r.lastNameIndex}
		}
	}

	for i := range row {
		if i == r.roles.EmailIndex || i == r.roles.PhoneIndex || consumed[i] {
			continue
		}
		v := cellAt(row, i)
		if containsLetter(v) {
			return v, []int{i}
		}
	}
	return "", nil
}

// scanCells returns the index and match of the first cell matching re,
// skipping excluded indices. Matches without a letter or digit are ignored.
// Unknown is returned when nothing matches.
func scanCells(row []string, re *regexp.Regexp, exclude map[int]bool) (int, string) {
	for i, cell := range row {
		if exclude[i] {
			continue
		}
		for _, m := range re.FindAllString(cell, -1) {
			if m = strings.TrimSpace(m); strings.IndexFunc(m, isAlnum) >= 0 {
				return i, m
			}
		}
	}
	return Unknown, ""
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// nameFromEmail derives a display name from an email local-part:
// "jane.doe_smith" becomes "Jane Doe Smith".
func nameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	words := strings.Fields(localPartBreaks.ReplaceAllString(local, " "))
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
