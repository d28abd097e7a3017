// Package session detects documents served to an invalid session and carries the opaque
// session codes every portal request is authorized with.
package session

import (
	"fmt"
	"regexp"
	"skyward-backend/lib/htmlutil"
	"skyward-backend/lib/skyerr"
	"strings"
)

var emptyPayloadRegex = regexp.MustCompile(`<data><!\[CDATA\[\s*\]\]></data>`)

// LogoutMarkers are phrases the portal renders in place of a page once the session is gone.
var LogoutMarkers = []string{
	"Your session has expired and you have been logged out.",
	"Your session has expired",
	"Your session has timed out",
}

const (
	loginPageTitle = "Family Access"
	// loginPageMaxLength is the size under which a document titled like the login page is
	// the login page rather than a data page.
	loginPageMaxLength = 5000
)

// EmptyPayload reports whether document is the empty dialog payload the portal returns
// when a dialog request is made with a dead session.
func EmptyPayload(document string) bool {
	return emptyPayloadRegex.MatchString(document)
}

func loggedOut(document string) (string, bool) {
	for _, marker := range LogoutMarkers {
		if strings.Contains(document, marker) {
			return marker, true
		}
	}
	return "", false
}

func loginPage(document string) bool {
	if len(document) >= loginPageMaxLength {
		return false
	}
	doc, err := htmlutil.Parse(document)
	if err != nil {
		return false
	}
	return strings.Contains(doc.Find("title").First().Text(), loginPageTitle)
}

// Detect returns skyerr.ErrSessionInvalid (with the reason as the cause) when document was
// served to an invalid session, nil otherwise.
func Detect(document string) error {
	if EmptyPayload(document) {
		return skyerr.New(skyerr.SessionInvalid, "empty dialog payload")
	}
	if marker, ok := loggedOut(document); ok {
		return skyerr.New(skyerr.SessionInvalid, fmt.Sprintf("logout marker %q", marker))
	}
	if loginPage(document) {
		return skyerr.New(skyerr.SessionInvalid, "received the login page")
	}
	return nil
}

// Codes is the session bundle the portal issues at login. It is passed through to requests
// unmodified and never inspected beyond the existence of the required codes.
type Codes struct {
	Dwd       string `json:"dwd" env:"SKYWARD_DWD"`
	Wfaacl    string `json:"wfaacl" env:"SKYWARD_WFAACL"`
	Encses    string `json:"encses" env:"SKYWARD_ENCSES"`
	SessionID string `json:"sessionid" env:"SKYWARD_SESSIONID"`
	UserType  string `json:"User-Type" env:"SKYWARD_USER_TYPE"`
}

// Validate checks that the codes every request needs are present.
func (c Codes) Validate() error {
	var missing []string
	if c.Dwd == "" {
		missing = append(missing, "dwd")
	}
	if c.Wfaacl == "" {
		missing = append(missing, "wfaacl")
	}
	if c.Encses == "" {
		missing = append(missing, "encses")
	}
	if len(missing) > 0 {
		return skyerr.New(
			skyerr.SessionInvalid,
			fmt.Sprintf("missing session codes: %s", strings.Join(missing, ", ")),
		)
	}
	return nil
}

// Form renders the codes as the urlencoded form fields page requests carry.
func (c Codes) Form() map[string]string {
	form := map[string]string{
		"dwd":    c.Dwd,
		"wfaacl": c.Wfaacl,
		"encses": c.Encses,
	}
	if c.SessionID != "" {
		form["sessionid"] = c.SessionID
	}
	return form
}
