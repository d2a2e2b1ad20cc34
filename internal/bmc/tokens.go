package bmc

import (
	"errors"
	"regexp"
	"time"

	"github.com/robertkrimen/otto"
)

// Tokens is what a successful login hands back. CSRF is empty when the
// firmware does not issue one.
type Tokens struct {
	Cookie string
	CSRF   string
}

// sessionRecordExpr locates the session record in the login response script.
const sessionRecordExpr = "WEBVAR_JSONVAR_WEB_SESSION.WEBVAR_STRUCTNAME_WEB_SESSION[0]"

var (
	// scriptTimeout bounds evaluation of the login response script.
	scriptTimeout = 2 * time.Second

	tokenValuePattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	errScriptTimeout  = errors.New("login script evaluation timed out")
)

func fieldPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`'` + regexp.QuoteMeta(name) + `' : '([a-zA-Z0-9]+)'`)
}

// ExtractTokens finds `'NAME' : 'value'` pairs for the cookie and CSRF field
// names in a login response body. ok reports whether the cookie was found.
func ExtractTokens(body string, fields TokenFields) (tokens Tokens, ok bool) {
	match := fieldPattern(fields.Cookie).FindStringSubmatch(body)
	if match == nil {
		return Tokens{}, false
	}
	tokens.Cookie = match[1]
	if fields.CSRF != "" {
		if match := fieldPattern(fields.CSRF).FindStringSubmatch(body); match != nil {
			tokens.CSRF = match[1]
		}
	}
	return tokens, true
}

// ExtractTokensScript evaluates the login response as JavaScript and reads
// the token properties from the session record it declares. ok reports
// whether the cookie was found.
func ExtractTokensScript(body string, fields TokenFields) (tokens Tokens, ok bool) {
	vm := otto.New()
	vm.Interrupt = make(chan func(), 1)
	timer := time.AfterFunc(scriptTimeout, func() {
		vm.Interrupt <- func() { panic(errScriptTimeout) }
	})
	defer timer.Stop()
	defer func() {
		if r := recover(); r != nil {
			if r != errScriptTimeout {
				panic(r)
			}
			tokens, ok = Tokens{}, false
		}
	}()

	if _, err := vm.Run(body); err != nil {
		return Tokens{}, false
	}
	record, err := vm.Run(sessionRecordExpr)
	if err != nil || !record.IsObject() {
		return Tokens{}, false
	}
	object := record.Object()

	tokens.Cookie = scriptString(object, fields.Cookie)
	if tokens.Cookie == "" {
		return Tokens{}, false
	}
	if fields.CSRF != "" {
		tokens.CSRF = scriptString(object, fields.CSRF)
	}
	return tokens, true
}

// scriptString returns the named property when it is an alphanumeric string.
func scriptString(object *otto.Object, name string) string {
	value, err := object.Get(name)
	if err != nil || !value.IsString() {
		return ""
	}
	s, err := value.ToString()
	if err != nil || !tokenValuePattern.MatchString(s) {
		return ""
	}
	return s
}
