package bmc

import (
	"fmt"
	"runtime"
	"strconv"
)

// Extractor names accepted in Config.Extractor.
const (
	ExtractorPattern = "pattern"
	ExtractorScript  = "script"
)

// TokenFields names the login response properties holding the session
// cookie and the CSRF token.
type TokenFields struct {
	Cookie string
	CSRF   string
}

// Config holds everything about the remote firmware and the local launch
// that a Session needs. It is copied into the session at construction and
// never modified afterwards.
type Config struct {
	// Scheme is the URL scheme used for every request.
	Scheme string

	LoginPath      string
	DescriptorPath string
	ActionPath     string
	// AssetPath is the directory prefix the jars are served from. It must
	// end with a slash.
	AssetPath string

	// EntryPoint is the Java main class of the viewer.
	EntryPoint string

	CoreArchive     string
	OptionalArchive string

	// CookieName is the cookie carrying the session token on authorized
	// requests.
	CookieName string
	// CSRFHeader carries the CSRF token on action requests.
	CSRFHeader string

	Fields TokenFields
	// RequireCSRF makes a login response without a CSRF token an
	// authentication failure. Older firmware never issues one.
	RequireCSRF bool
	// Extractor selects how tokens are read from the login response:
	// ExtractorPattern or ExtractorScript.
	Extractor string

	// JavaBinary is the program started by LaunchViewer.
	JavaBinary string

	// GOOS and PointerBits select the native archive and the data root.
	GOOS        string
	PointerBits int

	// DataRoot overrides the platform user-data directory when non-empty.
	DataRoot string
	// CacheDirName is the per-application directory below the data root.
	CacheDirName string
}

// DefaultConfig returns the configuration matching AMI MegaRAC firmware
// on the current platform.
func DefaultConfig() Config {
	return Config{
		Scheme:          "http",
		LoginPath:       "/rpc/WEBSES/create.asp",
		DescriptorPath:  "/Java/jviewer.jnlp",
		ActionPath:      "/rpc/hostctl.asp",
		AssetPath:       "/Java/release/",
		EntryPoint:      "com.ami.kvm.jviewer.JViewer",
		CoreArchive:     "JViewer.jar",
		OptionalArchive: "JViewer-SOC.jar",
		CookieName:      "SessionCookie",
		CSRFHeader:      "X-Csrf",
		Fields: TokenFields{
			Cookie: "SESSION_COOKIE",
			CSRF:   "CSRF_TOKEN",
		},
		RequireCSRF:  true,
		Extractor:    ExtractorPattern,
		JavaBinary:   "java",
		GOOS:         runtime.GOOS,
		PointerBits:  strconv.IntSize,
		CacheDirName: "jviewer-starter",
	}
}

// Validate checks the fields that cannot be defaulted sensibly at use time.
func (c Config) Validate() error {
	switch c.Extractor {
	case ExtractorPattern, ExtractorScript:
	default:
		return fmt.Errorf("unknown token extractor %q", c.Extractor)
	}
	if c.Fields.Cookie == "" {
		return fmt.Errorf("cookie field name is empty")
	}
	if c.JavaBinary == "" {
		return fmt.Errorf("java binary is empty")
	}
	if c.CacheDirName == "" {
		return fmt.Errorf("cache directory name is empty")
	}
	return nil
}
