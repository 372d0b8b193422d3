package bundler

import (
	"strconv"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
)

// Placeholder markers replaced in every recompiled module.
const (
	RestURLMarker = "/* @echo __REST_URL__ */"
	DebugMarker   = "__DEBUG__"
)

// newSubstituter returns the placeholder replacer for cfg.
//
// Replacement is purely textual: markers inside string literals and
// comments are replaced as well. Application code depends on this, e.g.
// var api = '/* @echo __REST_URL__ */';
func newSubstituter(cfg config.BuildConfig) *strings.Replacer {
	return strings.NewReplacer(
		RestURLMarker, cfg.RestURL,
		DebugMarker, strconv.FormatBool(cfg.Debug),
	)
}
