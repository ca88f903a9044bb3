// Package localization embeds the keyword tables for every supported
// feature-file language. Each <code>.txt resource holds one line per keyword
// category: "<id>;<keyword>,<keyword>,...".
package localization

import "embed"

// FS contains the localization resources.
//
//go:embed *.txt
var FS embed.FS
