// Package appfs embeds the files shipped inside the binaries: SQL migrations,
// email templates, the SDG indicator catalogue and the common passwords list.
package appfs

import "embed"

//go:embed migrations/*.sql templates/email/* sdg/*.yaml assets/*.gz
var FS embed.FS
