package assets

import "embed"

// FS holds the files shipped with the binaries.
//go:embed templates/email/*
var FS embed.FS

const EmailTemplatesDir = "templates/email"
