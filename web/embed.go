package web

import "embed"

// TemplatesFS carries the page and layout templates so the binary ships
// self-contained.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS carries the stylesheet and client-side script.
//
//go:embed static/*
var StaticFS embed.FS
