package web

import "embed"

// TemplatesFS holds the bills pages and their htmx partials.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the modal script.
//
//go:embed static/*
var StaticFS embed.FS
