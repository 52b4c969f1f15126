package web

import "embed"

// assets holds the stylesheet.
//
//go:embed static/*
var assets embed.FS
