package http

import xutil "FolioFeed/pkg/util"

// ParseSymbols splits a symbols query parameter.
func ParseSymbols(s string) []string { return xutil.SplitSymbols(s) }
