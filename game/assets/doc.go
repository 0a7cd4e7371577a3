// Package assets names the scenery assets per theme and detail level and
// preloads them into an Atlas before any level is built.
package assets
