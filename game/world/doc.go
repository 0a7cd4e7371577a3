// Package world runs the level-load pipeline: preload assets, fetch the level,
// build the grids and engine, plan the scene and mount it.
package world
