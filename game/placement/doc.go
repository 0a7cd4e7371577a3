// Package placement plans the scenery of a level and hands it to a renderer.
//
// Plan reads the movement grid and a copy of the eligibility grid and fills a
// Scene arena with ground tiles, 2x2 structures on forest blocks, ambient
// decoration, forest canopy, waterfalls, actors and distant islands. Mount
// places the arena through a Renderer adapter. All randomness comes from the
// Config seed.
package placement
