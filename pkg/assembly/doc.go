// Package assembly is the in-memory scene model for elfin livebuild.
//
// A Scene owns modules (placed prototype instances) and the scaffolding
// objects (joints, bridges, plain objects) around them. Modules are joined
// by paired chain links and may be grouped into mirror sets that must grow
// and die together. Every mutation keeps both sides of a back-reference in
// step; Destroy unwinds links, mirrors and joint/bridge adjacency before the
// object leaves the scene.
//
// A Scene has a single mutator. Callers serialize access.
package assembly
