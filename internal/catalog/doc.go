// Package catalog loads product definitions: the time increments, regions,
// target heights, inputs and render files that determine which output
// products exist and how they are assembled.
//
// Definitions live as one TOML file per product in the catalog directory.
// Render files are a closed variant (map or video) checked at load time: a
// file of KindMap always carries Map, a file of KindVideo always carries Video.
package catalog
