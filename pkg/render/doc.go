// Package render turns dependency graphs into pictures.
//
// The [nodelink] subpackage produces Graphviz DOT and SVG. [ToPDF] and
// [ToPNG] convert any SVG further by shelling out to rsvg-convert, which
// must be installed separately.
//
// [nodelink]: github.com/matzehuels/stackbump/pkg/render/nodelink
package render
