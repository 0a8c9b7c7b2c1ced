// Package obo reads Sequence Ontology releases in OBO flat-file format and
// builds ontology graphs from them.
//
// Sources may be plain .obo files, gzip-compressed .obo.gz files, .zip
// archives (the OBO file is looked up by entry name, so-xp-simple.obo by
// default), or the subset compiled into the binary:
//
//	graph, err := obo.Load(ctx, obo.Bundled, obo.WithLogger(logger))
//
// Only id, name, is_obsolete and is_a carry meaning for the graph. Other tags
// are retained as term properties.
package obo
