// Package ontology answers "is term X a kind of term Y" over the Sequence
// Ontology is-a hierarchy.
//
// A Graph is built once from a Builder (usually by package obo) and is
// immutable afterwards. An Engine wraps a Graph and computes the transitive
// ancestor set of a term the first time it is asked about, keeping it for
// the life of the engine:
//
//	graph, err := obo.Load(ctx, obo.Bundled)
//	if err != nil {
//		return err
//	}
//	engine, err := ontology.New(graph, ontology.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	engine.IsA("CDS_fragment", ontology.CDS) // true
//
// Terms are resolved by description first and canonical ID second, so
// "CDS" and "SO:0000316" name the same term. Unresolvable inputs never
// produce an error; they answer false and are listed by NotFoundTerms.
package ontology
