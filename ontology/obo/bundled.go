package obo

import (
	_ "embed"
)

// Bundled selects the ontology compiled into the binary.
const Bundled = "bundled:so-core"

//go:embed data/so-core.obo
var bundledOBO []byte
