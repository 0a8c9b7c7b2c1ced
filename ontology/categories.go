package ontology

// Sequence Ontology descriptions used by feature handling code.
const (
	SequenceVariant      = "sequence_variant"
	Polypeptide          = "polypeptide"
	NucleotideMatch      = "nucleotide_match"
	ProteinMatch         = "protein_match"
	CDS                  = "CDS"
	Exon                 = "exon"
	Transcript           = "transcript"
	Gene                 = "gene"
	NMDTranscriptVariant = "NMD_transcript_variant"
	SynonymousVariant    = "synonymous_variant"
	NonsynonymousVariant = "nonsynonymous_variant"
)

// IsSequenceVariant reports whether term is a sequence_variant.
func (e *Engine) IsSequenceVariant(term string) bool {
	return e.IsA(term, SequenceVariant)
}

// IsPolypeptide reports whether term is a polypeptide.
func (e *Engine) IsPolypeptide(term string) bool {
	return e.IsA(term, Polypeptide)
}

// IsNucleotideMatch reports whether term is a nucleotide_match.
func (e *Engine) IsNucleotideMatch(term string) bool {
	return e.IsA(term, NucleotideMatch)
}

// IsProteinMatch reports whether term is a protein_match.
func (e *Engine) IsProteinMatch(term string) bool {
	return e.IsA(term, ProteinMatch)
}

// IsCDS reports whether term is a CDS.
func (e *Engine) IsCDS(term string) bool {
	return e.IsA(term, CDS)
}

// IsExon reports whether term is an exon.
func (e *Engine) IsExon(term string) bool {
	return e.IsA(term, Exon)
}

// IsTranscript reports whether term is a transcript.
func (e *Engine) IsTranscript(term string) bool {
	return e.IsA(term, Transcript)
}

// IsGene reports whether term is a gene.
func (e *Engine) IsGene(term string) bool {
	return e.IsA(term, Gene)
}
