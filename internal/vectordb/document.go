package vectordb

// Document is a single embedded chunk as stored in the vector index.
type Document struct {
	ID       string
	Content  string
	Metadata DocumentMetadata
}

// DocumentMetadata is the flat set of fields chromem-go can index and
// filter on. Source identifies the originating file or archive by its
// basename (every entry inside one archive shares its Source);
// Fingerprint is the fingerprint.Fingerprint of that file or archive at
// the time this chunk was produced, used to detect stale chunks left
// behind by a prior generation.
type DocumentMetadata struct {
	Source      string
	Fingerprint string
	Filename    string
	ChunkIndex  int
}
