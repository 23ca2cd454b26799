package models

// Artifact is a generated byte payload produced by the Publish stage and
// handed to the Artifact Store Gateway.
type Artifact struct {
	JobID       string
	Key         string
	Bytes       []byte
	ContentType string
	CacheHint   string
}
