package models

import (
	"fmt"
	"strings"
)

// URI schemes understood by the storage backends.
const (
	SchemeLocal = ""
	SchemeMinIO = "minio://"
	SchemeHDFS  = "hdfs://"
)

// Resource is a tagged URI locating an artifact in some backend.
type Resource struct {
	Scheme   string `json:"scheme" bson:"scheme"`
	Resource string `json:"resource" bson:"resource"`
}

// NewLocalResource returns a Resource for a plain filesystem path.
func NewLocalResource(path string) Resource {
	return Resource{Scheme: SchemeLocal, Resource: path}
}

// NewMinIOResource returns a Resource under the minio:// scheme.
func NewMinIOResource(uri string) Resource {
	return Resource{Scheme: SchemeMinIO, Resource: uri}
}

// NewHDFSResource returns a Resource under the hdfs:// scheme.
func NewHDFSResource(uri string) Resource {
	return Resource{Scheme: SchemeHDFS, Resource: uri}
}

// Validate checks that the resource string carries its scheme prefix.
func (r Resource) Validate() error {
	if !strings.HasPrefix(r.Resource, r.Scheme) {
		return fmt.Errorf("invalid resource: %q does not start with scheme %q", r.Resource, r.Scheme)
	}
	return nil
}

// String returns the raw URI.
func (r Resource) String() string {
	return r.Resource
}
