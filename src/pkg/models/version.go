package models

import "time"

// Asset represents a downloadable file attached to a release
type Asset struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Release represents a published release on the release host
type Release struct {
	TagName     string     `json:"tag_name"`
	Assets      []Asset    `json:"assets"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Commit identifies the commit a tag points to
type Commit struct {
	SHA string `json:"sha"`
}

// Tag represents a source-control tag
type Tag struct {
	Name   string `json:"name"`
	Commit Commit `json:"commit"`
}

// ReleaseAndTag pairs a release with the tag of the same name
type ReleaseAndTag struct {
	Release Release `json:"release"`
	Tag     Tag     `json:"tag"`
}

// Clone returns a deep copy so callers never share the assets slice
func (r Release) Clone() Release {
	c := r
	if r.Assets != nil {
		c.Assets = make([]Asset, len(r.Assets))
		copy(c.Assets, r.Assets)
	}
	if r.PublishedAt != nil {
		t := *r.PublishedAt
		c.PublishedAt = &t
	}
	return c
}

// CloneEntries deep-copies a release/tag sequence
func CloneEntries(entries []ReleaseAndTag) []ReleaseAndTag {
	if entries == nil {
		return nil
	}
	out := make([]ReleaseAndTag, len(entries))
	for i, e := range entries {
		out[i] = ReleaseAndTag{Release: e.Release.Clone(), Tag: e.Tag}
	}
	return out
}
