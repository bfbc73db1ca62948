package types

import "strings"

// AssetRef references an input image for a generation job. It is either a
// bare storage object key (as returned by an upload) or an absolute URL
// supplied by the caller. Exactly one of the two forms is set.
type AssetRef struct {
	key string
	url string
}

// AssetFromKey 构造指向存储对象键的引用（上传返回值）。
func AssetFromKey(key string) AssetRef {
	return AssetRef{key: key}
}

// AssetFromURL 构造指向外部绝对 URL 的引用。
func AssetFromURL(rawURL string) AssetRef {
	return AssetRef{url: rawURL}
}

// IsZero reports whether the reference is empty.
func (a AssetRef) IsZero() bool {
	return a.key == "" && a.url == ""
}

// IsKey reports whether the reference is a bare storage key that still
// needs to be resolved against the storage base URL.
func (a AssetRef) IsKey() bool {
	return a.key != ""
}

// Key returns the raw storage key, or "" when the reference is a URL.
func (a AssetRef) Key() string {
	return a.key
}

// ResolveURL returns the absolute URL for the asset. Bare keys are joined
// onto storageBase; URL references are returned verbatim. Slashes at the
// join point are normalized so that "base/" + "/key" never doubles up.
func (a AssetRef) ResolveURL(storageBase string) string {
	if a.url != "" {
		return a.url
	}
	if a.key == "" {
		return ""
	}
	base := strings.TrimRight(storageBase, "/")
	return base + "/" + strings.TrimLeft(a.key, "/")
}
