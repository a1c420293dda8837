package helper

import (
	"fmt"
	"path"
	"strings"
)

// BuildMediaURL joins the externally visible location of a stored file.
// In s3 mode cdnURL (or the bucket URL) replaces scheme and host.
func BuildMediaURL(storageMode, scheme, host, cdnURL, dir, fileName string) string {
	key := MediaKey(dir, fileName)

	if storageMode == "s3" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(cdnURL, "/"), key)
	}

	return fmt.Sprintf("%s://%s/%s", scheme, host, key)
}

// MediaKey is the slash-separated object key for fileName under dir.
func MediaKey(dir, fileName string) string {
	return path.Join(urlPath(dir), fileName)
}

func urlPath(dir string) string {
	dir = strings.ReplaceAll(dir, "\\", "/")
	return strings.Trim(strings.TrimLeft(dir, "."), "/")
}
