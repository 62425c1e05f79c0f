// Package objectkey parses storage object keys of the form
// <optional/prefix>/<uuid>-<originalFileName>. A single hyphen is the
// canonical separator between the owner UUID and the original file name.
package objectkey

import (
	"regexp"
	"strings"
)

var ownerPattern = regexp.MustCompile(
	`^([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})-(.+)$`,
)

// FileInfo is the decomposition of an object key's last path segment.
// OwnerID is empty when the segment does not start with a canonical UUID;
// callers must treat such a record as unrouteable.
type FileInfo struct {
	FileName         string
	OwnerID          string
	OriginalFileName string
}

// ExtractFileInfo takes the last path segment of objectKey as the file
// name and splits off the leading owner UUID.
func ExtractFileInfo(objectKey string) FileInfo {
	fileName := objectKey
	if i := strings.LastIndex(objectKey, "/"); i >= 0 {
		fileName = objectKey[i+1:]
	}

	m := ownerPattern.FindStringSubmatch(fileName)
	if m == nil {
		return FileInfo{FileName: fileName, OriginalFileName: fileName}
	}
	return FileInfo{
		FileName:         fileName,
		OwnerID:          m[1],
		OriginalFileName: m[2],
	}
}
