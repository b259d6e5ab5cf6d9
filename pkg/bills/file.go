package bills

import "strings"

// File is a receipt picked by the employee before it is uploaded.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// IsValidType reports whether the declared MIME type of f is an image type.
// Only the declared type is read; the content is not sniffed here.
func IsValidType(f File) bool {
	return strings.HasPrefix(f.ContentType, "image/")
}
