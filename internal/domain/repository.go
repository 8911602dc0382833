package domain

import (
	"path"
	"strings"
)

// Repository identifies one source repository queued for processing.
// Instances are rebuilt from the live API response on every run; nothing
// about an individual repository is cached across runs.
type Repository struct {
	Name     string
	CloneURL string
	Empty    bool
}

// NameFromCloneURL derives the repository name from its clone URL: the URL
// base name with the ".git" suffix stripped. The name is used unmodified as
// both the secondary-host project name and the local backup directory name.
func NameFromCloneURL(cloneURL string) string {
	base := path.Base(strings.TrimSuffix(cloneURL, "/"))
	return strings.TrimSuffix(base, ".git")
}
