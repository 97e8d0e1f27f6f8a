package model

import "strings"

// UnknownRepository is the sentinel value used when the extraction cascade
// cannot determine a repository name from a source path.
const UnknownRepository = "unknown"

var hostingServices = map[string]struct{}{
	"github.com":    {},
	"gitlab.com":    {},
	"bitbucket.org": {},
}

var projectStructureDirs = map[string]struct{}{
	"src":  {},
	"main": {},
	"test": {},
	"docs": {},
}

var buildFiles = map[string]struct{}{
	"pom.xml":         {},
	"build.gradle":    {},
	"Cargo.toml":      {},
	"go.mod":          {},
	"package.json":    {},
	"README":          {},
	"README.md":       {},
}

// commonDirNames are segments too generic to stand in as a repository name
// on their own.
var commonDirNames = map[string]struct{}{
	"java": {}, "com": {}, "org": {}, "net": {}, "src": {}, "build": {},
	"target": {}, "main": {}, "test": {}, "docs": {}, "internal": {},
	"pkg": {}, "lib": {}, "bin": {}, "cmd": {}, "dist": {}, "out": {},
}

// ExtractRepository derives a repository name from a (typically
// repository-relative or absolute) source path, trying each stage of the
// cascade in order and returning the sentinel UnknownRepository if none
// match.
func ExtractRepository(sourcePath string) string {
	segments := splitPathSegments(sourcePath)
	if len(segments) == 0 {
		return UnknownRepository
	}

	if repo := extractHostingService(segments); repo != "" {
		return repo
	}
	if repo := extractProjectStructure(segments); repo != "" {
		return repo
	}
	if repo := extractBuildFile(segments); repo != "" {
		return repo
	}
	if repo := extractOwnerRepoTail(segments); repo != "" {
		return repo
	}
	if repo := extractLastValidSegment(segments); repo != "" {
		return repo
	}
	return UnknownRepository
}

func splitPathSegments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func extractHostingService(segments []string) string {
	for i, seg := range segments {
		if _, ok := hostingServices[strings.ToLower(seg)]; ok {
			if i+2 < len(segments) {
				return segments[i+1] + "/" + segments[i+2]
			}
			if i+1 < len(segments) {
				return segments[i+1]
			}
		}
	}
	return ""
}

func extractProjectStructure(segments []string) string {
	for i, seg := range segments {
		if _, ok := projectStructureDirs[strings.ToLower(seg)]; ok {
			if i > 0 && isValidSegment(segments[i-1]) {
				return segments[i-1]
			}
		}
	}
	return ""
}

func extractBuildFile(segments []string) string {
	for i, seg := range segments {
		if _, ok := buildFiles[seg]; ok {
			if i > 0 && isValidSegment(segments[i-1]) {
				return segments[i-1]
			}
		}
	}
	return ""
}

// extractOwnerRepoTail treats the two directory segments preceding the
// final path element (the file name) as an owner/repo pair.
func extractOwnerRepoTail(segments []string) string {
	dirs := segments
	if len(dirs) > 0 {
		dirs = dirs[:len(dirs)-1] // drop file name
	}
	if len(dirs) < 2 {
		return ""
	}
	owner, repo := dirs[len(dirs)-2], dirs[len(dirs)-1]
	if isValidSegment(owner) && isValidSegment(repo) {
		return owner + "/" + repo
	}
	return ""
}

// extractLastValidSegment walks directory segments (excluding the file
// name) from the end, returning the first one that looks like a real
// repository name rather than generic path noise.
func extractLastValidSegment(segments []string) string {
	dirs := segments
	if len(dirs) > 0 {
		dirs = dirs[:len(dirs)-1]
	}
	for i := len(dirs) - 1; i >= 0; i-- {
		if isValidSegment(dirs[i]) {
			return dirs[i]
		}
	}
	return ""
}

func isValidSegment(segment string) bool {
	if len(segment) <= 1 {
		return false
	}
	if strings.Contains(segment, ".") {
		return false
	}
	if _, common := commonDirNames[strings.ToLower(segment)]; common {
		return false
	}
	return true
}
