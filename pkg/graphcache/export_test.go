package graphcache

import "os"

// writeJunk writes a file with the wrong magic header, for testing Load's
// version-mismatch path.
func writeJunk(path string) error {
	return os.WriteFile(path, []byte("NOPE0000not a cache file"), 0o644)
}
