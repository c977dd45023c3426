package scoring

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/vennbeck/showrunner/core/departments"
)

// Fingerprint derives the cache key material for one assessment from
// (content, department, serialized project context). Identical inputs
// always hash identically, which is what makes concurrent duplicate
// cache writes idempotent.
func Fingerprint(content string, department departments.ID, projectContext string) string {
	h := sha256.New()
	h.Write([]byte(content))
	h.Write([]byte{0})
	h.Write([]byte(departments.Normalize(department)))
	h.Write([]byte{0})
	h.Write([]byte(projectContext))
	return hex.EncodeToString(h.Sum(nil))
}

// assessmentCacheKey namespaces assessment entries per department so
// ClearByPrefix can drop one department's memoized gradings.
func assessmentCacheKey(department departments.ID, fingerprint string) string {
	return "assess:" + string(departments.Normalize(department)) + ":" + fingerprint
}
